// http собирает HTTP API сервиса сессий на chi.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-session-auth/internal/tokens"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/handlers"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/middleware"
)

// Service — всё, что HTTP-слою нужно от сервиса сессий.
type Service interface {
	handlers.SessionService
	Authenticate(ctx context.Context, accessToken string) (*tokens.Claims, error)
	ClaimsForRefresh(ctx context.Context, accessToken string) (*tokens.Claims, error)
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Ready сообщает готовность для /healthz; nil — всегда готов.
	Ready func(ctx context.Context) bool
	// Metrics — обработчик /metrics; nil — эндпойнт не регистрируется.
	Metrics http.Handler
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	r := chi.NewRouter()

	// Пробы и метрики — без логирования и таймаутов.
	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if opts.Ready != nil && !opts.Ready(req.Context()) {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	h := handlers.New(svc)

	r.Route("/auth", func(api chi.Router) {
		// Middleware (внешний -> внутренний).
		api.Use(
			middleware.RequestID(), // до логирования, чтобы request_id попал в логгер
			middleware.Logging(opts.Logger),
			middleware.Timeout(opts.Timeout),
			middleware.AuthBearer(),
		)

		api.Post("/login", h.Login)
		api.With(middleware.RequireClaims(svc.ClaimsForRefresh)).Post("/refresh", h.Refresh)
		api.With(middleware.RequireClaims(svc.Authenticate)).Post("/logout", h.Logout)
		api.With(middleware.RequireClaims(svc.Authenticate)).Get("/me", h.Me)
	})

	// Recover снаружи всего роутера, включая пробы.
	return middleware.Chain(r, middleware.Recover())
}
