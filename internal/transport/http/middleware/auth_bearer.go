package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/apierrors"
)

type ctxKey int

const (
	ctxAuthToken ctxKey = iota
	ctxClaims
	ctxRequestID
)

// TokenValidator проверяет "сырой" access-токен и возвращает его claims.
// Строгий вариант — service.Authenticate, мягкий — service.ClaimsForRefresh.
type TokenValidator func(ctx context.Context, token string) (*tokens.Claims, error)

// AuthBearer извлекает Bearer-токен из Authorization и кладёт его в контекст.
// Отсутствие или неверный формат заголовка не прерывает запрос.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearer(r.Header.Get("Authorization")); ok {
				r = r.WithContext(context.WithValue(r.Context(), ctxAuthToken, token))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireClaims пропускает запрос дальше только с валидным токеном из контекста
// (см. AuthBearer) и кладёт его claims в контекст. Иначе — 401.
func RequireClaims(validate TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := TokenFrom(r.Context())
			if !ok {
				apierrors.WriteError(w, r, service.ErrTokenInvalid)
				return
			}

			claims, err := validate(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClaims, claims)))
		})
	}
}

// TokenFrom возвращает Bearer-токен из контекста.
func TokenFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxAuthToken).(string)
	return v, ok && v != ""
}

// ClaimsFrom возвращает claims, положенные RequireClaims.
func ClaimsFrom(ctx context.Context) (*tokens.Claims, bool) {
	c, ok := ctx.Value(ctxClaims).(*tokens.Claims)
	return c, ok && c != nil
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
