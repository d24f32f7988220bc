package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-session-auth/internal/cache"
	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/credentials"
	"github.com/pribylovaa/go-session-auth/internal/interceptors"
	"github.com/pribylovaa/go-session-auth/internal/metrics"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/storage/postgres"
	"github.com/pribylovaa/go-session-auth/internal/tokens"
	httpapi "github.com/pribylovaa/go-session-auth/internal/transport/http"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lg := log.New(cfg.Env, os.Stdout)
	slog.SetDefault(lg)
	lg.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		lg.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	lg.Info("postgres_connected")

	verifier, err := credentials.NewVerifier(str, cfg.Auth.BcryptCost)
	if err != nil {
		lg.Error("verifier_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	signer := tokens.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL, clock)

	svc := service.New(str, verifier, signer, clock, cfg.Auth)
	svc.SetMetrics(metrics.New(prometheus.DefaultRegisterer))

	// Кэш отзывов — опционален: без Redis отзыв действует до истечения access-токена.
	if cfg.Redis.Enabled() {
		rcCtx, rcCancel := context.WithTimeout(rootCtx, 5*time.Second)
		rc, err := cache.NewRedisCache(rcCtx, cfg.Redis.RedisURL, "")
		rcCancel()
		if err != nil {
			lg.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = rc.Close() }()

		svc.SetRevocationCache(rc)
		lg.Info("redis_connected")
	}
	lg.Info("service_initialized")

	var ready atomic.Bool

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr: httpAddr,
		Handler: httpapi.NewRouter(svc, httpapi.Options{
			Logger:  lg,
			Timeout: cfg.Timeouts.Service,
			Ready: func(ctx context.Context) bool {
				if !ready.Load() {
					return false
				}
				pingCtx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()
				return str.Ping(pingCtx) == nil
			},
			Metrics: promhttp.Handler(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpc_prometheus.EnableHandlingTimeHistogram()

	// gRPC-сервер: health-проба и reflection.
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(lg),
			interceptors.UnaryLoggingInterceptor(lg),
			interceptors.WithTimeout(cfg.Timeouts.Service),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecover(lg),
			interceptors.StreamLoggingInterceptor(lg),
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Рефлексия — только в local/dev.
	if cfg.Env == log.EnvLocal || cfg.Env == log.EnvDev {
		reflection.Register(grpcServer)
	}
	grpc_prometheus.Register(grpcServer)

	// Фоновый отзыв истёкших сессий.
	go svc.RunJanitor(log.Into(rootCtx, lg), cfg.Auth.JanitorPeriod)

	grpcAddr := cfg.GRPC.Addr()
	listener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		lg.Error("grpc_listen_failed",
			slog.String("addr", grpcAddr),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}

	serveErrCh := make(chan error, 2)
	go func() {
		lg.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()
	go func() {
		lg.Info("grpc_listen_start", slog.String("addr", grpcAddr))
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
	}()

	// Сервис готов: health -> SERVING и readiness.
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		lg.Info("shutdown_requested")
	case err := <-serveErrCh:
		lg.Error("serve_failed", slog.String("err", err.Error()))
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	ready.Store(false)
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		lg.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		lg.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	lg.Info("service_stopped")
}
