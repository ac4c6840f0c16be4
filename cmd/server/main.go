// Command server starts the prompt practice evaluation HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/httpserver"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/observability"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/repo/filestore"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/app"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/config"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/eval"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/dispatch"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/hosted"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/local"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/registry"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/service/ratelimit"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Storage
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		slog.Error("data dir init failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Rate limiter: Redis-backed when configured so multiple instances
	// share one hosted-quota window, in-process otherwise.
	var limiter domain.RateLimiter
	var redisCheck func(ctx context.Context) error
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitWindow, cfg.RateLimitMaxRequests)
		redisCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		slog.Info("rate limiter using redis", slog.String("addr", cfg.RedisAddr))
	} else {
		limiter = ratelimit.NewWindowLimiter(cfg.RateLimitWindow, cfg.RateLimitMaxRequests)
	}

	// Providers
	reg := registry.Default()
	gen := local.New()
	hostedClient := hosted.New(cfg, limiter)
	dispatcher := dispatch.New(reg, gen, hostedClient, limiter)
	if !cfg.HostedEnabled() {
		slog.Warn("no inference api key configured; hosted models will serve local fallbacks")
	}

	// Evaluation engine; rubric load failure falls back to heuristic wording.
	var rubric *eval.Rubric
	if r, err := eval.LoadRubric(cfg.RubricPath); err != nil {
		slog.Warn("rubric unavailable, using heuristic notes",
			slog.String("path", cfg.RubricPath), slog.Any("error", err))
	} else {
		rubric = r
		slog.Info("rubric loaded", slog.String("version", r.Version))
	}
	engine := eval.NewEngine(rubric)

	// Usecases
	submitSvc := usecase.NewSubmitService(store, store, reg, dispatcher, engine, cfg.EvaluateTimeout)
	resultSvc := usecase.NewResultService(store, store)

	// HTTP server
	srv := httpserver.NewServer(cfg, submitSvc, resultSvc, reg, limiter, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
