package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"auv-monitor/internal/auth"
	"auv-monitor/internal/config"
	"auv-monitor/internal/ingest"
	"auv-monitor/internal/store"
	"auv-monitor/internal/stream"
	transporthttp "auv-monitor/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment")
	}
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewPostgresStore(ctx, cfg)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redis, err := store.NewRedisStore(ctx, cfg)
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redis.Close()

	registry := stream.NewRegistry(logger)
	service := ingest.NewService(db, registry, logger)

	handler := transporthttp.NewHandler(cfg, service, db, redis, registry, logger)
	authMW := transporthttp.NewAuthMiddleware(auth.NewAuthenticator(cfg, redis))
	rateMW := transporthttp.NewRateLimitMiddleware(
		redis,
		cfg.RateLimitMax,
		time.Duration(cfg.RateLimitWindowSeconds)*time.Second,
		logger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           transporthttp.NewRouter(handler, authMW, rateMW),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("AUV telemetry monitor listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	registry.Shutdown()
	logger.Info("all streams closed")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
