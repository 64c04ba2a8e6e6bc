package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/api"
	"github.com/Harshitk-cp/docrelay/internal/buildconfig"
	"github.com/Harshitk-cp/docrelay/internal/config"
	"github.com/Harshitk-cp/docrelay/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(config.LogLevel()); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	logger.Info("starting docrelay",
		zap.String("version", buildconfig.Version()),
		zap.String("commit", buildconfig.Commit()))

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	if err := store.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	app, err := api.NewApp(pool, logger)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}
	defer app.Close()

	app.Sweeper.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	app.Sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
