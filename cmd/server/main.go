// Package main is the entry point for the Road to the Sky calendar server.
// It loads configuration, connects MariaDB and Redis, applies migrations,
// wires the calendar and sync API plugins, and serves HTTP until signalled.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyxmakerx/roadtothesky/internal/app"
	"github.com/keyxmakerx/roadtothesky/internal/config"
	"github.com/keyxmakerx/roadtothesky/internal/database"
	"github.com/keyxmakerx/roadtothesky/internal/telemetry"
)

// shutdownTimeout bounds draining requests and flushing calendar saves.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	slog.Info("starting Road to the Sky",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			slog.Warn("tracer shutdown", slog.Any("error", err))
		}
	}()

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	if _, err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		return err
	}

	// --- Connect to Redis ---
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	slog.Info("connected to Redis")

	// --- Create Application ---
	application := app.New(cfg, db, rdb)
	application.RegisterRoutes()

	// --- Graceful Shutdown ---
	// Drain requests, then flush pending calendar saves before the DB
	// and Redis connections close.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutting down server...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := application.Shutdown(sctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	if err := application.Start(); err != nil {
		return err
	}
	<-shutdownDone
	slog.Info("server stopped")
	return nil
}

// setupLogging configures the global slog logger. Development uses text
// format for readability, everything else JSON for log aggregation.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
