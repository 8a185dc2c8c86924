// Package database opens the MariaDB pool and Redis client the calendar
// engine shares. Both are created once at startup and handed to the
// repositories and the world clock; this package owns open, pool sizing,
// readiness retries and close.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver, registered for database/sql.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/roadtothesky/internal/config"
)

// Readiness retry settings. MariaDB is often still starting when the app
// container comes up under Docker Compose.
const (
	pingAttempts   = 10
	pingTimeout    = 5 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// NewMariaDB opens a MariaDB pool from cfg and waits for it to answer a
// ping. It gives up after pingAttempts or when ctx is cancelled.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitReady(ctx, "mariadb", db.PingContext); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// waitReady calls ping with exponential backoff until it succeeds.
func waitReady(ctx context.Context, name string, ping func(context.Context) error) error {
	backoff := initialBackoff
	var pingErr error

	for attempt := 1; attempt <= pingAttempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		pingErr = ping(pctx)
		cancel()
		if pingErr == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}

		slog.Warn(name+" not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", pingAttempts),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", name, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}

	return fmt.Errorf("pinging %s after %d attempts: %w", name, pingAttempts, pingErr)
}
