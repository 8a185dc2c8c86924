// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, Echo instance)
// and wires the calendar and sync API plugins together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
	"github.com/keyxmakerx/roadtothesky/internal/config"
	"github.com/keyxmakerx/roadtothesky/internal/middleware"
	"github.com/keyxmakerx/roadtothesky/internal/plugins/calendar"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool holding calendar snapshots.
	DB *sql.DB

	// Redis holds world clocks and carries date change events.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Calendar is set by RegisterRoutes; Shutdown flushes its pending saves.
	Calendar calendar.CalendarService
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() feeds the sync API's IP allowlist and rate limiter.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery: converts panics into a 500 AppError.
	a.Echo.Use(middleware.Recovery())

	// Request logging: one structured line per request, after the error
	// handler has written the final status.
	a.Echo.Use(middleware.RequestLogger())

	// Tracing: server span per request, joined to the caller's trace.
	a.Echo.Use(middleware.Tracing())

	// Security headers: CSP, HSTS, nosniff, no framing, no caching.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS: lets the Foundry browser module call the API cross-origin.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: a.Config.AllowedOrigins(),
	}))
}

// errorResponse is the JSON body of every error response.
type errorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// errorHandler is the custom Echo error handler. Every client of this
// server is the host runtime or its browser module, so errors are always
// JSON: AppErrors keep their code and message, Echo's own errors (404 from
// the router, 429 from the rate limiter) keep theirs, anything else is a
// logged 500.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	resp := errorResponse{}
	code := http.StatusInternalServerError

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	// Domain errors carry their own status and safe message.
	case errors.As(err, &appErr):
		code = appErr.Code
		resp.Type = appErr.Type
		resp.Message = appErr.Message
		// Only the wrapped cause is logged; the client sees Message.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	// Router 404/405 and rate limiter 429.
	case errors.As(err, &echoErr):
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			resp.Message = msg
		} else {
			resp.Message = defaultErrorMessage(code)
		}
	// Anything else is a bug: log it, hide it.
	default:
		resp.Message = defaultErrorMessage(code)
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}
	resp.Error = http.StatusText(code)

	// HEAD responses must not carry a body.
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		slog.Error("writing error response", slog.Any("error", err))
	}
}

// defaultErrorMessage returns a message for common HTTP status codes when
// the error carried none.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "A valid API key is required."
	case http.StatusForbidden:
		return "You don't have permission to change this calendar."
	case http.StatusNotFound:
		return "No such resource."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "Too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// Start begins listening for HTTP requests on the configured port. It
// returns nil once Shutdown has stopped the server.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Road to the Sky calendar server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	// ErrServerClosed is the normal result of Shutdown.
	if err := a.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains in-flight ones, then waits for
// the calendar's background saves so no date change is lost.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	// Stop the listener first so no new change can queue a save.
	if err := a.Echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	// Calendar is nil when routes were never registered.
	if a.Calendar != nil {
		if err := a.Calendar.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
