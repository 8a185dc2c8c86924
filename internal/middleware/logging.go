// Package middleware provides the HTTP middleware shared by the calendar
// and sync API routes. Global middleware is registered in
// internal/app/app.go; per-group middleware by each plugin's routes.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, remote IP, and the
// trace ID when the request is traced.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			// Base fields for every request.
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			// Optional fields, only when present.
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}
			if user := req.Header.Get(HeaderRTTSUser); user != "" {
				attrs = append(attrs, slog.String("user_id", user))
			}
			if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
				attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
			}

			// 5xx as error, 4xx as warn, everything else info.
			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}
			slog.LogAttrs(req.Context(), level, "request", attrs...)

			// The error was already handled above.
			return nil
		}
	}
}
