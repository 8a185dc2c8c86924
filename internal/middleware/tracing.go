package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
)

const tracerName = "github.com/keyxmakerx/roadtothesky/internal/middleware"

// Tracing returns middleware that opens a server span per request, joined
// to the caller's trace when it sends W3C trace context headers. The span
// context is placed on the request so handlers and services nest under it.
func Tracing() echo.MiddlewareFunc {
	tracer := otel.Tracer(tracerName)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			// Join the caller's trace if it sent traceparent headers.
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			// Name spans by route template; unmatched requests fall back to the path.
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", req.Method, route),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("http.route", route),
					attribute.String("campaign_id", c.Param("id")),
				),
			)
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			status := c.Response().Status
			// The error handler has not run yet, so derive the status from err.
			if err != nil {
				span.RecordError(err)
				status = errorStatus(err)
			}
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			// Client errors leave the span status unset.
			if status >= 500 {
				span.SetStatus(codes.Error, "server error")
			}
			return err
		}
	}
}

// errorStatus returns the HTTP status a handler error will be rendered with.
func errorStatus(err error) int {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
