package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Headers the host runtime sends with calendar requests.
const (
	HeaderRTTSUser = "X-RTTS-User"
	HeaderRTTSRole = "X-RTTS-Role"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests, typically the Foundry VTT servers hosting the calendar.
	// ["*"] allows any origin.
	AllowedOrigins []string
}

// CORS returns middleware that answers cross-origin requests from the host
// runtime's browser clients. Credentials are never allowed: callers
// authenticate with the API key header, not cookies.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	// Build a set for fast origin lookup. Trailing slashes are dropped so
	// configured origins match the browser's Origin header.
	allowAll := false
	originSet := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}
	// No credentials are sent, so a wildcard is allowed but worth a warning.
	if allowAll {
		slog.Warn("CORS allows every origin")
	}

	allowMethods := strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}, ", ")
	allowHeaders := strings.Join([]string{
		echo.HeaderContentType,
		echo.HeaderAuthorization,
		HeaderRTTSUser,
		HeaderRTTSRole,
	}, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get(echo.HeaderOrigin)

			// Same-origin or non-browser caller.
			if origin == "" {
				return next(c)
			}
			if !allowAll && !originSet[origin] {
				// The browser blocks the response client side.
				return next(c)
			}

			// Echo the allowed origin; Vary keeps caches per origin.
			res.Header().Set(echo.HeaderAccessControlAllowOrigin, origin)
			res.Header().Add(echo.HeaderVary, echo.HeaderOrigin)

			// Preflight: answer directly, never reach the handler.
			if req.Method == http.MethodOptions {
				res.Header().Set(echo.HeaderAccessControlAllowMethods, allowMethods)
				res.Header().Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
				res.Header().Set(echo.HeaderAccessControlMaxAge, "3600")
				return c.NoContent(http.StatusNoContent)
			}

			// Let the browser module read download names and limit headers.
			res.Header().Set(echo.HeaderAccessControlExposeHeaders,
				"Content-Disposition, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
			return next(c)
		}
	}
}
