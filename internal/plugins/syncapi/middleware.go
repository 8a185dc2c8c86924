package syncapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// keyVerifier checks raw keys against the configured bcrypt hash. The
// digest of the last accepted key is remembered so repeat calls from the
// host skip the bcrypt cost.
type keyVerifier struct {
	hash     []byte
	accepted atomic.Pointer[[sha256.Size]byte]
}

func (v *keyVerifier) verify(rawKey string) bool {
	digest := sha256.Sum256([]byte(rawKey))
	if last := v.accepted.Load(); last != nil && subtle.ConstantTimeCompare(last[:], digest[:]) == 1 {
		return true
	}
	if bcrypt.CompareHashAndPassword(v.hash, []byte(rawKey)) != nil {
		return false
	}
	v.accepted.Store(&digest)
	return true
}

// RequireAPIKey returns middleware that authenticates the host runtime.
// The key comes from "Authorization: Bearer <key>" and is checked against
// keyHash. An empty keyHash disables the key check, which config only
// allows outside production. A non-empty allowedIPs list restricts callers
// to those addresses or CIDRs either way.
func RequireAPIKey(keyHash string, allowedIPs []string) echo.MiddlewareFunc {
	var verifier *keyVerifier
	if keyHash == "" {
		slog.Warn("sync API key not configured, host requests are unauthenticated")
	} else {
		verifier = &keyVerifier{hash: []byte(keyHash)}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if len(allowedIPs) > 0 && !isIPAllowed(ip, allowedIPs) {
				slog.Warn("sync request from disallowed ip",
					slog.String("ip", ip),
					slog.String("path", c.Request().URL.Path),
				)
				return echo.NewHTTPError(http.StatusForbidden, "ip address not allowed")
			}
			if verifier == nil {
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "api key required")
			}
			rawKey, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format, use: Bearer <key>")
			}

			if !verifier.verify(rawKey) {
				slog.Warn("sync api key rejected",
					slog.String("ip", ip),
					slog.String("user_agent", c.Request().UserAgent()),
				)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}
			return next(c)
		}
	}
}

// isIPAllowed checks if an IP is in the allowlist.
// Supports exact match and proper CIDR notation (e.g., "192.168.1.0/24").
func isIPAllowed(ip string, allowlist []string) bool {
	parsedIP := net.ParseIP(ip)
	for _, allowed := range allowlist {
		allowed = strings.TrimSpace(allowed)
		if allowed == ip {
			return true
		}
		if strings.Contains(allowed, "/") {
			_, network, err := net.ParseCIDR(allowed)
			if err == nil && parsedIP != nil && network.Contains(parsedIP) {
				return true
			}
		}
	}
	return false
}
