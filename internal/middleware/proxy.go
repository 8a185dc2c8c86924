package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies configures Echo to read the client IP from X-Real-IP or
// X-Forwarded-For, but only when the direct peer is inside trustedCIDRs.
// The sync API's IP allowlist and rate limiter both key on c.RealIP().
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = buildIPExtractor(trustedCIDRs)
}

// buildIPExtractor returns an Echo IPExtractor that trusts forwarding
// headers only from connections originating in trusted CIDRs.
func buildIPExtractor(trustedCIDRs []string) echo.IPExtractor {
	var trusted []*net.IPNet
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		// Skip bad entries rather than failing startup.
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR",
				slog.String("cidr", cidr),
				slog.Any("error", err),
			)
			continue
		}
		trusted = append(trusted, network)
	}

	return func(req *http.Request) string {
		directIP := extractDirectIP(req.RemoteAddr)
		// Untrusted peers could forge the headers; use the socket address.
		if !isTrusted(directIP, trusted) {
			return directIP
		}

		// X-Real-IP wins over X-Forwarded-For.
		if realIP := strings.TrimSpace(req.Header.Get(echo.HeaderXRealIP)); realIP != "" {
			return realIP
		}
		// Leftmost entry is the original client.
		if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
			client, _, _ := strings.Cut(xff, ",")
			if client = strings.TrimSpace(client); client != "" {
				return client
			}
		}
		return directIP
	}
}

// extractDirectIP extracts the IP address from a "host:port" RemoteAddr string.
func extractDirectIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	// No port: RemoteAddr is already a bare address.
	if err != nil {
		return remoteAddr
	}
	return host
}

// isTrusted returns true if the given IP falls within any of the trusted CIDRs.
func isTrusted(ipStr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
