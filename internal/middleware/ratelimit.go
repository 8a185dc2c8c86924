package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// rateLimitEntry tracks request counts for a single IP within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// rateLimiter is a fixed-window counter per client IP.
type rateLimiter struct {
	mu          sync.Mutex
	entries     map[string]*rateLimitEntry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// allow records one request from ip and reports whether it is within the
// limit, along with the requests left and when the window resets.
func (l *rateLimiter) allow(ip string) (bool, int, time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Start a fresh window for new clients and for expired windows.
	entry, ok := l.entries[ip]
	if !ok || now.Sub(entry.windowStart) >= l.window {
		entry = &rateLimitEntry{windowStart: now}
		l.entries[ip] = entry
	}
	entry.count++
	return entry.count <= l.maxRequests, max(l.maxRequests-entry.count, 0), entry.windowStart.Add(l.window)
}

// sweep drops entries whose window ended more than one window ago.
func (l *rateLimiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.entries {
		if now.Sub(entry.windowStart) > l.window*2 {
			delete(l.entries, ip)
		}
	}
}

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window. Exceeding the limit returns 429 with a
// Retry-After header. A non-positive maxRequests disables the limit.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	// Disabled: pass through.
	if maxRequests <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	l := &rateLimiter{
		entries:     make(map[string]*rateLimitEntry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}

	// Background cleanup of expired entries every minute.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			l.sweep()
		}
	}()

	return l.middleware
}

func (l *rateLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok, remaining, resetAt := l.allow(c.RealIP())

		// Limit headers go on every response, allowed or not.
		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.maxRequests))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		// Over the limit: 429 with the seconds until the window resets.
		if !ok {
			retry := int(time.Until(resetAt).Round(time.Second) / time.Second)
			h.Set(echo.HeaderRetryAfter, strconv.Itoa(max(retry, 1)))
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}
