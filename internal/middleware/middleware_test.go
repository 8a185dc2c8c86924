package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
)

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &rateLimiter{
		entries:     make(map[string]*rateLimitEntry),
		maxRequests: 2,
		window:      time.Minute,
		now:         func() time.Time { return now },
	}

	for i, want := range []bool{true, true, false} {
		ok, _, _ := l.allow("10.0.0.1")
		if ok != want {
			t.Errorf("request %d: allowed = %v, want %v", i+1, ok, want)
		}
	}
	if ok, remaining, _ := l.allow("10.0.0.2"); !ok || remaining != 1 {
		t.Errorf("second client: ok=%v remaining=%d", ok, remaining)
	}

	now = now.Add(time.Minute)
	if ok, _, _ := l.allow("10.0.0.1"); !ok {
		t.Error("window did not reset")
	}

	now = now.Add(5 * time.Minute)
	l.sweep()
	if len(l.entries) != 0 {
		t.Errorf("sweep left %d entries", len(l.entries))
	}
}

func TestRateLimit_Headers(t *testing.T) {
	e := echo.New()
	h := RateLimit(1, time.Minute)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("remaining = %q", rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec = httptest.NewRecorder()
	err := h(e.NewContext(req, rec))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: %v", err)
	}
	if rec.Header().Get(echo.HeaderRetryAfter) == "" {
		t.Error("missing Retry-After")
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	e := echo.New()
	h := RateLimit(0, time.Minute)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for range 5 {
		if err := h(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestTrustedProxies(t *testing.T) {
	extract := buildIPExtractor([]string{"10.0.0.0/8", "not-a-cidr"})

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct client", "203.0.113.5:4000", map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.5"},
		{"real ip from proxy", "10.0.0.2:4000", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"forwarded for from proxy", "10.0.0.2:4000", map[string]string{"X-Forwarded-For": "198.51.100.8, 10.0.0.3"}, "198.51.100.8"},
		{"proxy without headers", "10.0.0.2:4000", nil, "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := extract(req); got != tt.want {
				t.Errorf("ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	e := echo.New()
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://vtt.example.com/"}})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/campaigns/c/calendar", nil)
	req.Header.Set(echo.HeaderOrigin, "https://vtt.example.com")
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "https://vtt.example.com" {
		t.Errorf("allow origin = %q", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowCredentials) != "" {
		t.Error("credentials must not be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example.com")
	rec = httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Error("unknown origin was allowed")
	}
}

func TestRecovery(t *testing.T) {
	e := echo.New()
	h := Recovery()(func(echo.Context) error { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err := h(e.NewContext(req, httptest.NewRecorder()))
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v", err)
	}
}

func TestTracing_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperror.NewForbidden("no"), http.StatusForbidden},
		{echo.NewHTTPError(http.StatusTooManyRequests), http.StatusTooManyRequests},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestTracing_PassesThrough(t *testing.T) {
	e := echo.New()
	h := Tracing()(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	if err := SecurityHeaders()(okHandler)(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get(echo.HeaderXFrameOptions) != "DENY" || rec.Header().Get(echo.HeaderXContentTypeOptions) != "nosniff" {
		t.Errorf("headers = %v", rec.Header())
	}
}
