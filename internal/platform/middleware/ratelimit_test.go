package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/leonunesbs/injecoes-v2/internal/platform/auth"
)

func limitedHandler(cfg RateLimitConfig) echo.HandlerFunc {
	return RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, rec.Header().Get("X-RateLimit-Limit"))
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		if err := handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	rec := httptest.NewRecorder()
	err := handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.Code)
	}
	retry, convErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if convErr != nil || retry < 1 {
		t.Errorf("expected positive Retry-After, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_SeparateKeysPerUser(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	for _, user := range []string{"doctor-1", "nurse-1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUser(req.Context(), user, nil))
		if err := handler(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Errorf("%s: expected own bucket, got %v", user, err)
		}
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(RateLimitConfig{})
	for i := 0; i < 50; i++ {
		if err := handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())); err != nil {
			t.Fatalf("request %d: expected no limiting, got %v", i+1, err)
		}
	}
}

func TestLimiterStore_EvictsIdle(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	s := newLimiterStore(cfg)
	start := s.lastSweep

	s.get("a", start)
	s.get("b", start)
	if s.size() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.size())
	}

	s.get("c", start.Add(cfg.IdleTTL+1))
	if s.size() != 1 {
		t.Errorf("expected idle keys evicted, got %d entries", s.size())
	}
}
