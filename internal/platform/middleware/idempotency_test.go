package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
)

func idempotentHandler(store IdempotencyStore, calls *int, status int) echo.HandlerFunc {
	return Idempotency(store)(func(c echo.Context) error {
		*calls++
		c.Response().Header().Set("X-Call", "1")
		return c.JSON(status, map[string]int{"call": *calls})
	})
}

func post(path, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	e := echo.New()
	calls := 0
	h := idempotentHandler(NewMemoryIdempotencyStore(time.Hour), &calls, http.StatusCreated)

	first := httptest.NewRecorder()
	if err := h(e.NewContext(post("/api/v1/prescriptions", "k1"), first)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := httptest.NewRecorder()
	if err := h(e.NewContext(post("/api/v1/prescriptions", "k1"), second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay differs: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get(IdempotencyReplayedHeader) != "true" {
		t.Error("expected replay header")
	}
	if first.Header().Get("X-Call") != "1" {
		t.Error("expected handler headers on the original response")
	}
}

func TestIdempotency_NoKeyOrReadPassesThrough(t *testing.T) {
	e := echo.New()
	calls := 0
	h := idempotentHandler(NewMemoryIdempotencyStore(time.Hour), &calls, http.StatusOK)

	h(e.NewContext(post("/x", ""), httptest.NewRecorder()))
	h(e.NewContext(post("/x", ""), httptest.NewRecorder()))

	get := httptest.NewRequest(http.MethodGet, "/x", nil)
	get.Header.Set(IdempotencyHeader, "k")
	h(e.NewContext(get, httptest.NewRecorder()))
	h(e.NewContext(get, httptest.NewRecorder()))

	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestIdempotency_KeyReusedOnOtherPath(t *testing.T) {
	e := echo.New()
	calls := 0
	h := idempotentHandler(NewMemoryIdempotencyStore(time.Hour), &calls, http.StatusCreated)

	h(e.NewContext(post("/api/v1/prescriptions", "k1"), httptest.NewRecorder()))
	err := h(e.NewContext(post("/api/v1/injections", "k1"), httptest.NewRecorder()))

	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestIdempotency_ErrorsAreNotCached(t *testing.T) {
	e := echo.New()
	calls := 0
	h := Idempotency(NewMemoryIdempotencyStore(time.Hour))(func(c echo.Context) error {
		calls++
		if calls == 1 {
			return echo.NewHTTPError(http.StatusConflict, "insufficient balance")
		}
		return c.NoContent(http.StatusCreated)
	})

	if err := h(e.NewContext(post("/apply", "k"), httptest.NewRecorder())); err == nil {
		t.Fatal("expected first call to fail")
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(post("/apply", "k"), rec)); err != nil {
		t.Fatalf("retry should run again: %v", err)
	}
	if calls != 2 || rec.Code != http.StatusCreated {
		t.Errorf("expected retry to execute, calls=%d code=%d", calls, rec.Code)
	}
}

func TestIdempotency_ConcurrentDuplicateInFlight(t *testing.T) {
	e := echo.New()
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	h := Idempotency(NewMemoryIdempotencyStore(time.Hour))(func(c echo.Context) error {
		calls.Add(1)
		close(entered)
		<-release
		return c.JSON(http.StatusCreated, map[string]string{"id": "p1"})
	})

	first := httptest.NewRecorder()
	done := make(chan error, 1)
	go func() {
		done <- h(e.NewContext(post("/api/v1/prescriptions", "k1"), first))
	}()
	<-entered

	err := h(e.NewContext(post("/api/v1/prescriptions", "k1"), httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while the first request runs, got %v", err)
	}
	if body, _ := httpErr.Message.(apperror.Body); body.Code != "idempotency_key_in_progress" {
		t.Errorf("unexpected error body %+v", httpErr.Message)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first request: %v", err)
	}
	if first.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	if err := h(e.NewContext(post("/api/v1/prescriptions", "k1"), replay)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Header().Get(IdempotencyReplayedHeader) != "true" || replay.Body.String() != first.Body.String() {
		t.Errorf("expected stored response to replay, got %d %q", replay.Code, replay.Body.String())
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected handler to run once, ran %d times", n)
	}
}

func TestIdempotency_NonSuccessReleasesKey(t *testing.T) {
	e := echo.New()
	calls := 0
	h := Idempotency(NewMemoryIdempotencyStore(time.Hour))(func(c echo.Context) error {
		calls++
		if calls == 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"code": "validation"})
		}
		return c.NoContent(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	if err := h(e.NewContext(post("/apply", "k"), first)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", first.Code)
	}
	retry := httptest.NewRecorder()
	if err := h(e.NewContext(post("/apply", "k"), retry)); err != nil {
		t.Fatalf("retry should run again: %v", err)
	}
	if calls != 2 || retry.Code != http.StatusCreated {
		t.Errorf("expected retry to execute, calls=%d code=%d", calls, retry.Code)
	}
}

func TestMemoryIdempotencyStore_Reserve(t *testing.T) {
	s := NewMemoryIdempotencyStore(time.Minute)

	if _, ok := s.Reserve("k", http.MethodPost, "/x"); !ok {
		t.Fatal("expected first reservation to succeed")
	}
	held, ok := s.Reserve("k", http.MethodPost, "/x")
	if ok || held == nil || !held.InFlight {
		t.Fatalf("expected in-flight entry, got %+v reserved=%v", held, ok)
	}

	s.Release("k")
	if _, ok := s.Reserve("k", http.MethodPost, "/x"); !ok {
		t.Fatal("expected reservation after release")
	}

	s.Set("k", &IdempotencyEntry{Method: http.MethodPost, Path: "/x", StatusCode: 201})
	s.Release("k")
	done, ok := s.Reserve("k", http.MethodPost, "/x")
	if ok || done.InFlight || done.StatusCode != 201 {
		t.Errorf("release must keep a completed entry, got %+v reserved=%v", done, ok)
	}
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	s := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Set("k", &IdempotencyEntry{Method: http.MethodPost, Path: "/x", StatusCode: 201, Body: []byte("a")})
	if _, ok := s.Get("k"); !ok {
		t.Fatal("expected entry before expiry")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := s.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}
