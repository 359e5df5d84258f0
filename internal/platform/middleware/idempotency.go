package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/auth"
)

const (
	IdempotencyHeader         = "Idempotency-Key"
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"
	DefaultIdempotencyTTL     = 24 * time.Hour
)

// IdempotencyEntry is a cached response for a write request. An entry with
// InFlight set is a reservation held while the first request still runs.
type IdempotencyEntry struct {
	Method     string
	Path       string
	StatusCode int
	Headers    http.Header
	Body       []byte
	ExpiresAt  time.Time
	InFlight   bool
}

// IdempotencyStore persists cached responses. Implementations must be safe
// for concurrent use.
type IdempotencyStore interface {
	// Reserve marks key in flight for method and path and reports true, or
	// returns the live entry already held under key.
	Reserve(key, method, path string) (*IdempotencyEntry, bool)
	Set(key string, entry *IdempotencyEntry)
	Release(key string)
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*IdempotencyEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &MemoryIdempotencyStore{
		entries: make(map[string]*IdempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) Get(key string) (*IdempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

func (s *MemoryIdempotencyStore) Reserve(key, method, path string) (*IdempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(key); ok {
		return e.clone(), false
	}
	s.entries[key] = &IdempotencyEntry{
		Method:    method,
		Path:      path,
		ExpiresAt: s.now().Add(s.ttl),
		InFlight:  true,
	}
	return nil, true
}

// Set stores entry and evicts expired ones.
func (s *MemoryIdempotencyStore) Set(key string, entry *IdempotencyEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.ExpiresAt) {
			delete(s.entries, k)
		}
	}
	cp := entry.clone()
	if cp.ExpiresAt.IsZero() {
		cp.ExpiresAt = now.Add(s.ttl)
	}
	s.entries[key] = cp
}

// Release drops an in-flight reservation. Completed entries are kept.
func (s *MemoryIdempotencyStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.InFlight {
		delete(s.entries, key)
	}
}

// live must be called with mu held.
func (s *MemoryIdempotencyStore) live(key string) (*IdempotencyEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().After(e.ExpiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e, true
}

func (e *IdempotencyEntry) clone() *IdempotencyEntry {
	cp := *e
	cp.Headers = e.Headers.Clone()
	cp.Body = append([]byte(nil), e.Body...)
	return &cp
}

// Idempotency replays the stored response when a POST, PUT or PATCH repeats
// an Idempotency-Key the same caller already used. Keys are scoped per user.
// The key is reserved before the handler runs, so a duplicate arriving while
// the first request is still in flight gets 409. Only successful responses
// are stored; a rejected request releases the key and can be retried.
func Idempotency(store IdempotencyStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			method := req.Method
			if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
				return next(c)
			}
			key := req.Header.Get(IdempotencyHeader)
			if key == "" {
				return next(c)
			}
			key = auth.UserIDFromContext(req.Context()) + ":" + key
			path := req.URL.Path

			if cached, reserved := store.Reserve(key, method, path); !reserved {
				if cached.Method != method || cached.Path != path {
					return echo.NewHTTPError(http.StatusUnprocessableEntity, apperror.Body{
						Code:    "idempotency_key_reused",
						Message: "idempotency key was already used for a different operation",
					})
				}
				if cached.InFlight {
					return echo.NewHTTPError(http.StatusConflict, apperror.Body{
						Code:    "idempotency_key_in_progress",
						Message: "a request with this idempotency key is still being processed",
					})
				}
				resp := c.Response()
				for k, vals := range cached.Headers {
					for _, v := range vals {
						resp.Header().Add(k, v)
					}
				}
				resp.Header().Set(IdempotencyReplayedHeader, "true")
				resp.WriteHeader(cached.StatusCode)
				_, err := resp.Write(cached.Body)
				return err
			}

			stored := false
			defer func() {
				if !stored {
					store.Release(key)
				}
			}()

			origWriter := c.Response().Writer
			rec := &idempotencyRecorder{
				ResponseWriter: origWriter,
				body:           &bytes.Buffer{},
				statusCode:     http.StatusOK,
				headers:        make(http.Header),
			}
			c.Response().Writer = rec

			err := next(c)
			c.Response().Writer = origWriter
			if err != nil {
				return err
			}

			if rec.statusCode >= 200 && rec.statusCode < 300 {
				store.Set(key, &IdempotencyEntry{
					Method:     method,
					Path:       path,
					StatusCode: rec.statusCode,
					Headers:    rec.headers.Clone(),
					Body:       rec.body.Bytes(),
				})
				stored = true
			}

			for k, vals := range rec.headers {
				for _, v := range vals {
					origWriter.Header().Add(k, v)
				}
			}
			origWriter.WriteHeader(rec.statusCode)
			_, err = origWriter.Write(rec.body.Bytes())
			return err
		}
	}
}

// idempotencyRecorder buffers the status, headers and body written by the
// downstream handler.
type idempotencyRecorder struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	headers    http.Header
	wroteHead  bool
}

func (r *idempotencyRecorder) Header() http.Header {
	return r.headers
}

func (r *idempotencyRecorder) WriteHeader(code int) {
	if r.wroteHead {
		return
	}
	r.statusCode = code
	r.wroteHead = true
}

func (r *idempotencyRecorder) Write(b []byte) (int, error) {
	if !r.wroteHead {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}
