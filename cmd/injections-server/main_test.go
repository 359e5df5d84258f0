package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/leonunesbs/injecoes-v2/internal/config"
	"github.com/leonunesbs/injecoes-v2/internal/platform/db"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:            env,
		LogLevel:       "info",
		AuthIssuer:     "https://auth.example.com",
		AuthSigningKey: "test-secret",
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 200,
		BusinessTZ:     "America/Sao_Paulo",
		IdempotencyTTL: time.Hour,
	}
}

func serve(t *testing.T, cfg *config.Config, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	e, err := newServer(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewServer_Routes(t *testing.T) {
	e, err := newServer(testConfig("production"), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /health",
		"GET /health/db",
		"GET /metrics",
		"POST /api/v1/prescriptions",
		"GET /api/v1/prescriptions/:id",
		"DELETE /api/v1/prescriptions/:id",
		"GET /api/v1/patients/:id/balance",
		"POST /api/v1/injections/:id/apply",
		"POST /api/v1/injections/:id/reschedule",
		"GET /api/v1/dashboard/clinical-profile",
		"GET /api/v1/dashboard/quantitative",
		"GET /api/v1/dashboard/dose-intervals",
		"GET /api/v1/dashboard/ranking",
		"GET /api/v1/dashboard/due-injections",
		"GET /api/v1/dashboard/stats",
		"GET /api/v1/settings/indications",
		"POST /api/v1/settings/swalis",
	}
	for _, r := range want {
		if !registered[r] {
			t.Errorf("route %q not registered", r)
		}
	}
}

func TestNewServer_HealthIsPublic(t *testing.T) {
	rec := serve(t, testConfig("production"), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on the response")
	}
}

func TestNewServer_MetricsIsPublic(t *testing.T) {
	rec := serve(t, testConfig("production"), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNewServer_APIRequiresToken(t *testing.T) {
	rec := serve(t, testConfig("production"), http.MethodGet, "/api/v1/patients")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestNewServer_DevModeAuthenticates(t *testing.T) {
	// The bad sort key is rejected before any query runs.
	rec := serve(t, testConfig("development"), http.MethodGet, "/api/v1/dashboard/ranking?sort_by=name")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewServer_InvalidTimezone(t *testing.T) {
	cfg := testConfig("production")
	cfg.BusinessTZ = "Mars/Olympus_Mons"
	if _, err := newServer(cfg, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig("production")

	cfg.LogLevel = "debug"
	if got := newLogger(cfg).GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("expected debug, got %s", got)
	}

	cfg.LogLevel = "loud"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %s", got)
	}
}

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printStatus(cmd, []db.MigrationStatus{
		{Version: 1, Name: "initial", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "indexes"},
	})

	out := buf.String()
	if !strings.Contains(out, "2024-05-01 08:30:00") {
		t.Errorf("missing applied timestamp in %q", out)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("missing pending row in %q", out)
	}
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range []*cobra.Command{serveCmd(), migrateCmd(), seedCmd()} {
		names[c.Name()] = true
	}
	for _, n := range []string{"serve", "migrate", "seed"} {
		if !names[n] {
			t.Errorf("missing command %q", n)
		}
	}

	sub := map[string]bool{}
	for _, c := range migrateCmd().Commands() {
		sub[c.Name()] = true
	}
	if !sub["up"] || !sub["status"] {
		t.Errorf("migrate subcommands = %v", sub)
	}
}
