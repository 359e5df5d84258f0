//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/leonunesbs/injecoes-v2/internal/domain/catalog"
	"github.com/leonunesbs/injecoes-v2/internal/domain/dashboard"
	"github.com/leonunesbs/injecoes-v2/internal/domain/treatment"
	"github.com/leonunesbs/injecoes-v2/internal/platform/db"
)

// globalPool is migrated and seeded once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, cleanup, err := setupDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupDatabase(ctx context.Context) (*pgxpool.Pool, func(), error) {
	connStr, stop, err := startPostgres(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: connStr, MaxConns: 10, MinConns: 1}, zerolog.Nop())
	if err != nil {
		stop()
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		stop()
	}

	if _, err := db.NewMigrator(pool, os.DirFS(findMigrationsDir())).Up(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := newCatalog(pool).Seed(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("seed: %w", err)
	}
	return pool, cleanup, nil
}

// findMigrationsDir locates the migrations directory relative to this file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

func newCatalog(pool *pgxpool.Pool) *catalog.Service {
	return catalog.NewService(
		catalog.NewIndicationRepoPG(pool),
		catalog.NewMedicationRepoPG(pool),
		catalog.NewSwalisRepoPG(pool),
		zerolog.Nop(),
	)
}

type services struct {
	catalog   *catalog.Service
	ledger    *treatment.Service
	dashboard *dashboard.Service
}

// newServices truncates the ledger tables and wires fresh services over
// the shared pool. The seeded catalogue is kept.
func newServices(t *testing.T) *services {
	t.Helper()
	ctx := context.Background()
	if _, err := globalPool.Exec(ctx, "TRUNCATE injection, prescription, patient CASCADE"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	cat := newCatalog(globalPool)
	return &services{
		catalog: cat,
		ledger: treatment.NewService(
			treatment.NewPatientRepoPG(globalPool),
			treatment.NewPrescriptionRepoPG(globalPool),
			treatment.NewInjectionRepoPG(globalPool),
			cat,
			db.NewRunner(globalPool),
			zerolog.Nop(),
		),
		dashboard: dashboard.NewService(dashboard.NewRepoPG(globalPool), cat, time.UTC, zerolog.Nop()),
	}
}

// seeded picks the first active indication, medication and Swalis class.
func (s *services) seeded(t *testing.T) (*catalog.Indication, *catalog.Medication, *catalog.Swalis) {
	t.Helper()
	ctx := context.Background()
	inds, err := s.catalog.ListActiveIndications(ctx)
	if err != nil || len(inds) == 0 {
		t.Fatalf("list indications: %v (%d)", err, len(inds))
	}
	meds, err := s.catalog.ListActiveMedications(ctx)
	if err != nil || len(meds) == 0 {
		t.Fatalf("list medications: %v (%d)", err, len(meds))
	}
	sws, err := s.catalog.ListActiveSwalis(ctx)
	if err != nil || len(sws) == 0 {
		t.Fatalf("list swalis: %v (%d)", err, len(sws))
	}
	return inds[0], meds[0], sws[0]
}

// prescribe records a catalogue prescription for the patient with refID,
// creating the patient on first use.
func (s *services) prescribe(t *testing.T, refID string, rightEye, leftEye int) *treatment.Prescription {
	t.Helper()
	ind, med, sw := s.seeded(t)
	p, err := s.ledger.CreatePrescription(context.Background(), treatment.CreatePrescriptionInput{
		Patient:      &treatment.PatientRef{RefID: refID, Name: "Paciente " + refID},
		IndicationID: &ind.ID,
		MedicationID: &med.ID,
		SwalisID:     sw.ID,
		PrescribedOD: rightEye,
		PrescribedOS: leftEye,
		StartWithOD:  true,
	}, "doctor-1")
	if err != nil {
		t.Fatalf("create prescription: %v", err)
	}
	return p
}

func (s *services) schedule(t *testing.T, p *treatment.Prescription, at time.Time, rightEye, leftEye int) *treatment.Injection {
	t.Helper()
	inj, err := s.ledger.ScheduleInjection(context.Background(), treatment.ScheduleInjectionInput{
		PatientID:      p.PatientID,
		PrescriptionID: &p.ID,
		ScheduledDate:  at,
		InjectionOD:    rightEye,
		InjectionOS:    leftEye,
	})
	if err != nil {
		t.Fatalf("schedule injection: %v", err)
	}
	return inj
}
