package treatment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PatientRef addresses a patient by its human reference id, creating the
// patient on first use.
type PatientRef struct {
	RefID     string     `json:"ref_id"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// PatientFilter selects patients for the triage queue. The catalogue
// filters and MaxPriority match against each patient's latest
// prescription; MaxPriority 0 disables the priority bound, which also
// excludes inactive Swalis classes when set.
type PatientFilter struct {
	Search          string
	IncludeInactive bool
	SwalisID        *uuid.UUID
	IndicationID    *uuid.UUID
	MedicationID    *uuid.UUID
	MaxPriority     int
}

type PatientRepository interface {
	// EnsureByRefID returns the patient with ref.RefID, inserting it with
	// zero counters if absent. Concurrent callers converge on one row.
	EnsureByRefID(ctx context.Context, ref PatientRef, createdBy string) (*Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// List orders by the latest prescription's Swalis priority (patients
	// without one last), then by patient age, oldest first.
	List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error)
	UpdateInfo(ctx context.Context, p *Patient) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// ApplyDelta adjusts the counters atomically. It fails with a conflict
	// naming the eye when the resulting balance would be negative, leaving
	// the row untouched.
	ApplyDelta(ctx context.Context, id uuid.UUID, d Delta) (*Patient, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type InjectionRepository interface {
	Create(ctx context.Context, inj *Injection) error
	GetByID(ctx context.Context, id uuid.UUID) (*Injection, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Injection, error)
	Update(ctx context.Context, inj *Injection) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Injection, error)
}
