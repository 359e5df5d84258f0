package treatment

import (
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "ACTIVE"
	PrescriptionCompleted PrescriptionStatus = "COMPLETED"
	PrescriptionCancelled PrescriptionStatus = "CANCELLED"
	PrescriptionExpired   PrescriptionStatus = "EXPIRED"
)

var validPrescriptionStatuses = map[PrescriptionStatus]bool{
	PrescriptionActive: true, PrescriptionCompleted: true,
	PrescriptionCancelled: true, PrescriptionExpired: true,
}

type InjectionStatus string

const (
	InjectionScheduled   InjectionStatus = "SCHEDULED"
	InjectionApplied     InjectionStatus = "APPLIED"
	InjectionCancelled   InjectionStatus = "CANCELLED"
	InjectionRescheduled InjectionStatus = "RESCHEDULED"
	InjectionMissed      InjectionStatus = "MISSED"
)

// Terminal reports whether no further transition is allowed.
func (s InjectionStatus) Terminal() bool {
	return s != InjectionScheduled
}

const (
	MaxRefIDLen = 20
	MaxNameLen  = 100
)

const (
	UrgentMaxPriority  = 2
	DefaultUrgentLimit = 20
	MaxUrgentLimit     = 50
)

// Patient owns the per-eye dose counters. For each eye
// Balance = TotalPrescribed - TotalApplied and Balance >= 0.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	RefID             string     `db:"ref_id" json:"ref_id"`
	Name              string     `db:"name" json:"name"`
	BirthDate         *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	BalanceOD         int        `db:"balance_od" json:"balance_od"`
	BalanceOS         int        `db:"balance_os" json:"balance_os"`
	TotalPrescribedOD int        `db:"total_prescribed_od" json:"total_prescribed_od"`
	TotalPrescribedOS int        `db:"total_prescribed_os" json:"total_prescribed_os"`
	TotalAppliedOD    int        `db:"total_applied_od" json:"total_applied_od"`
	TotalAppliedOS    int        `db:"total_applied_os" json:"total_applied_os"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	CreatedByID       *string    `db:"created_by_id" json:"created_by_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Balance is the ledger view of a patient.
type Balance struct {
	PatientID         uuid.UUID `json:"patient_id"`
	BalanceOD         int       `json:"balance_od"`
	BalanceOS         int       `json:"balance_os"`
	TotalPrescribedOD int       `json:"total_prescribed_od"`
	TotalPrescribedOS int       `json:"total_prescribed_os"`
	TotalAppliedOD    int       `json:"total_applied_od"`
	TotalAppliedOS    int       `json:"total_applied_os"`
}

func (p *Patient) Balance() Balance {
	return Balance{
		PatientID:         p.ID,
		BalanceOD:         p.BalanceOD,
		BalanceOS:         p.BalanceOS,
		TotalPrescribedOD: p.TotalPrescribedOD,
		TotalPrescribedOS: p.TotalPrescribedOS,
		TotalAppliedOD:    p.TotalAppliedOD,
		TotalAppliedOS:    p.TotalAppliedOS,
	}
}

// Consistent checks the conservation invariant for both eyes.
func (b Balance) Consistent() bool {
	return b.BalanceOD == b.TotalPrescribedOD-b.TotalAppliedOD &&
		b.BalanceOS == b.TotalPrescribedOS-b.TotalAppliedOS &&
		b.BalanceOD >= 0 && b.BalanceOS >= 0
}

// Delta is a change to the ledger counters. Prescribed quantities add to
// balance, applied quantities subtract from it.
type Delta struct {
	PrescribedOD int
	PrescribedOS int
	AppliedOD    int
	AppliedOS    int
}

func (d Delta) BalanceOD() int { return d.PrescribedOD - d.AppliedOD }
func (d Delta) BalanceOS() int { return d.PrescribedOS - d.AppliedOS }

// Prescription is an immutable record of doses added to a patient's balance.
type Prescription struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	PatientID    uuid.UUID          `db:"patient_id" json:"patient_id"`
	Indication   Choice             `json:"indication"`
	Medication   Choice             `json:"medication"`
	SwalisID     uuid.UUID          `db:"swalis_id" json:"swalis_id"`
	DoctorID     string             `db:"doctor_id" json:"doctor_id"`
	PrescribedOD int                `db:"prescribed_od" json:"prescribed_od"`
	PrescribedOS int                `db:"prescribed_os" json:"prescribed_os"`
	StartWithOD  bool               `db:"start_with_od" json:"start_with_od"`
	Notes        *string            `db:"notes" json:"notes,omitempty"`
	Status       PrescriptionStatus `db:"status" json:"status"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// Injection is one scheduled or performed application.
type Injection struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	PrescriptionID *uuid.UUID      `db:"prescription_id" json:"prescription_id,omitempty"`
	ScheduledDate  time.Time       `db:"scheduled_date" json:"scheduled_date"`
	AppliedDate    *time.Time      `db:"applied_date" json:"applied_date,omitempty"`
	AppliedAt      *time.Time      `db:"applied_at" json:"applied_at,omitempty"`
	InjectionOD    int             `db:"injection_od" json:"injection_od"`
	InjectionOS    int             `db:"injection_os" json:"injection_os"`
	Status         InjectionStatus `db:"status" json:"status"`
	AppliedByID    *string         `db:"applied_by_id" json:"applied_by_id,omitempty"`
	Observations   *string         `db:"observations" json:"observations,omitempty"`
	SideEffects    *string         `db:"side_effects" json:"side_effects,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PatientDetail is a patient with its full history.
type PatientDetail struct {
	*Patient
	Prescriptions []*Prescription `json:"prescriptions"`
	Injections    []*Injection    `json:"injections"`
}
