package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Indication is a clinical condition that justifies a prescription.
type Indication struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Medication is an anti-VEGF drug offered on the prescription form.
type Medication struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	Name            string    `db:"name" json:"name"`
	ActiveSubstance string    `db:"active_substance" json:"active_substance"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Swalis is a triage classification; Priority 1 is the most urgent.
type Swalis struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Priority    int       `db:"priority" json:"priority"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const (
	MaxIndicationCode = 10
	MaxMedicationCode = 20
	MaxSwalisCode     = 5
	MaxNameLen        = 100
	MaxSwalisNameLen  = 50
	MaxSwalisDescLen  = 200
	MaxSubstanceLen   = 100
	MinSwalisPriority = 1
	MaxSwalisPriority = 10
)
