package catalog

import (
	"context"

	"github.com/google/uuid"
)

type IndicationRepository interface {
	Create(ctx context.Context, i *Indication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Indication, error)
	Update(ctx context.Context, i *Indication) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*Indication, error)
	// InsertIfMissing creates i unless its code exists; reports whether a row was added.
	InsertIfMissing(ctx context.Context, i *Indication) (bool, error)
}

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*Medication, error)
	InsertIfMissing(ctx context.Context, m *Medication) (bool, error)
}

type SwalisRepository interface {
	Create(ctx context.Context, s *Swalis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Swalis, error)
	Update(ctx context.Context, s *Swalis) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*Swalis, error)
	InsertIfMissing(ctx context.Context, s *Swalis) (bool, error)
}
