package dashboard

import (
	"context"

	"github.com/google/uuid"

	"github.com/leonunesbs/injecoes-v2/internal/domain/catalog"
)

// Repository performs the narrow reads the reports are built from. None of
// its methods write.
type Repository interface {
	Counts(ctx context.Context) (Counts, error)
	// ActivePatients is ordered by creation time.
	ActivePatients(ctx context.Context) ([]PatientFacts, error)
	// Prescriptions is ordered by creation time and includes prescriptions
	// of inactive patients.
	Prescriptions(ctx context.Context) ([]PrescriptionFacts, error)
	// AppliedDoses is ordered by patient, then application date.
	AppliedDoses(ctx context.Context) ([]AppliedDose, error)
	CountInjections(ctx context.Context, f InjectionFilter) (int, error)
}

// CatalogReader is the part of catalog.Service the reports need.
type CatalogReader interface {
	ListIndications(ctx context.Context) ([]*catalog.Indication, error)
	ListMedications(ctx context.Context) ([]*catalog.Medication, error)
	ListSwalis(ctx context.Context) ([]*catalog.Swalis, error)
}

// catalogIndex resolves ids from a prescription against the catalogue,
// including inactive entries.
type catalogIndex struct {
	indicationList []*catalog.Indication
	indications    map[uuid.UUID]*catalog.Indication
	medications    map[uuid.UUID]*catalog.Medication
	swalis         map[uuid.UUID]*catalog.Swalis
}

func newCatalogIndex(ind []*catalog.Indication, med []*catalog.Medication, sw []*catalog.Swalis) *catalogIndex {
	idx := &catalogIndex{
		indicationList: ind,
		indications:    make(map[uuid.UUID]*catalog.Indication, len(ind)),
		medications:    make(map[uuid.UUID]*catalog.Medication, len(med)),
		swalis:         make(map[uuid.UUID]*catalog.Swalis, len(sw)),
	}
	for _, i := range ind {
		idx.indications[i.ID] = i
	}
	for _, m := range med {
		idx.medications[m.ID] = m
	}
	for _, s := range sw {
		idx.swalis[s.ID] = s
	}
	return idx
}

// activeSwalis resolves id for the distribution aggregates, which only
// report classes still in use. Inactive classes come back nil and are
// grouped as unknown.
func (idx *catalogIndex) activeSwalis(id uuid.UUID) *catalog.Swalis {
	if sw := idx.swalis[id]; sw != nil && sw.IsActive {
		return sw
	}
	return nil
}
