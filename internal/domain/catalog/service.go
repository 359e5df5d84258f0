package catalog

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
)

type Service struct {
	indications IndicationRepository
	medications MedicationRepository
	swalis      SwalisRepository
	logger      zerolog.Logger
}

func NewService(ind IndicationRepository, med MedicationRepository, sw SwalisRepository, logger zerolog.Logger) *Service {
	return &Service{
		indications: ind,
		medications: med,
		swalis:      sw,
		logger:      logger.With().Str("component", "catalog").Logger(),
	}
}

func checkText(field, value string, max int, required bool) error {
	if required && value == "" {
		return apperror.Validation(field, "%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return apperror.Validation(field, "%s must be at most %d characters", field, max)
	}
	return nil
}

// -- Indication --

func validateIndication(i *Indication) error {
	i.Code = strings.TrimSpace(i.Code)
	i.Name = strings.TrimSpace(i.Name)
	if err := checkText("code", i.Code, MaxIndicationCode, true); err != nil {
		return err
	}
	return checkText("name", i.Name, MaxNameLen, true)
}

func (s *Service) CreateIndication(ctx context.Context, i *Indication) error {
	if err := validateIndication(i); err != nil {
		return err
	}
	return s.indications.Create(ctx, i)
}

func (s *Service) GetIndication(ctx context.Context, id uuid.UUID) (*Indication, error) {
	return s.indications.GetByID(ctx, id)
}

func (s *Service) UpdateIndication(ctx context.Context, i *Indication) error {
	if err := validateIndication(i); err != nil {
		return err
	}
	return s.indications.Update(ctx, i)
}

func (s *Service) DeleteIndication(ctx context.Context, id uuid.UUID) error {
	return s.indications.Delete(ctx, id)
}

// ListIndications returns every indication ordered by code.
func (s *Service) ListIndications(ctx context.Context) ([]*Indication, error) {
	return s.indications.List(ctx, false)
}

// ListActiveIndications returns the picker list ordered by name.
func (s *Service) ListActiveIndications(ctx context.Context) ([]*Indication, error) {
	return s.indications.List(ctx, true)
}

// -- Medication --

func validateMedication(m *Medication) error {
	m.Code = strings.TrimSpace(m.Code)
	m.Name = strings.TrimSpace(m.Name)
	m.ActiveSubstance = strings.TrimSpace(m.ActiveSubstance)
	if err := checkText("code", m.Code, MaxMedicationCode, true); err != nil {
		return err
	}
	if err := checkText("name", m.Name, MaxNameLen, true); err != nil {
		return err
	}
	return checkText("active_substance", m.ActiveSubstance, MaxSubstanceLen, true)
}

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if err := validateMedication(m); err != nil {
		return err
	}
	return s.medications.Create(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if err := validateMedication(m); err != nil {
		return err
	}
	return s.medications.Update(ctx, m)
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	return s.medications.Delete(ctx, id)
}

func (s *Service) ListMedications(ctx context.Context) ([]*Medication, error) {
	return s.medications.List(ctx, false)
}

func (s *Service) ListActiveMedications(ctx context.Context) ([]*Medication, error) {
	return s.medications.List(ctx, true)
}

// -- Swalis --

func validateSwalis(sw *Swalis) error {
	sw.Code = strings.TrimSpace(sw.Code)
	sw.Name = strings.TrimSpace(sw.Name)
	sw.Description = strings.TrimSpace(sw.Description)
	if err := checkText("code", sw.Code, MaxSwalisCode, true); err != nil {
		return err
	}
	if err := checkText("name", sw.Name, MaxSwalisNameLen, true); err != nil {
		return err
	}
	if err := checkText("description", sw.Description, MaxSwalisDescLen, true); err != nil {
		return err
	}
	if sw.Priority < MinSwalisPriority || sw.Priority > MaxSwalisPriority {
		return apperror.Validation("priority", "priority must be between %d and %d", MinSwalisPriority, MaxSwalisPriority)
	}
	return nil
}

func (s *Service) CreateSwalis(ctx context.Context, sw *Swalis) error {
	if err := validateSwalis(sw); err != nil {
		return err
	}
	return s.swalis.Create(ctx, sw)
}

func (s *Service) GetSwalis(ctx context.Context, id uuid.UUID) (*Swalis, error) {
	return s.swalis.GetByID(ctx, id)
}

func (s *Service) UpdateSwalis(ctx context.Context, sw *Swalis) error {
	if err := validateSwalis(sw); err != nil {
		return err
	}
	return s.swalis.Update(ctx, sw)
}

func (s *Service) DeleteSwalis(ctx context.Context, id uuid.UUID) error {
	return s.swalis.Delete(ctx, id)
}

// ListSwalis returns classifications by ascending priority.
func (s *Service) ListSwalis(ctx context.Context) ([]*Swalis, error) {
	return s.swalis.List(ctx, false)
}

func (s *Service) ListActiveSwalis(ctx context.Context) ([]*Swalis, error) {
	return s.swalis.List(ctx, true)
}
