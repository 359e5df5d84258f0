package treatment

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leonunesbs/injecoes-v2/internal/domain/catalog"
	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/metrics"
)

// TxRunner runs fn in one transaction carried by its context.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogLookup resolves the reference data a prescription points at.
type CatalogLookup interface {
	GetIndication(ctx context.Context, id uuid.UUID) (*catalog.Indication, error)
	GetMedication(ctx context.Context, id uuid.UUID) (*catalog.Medication, error)
	GetSwalis(ctx context.Context, id uuid.UUID) (*catalog.Swalis, error)
}

type Service struct {
	patients      PatientRepository
	prescriptions PrescriptionRepository
	injections    InjectionRepository
	catalog       CatalogLookup
	tx            TxRunner
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(
	patients PatientRepository,
	prescriptions PrescriptionRepository,
	injections InjectionRepository,
	lookup CatalogLookup,
	tx TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		patients:      patients,
		prescriptions: prescriptions,
		injections:    injections,
		catalog:       lookup,
		tx:            tx,
		logger:        logger.With().Str("component", "ledger").Logger(),
		now:           time.Now,
	}
}

// -- Prescriptions --

type CreatePrescriptionInput struct {
	PatientID       *uuid.UUID  `json:"patient_id,omitempty"`
	Patient         *PatientRef `json:"patient,omitempty"`
	IndicationID    *uuid.UUID  `json:"indication_id,omitempty"`
	IndicationOther *string     `json:"indication_other,omitempty"`
	MedicationID    *uuid.UUID  `json:"medication_id,omitempty"`
	MedicationOther *string     `json:"medication_other,omitempty"`
	SwalisID        uuid.UUID   `json:"swalis_id"`
	PrescribedOD    int         `json:"prescribed_od"`
	PrescribedOS    int         `json:"prescribed_os"`
	StartWithOD     bool        `json:"start_with_od"`
	Notes           *string     `json:"notes,omitempty"`
}

func validatePatientRef(ref *PatientRef) error {
	ref.RefID = strings.TrimSpace(ref.RefID)
	ref.Name = strings.TrimSpace(ref.Name)
	if ref.RefID == "" {
		return apperror.Validation("ref_id", "ref_id is required")
	}
	if utf8.RuneCountInString(ref.RefID) > MaxRefIDLen {
		return apperror.Validation("ref_id", "ref_id must be at most %d characters", MaxRefIDLen)
	}
	if ref.Name == "" {
		return apperror.Validation("name", "name is required")
	}
	if utf8.RuneCountInString(ref.Name) > MaxNameLen {
		return apperror.Validation("name", "name must be at most %d characters", MaxNameLen)
	}
	return nil
}

// lookupErr reports a missing catalogue row as invalid input on field.
func lookupErr(err error, field string, id uuid.UUID) error {
	if errors.Is(err, apperror.ErrNotFound) {
		e := apperror.Validation(field, "%s %s does not exist", field, id)
		e.ID = id.String()
		return e
	}
	return err
}

func (s *Service) validatePrescription(ctx context.Context, in *CreatePrescriptionInput) (Choice, Choice, error) {
	if err := validateDoses("prescribed_od", "prescribed_os", in.PrescribedOD, in.PrescribedOS); err != nil {
		return Choice{}, Choice{}, err
	}

	switch {
	case in.PatientID != nil && in.Patient != nil:
		return Choice{}, Choice{}, apperror.Validation("patient", "give patient_id or patient, not both")
	case in.PatientID == nil && in.Patient == nil:
		return Choice{}, Choice{}, apperror.Validation("patient", "patient_id or patient is required")
	case in.Patient != nil:
		if err := validatePatientRef(in.Patient); err != nil {
			return Choice{}, Choice{}, err
		}
	}

	ind, err := NewChoice("indication", in.IndicationID, in.IndicationOther)
	if err != nil {
		return Choice{}, Choice{}, err
	}
	med, err := NewChoice("medication", in.MedicationID, in.MedicationOther)
	if err != nil {
		return Choice{}, Choice{}, err
	}
	if in.SwalisID == uuid.Nil {
		return Choice{}, Choice{}, apperror.Validation("swalis_id", "swalis_id is required")
	}

	if id, ok := ind.CatalogID(); ok {
		if _, err := s.catalog.GetIndication(ctx, id); err != nil {
			return Choice{}, Choice{}, lookupErr(err, "indication_id", id)
		}
	}
	if id, ok := med.CatalogID(); ok {
		if _, err := s.catalog.GetMedication(ctx, id); err != nil {
			return Choice{}, Choice{}, lookupErr(err, "medication_id", id)
		}
	}
	if _, err := s.catalog.GetSwalis(ctx, in.SwalisID); err != nil {
		return Choice{}, Choice{}, lookupErr(err, "swalis_id", in.SwalisID)
	}
	return ind, med, nil
}

// CreatePrescription records a prescribing event and adds its quantities to
// the patient's balance and prescribed totals in one transaction. A patient
// addressed by an unseen reference id is created with zero counters.
func (s *Service) CreatePrescription(ctx context.Context, in CreatePrescriptionInput, actorID string) (*Prescription, error) {
	ind, med, err := s.validatePrescription(ctx, &in)
	if err != nil {
		return nil, err
	}
	if in.PatientID != nil {
		if _, err := s.patients.GetByID(ctx, *in.PatientID); err != nil {
			return nil, err
		}
	}

	p := &Prescription{
		Indication:   ind,
		Medication:   med,
		SwalisID:     in.SwalisID,
		DoctorID:     actorID,
		PrescribedOD: in.PrescribedOD,
		PrescribedOS: in.PrescribedOS,
		StartWithOD:  in.StartWithOD,
		Notes:        in.Notes,
		Status:       PrescriptionActive,
	}

	var patient *Patient
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if in.PatientID != nil {
			p.PatientID = *in.PatientID
		} else {
			ensured, err := s.patients.EnsureByRefID(ctx, *in.Patient, actorID)
			if err != nil {
				return err
			}
			p.PatientID = ensured.ID
		}

		if err := s.prescriptions.Create(ctx, p); err != nil {
			return err
		}
		var err error
		patient, err = s.patients.ApplyDelta(ctx, p.PatientID, Delta{PrescribedOD: p.PrescribedOD, PrescribedOS: p.PrescribedOS})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPrescription(p.PrescribedOD, p.PrescribedOS)
	s.logger.Info().
		Str("patient_id", patient.ID.String()).
		Str("prescription_id", p.ID.String()).
		Int("prescribed_od", p.PrescribedOD).
		Int("prescribed_os", p.PrescribedOS).
		Int("balance_od", patient.BalanceOD).
		Int("balance_os", patient.BalanceOS).
		Msg("prescription recorded")
	return p, nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, limit, offset)
}

func (s *Service) ListPatientPrescriptions(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.prescriptions.ListByPatient(ctx, patientID)
}

// UpdatePrescriptionInput changes bookkeeping fields only; quantities are
// part of the ledger history and cannot be edited.
type UpdatePrescriptionInput struct {
	Status *PrescriptionStatus `json:"status,omitempty"`
	Notes  *string             `json:"notes,omitempty"`
}

func (s *Service) UpdatePrescription(ctx context.Context, id uuid.UUID, in UpdatePrescriptionInput) (*Prescription, error) {
	if in.Status != nil && !validPrescriptionStatuses[*in.Status] {
		return nil, apperror.Validation("status", "invalid status: %s", *in.Status)
	}
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Notes != nil {
		p.Notes = in.Notes
	}
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePrescription removes the history row. Patient counters are left
// as they are.
func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	if err := s.prescriptions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Warn().Str("prescription_id", id.String()).Msg("prescription deleted; balances unchanged")
	return nil
}

// -- Injections --

type ScheduleInjectionInput struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	PrescriptionID *uuid.UUID `json:"prescription_id,omitempty"`
	ScheduledDate  time.Time  `json:"scheduled_date"`
	InjectionOD    int        `json:"injection_od"`
	InjectionOS    int        `json:"injection_os"`
	Observations   *string    `json:"observations,omitempty"`
}

func (s *Service) ScheduleInjection(ctx context.Context, in ScheduleInjectionInput) (*Injection, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id", "patient_id is required")
	}
	if in.ScheduledDate.IsZero() {
		return nil, apperror.Validation("scheduled_date", "scheduled_date is required")
	}
	if err := validateDoses("injection_od", "injection_os", in.InjectionOD, in.InjectionOS); err != nil {
		return nil, err
	}
	if _, err := s.patients.GetByID(ctx, in.PatientID); err != nil {
		return nil, err
	}
	if in.PrescriptionID != nil {
		p, err := s.prescriptions.GetByID(ctx, *in.PrescriptionID)
		if err != nil {
			return nil, lookupErr(err, "prescription_id", *in.PrescriptionID)
		}
		if p.PatientID != in.PatientID {
			return nil, apperror.Validation("prescription_id", "prescription belongs to another patient")
		}
	}

	inj := &Injection{
		PatientID:      in.PatientID,
		PrescriptionID: in.PrescriptionID,
		ScheduledDate:  in.ScheduledDate,
		InjectionOD:    in.InjectionOD,
		InjectionOS:    in.InjectionOS,
		Status:         InjectionScheduled,
		Observations:   in.Observations,
	}
	if err := s.injections.Create(ctx, inj); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("patient_id", inj.PatientID.String()).
		Str("injection_id", inj.ID.String()).
		Time("scheduled_date", inj.ScheduledDate).
		Msg("injection scheduled")
	return inj, nil
}

type ApplyInput struct {
	AppliedOD    int        `json:"applied_od"`
	AppliedOS    int        `json:"applied_os"`
	AppliedDate  *time.Time `json:"applied_date,omitempty"`
	Observations *string    `json:"observations,omitempty"`
	SideEffects  *string    `json:"side_effects,omitempty"`
}

// ApplyInjection moves a SCHEDULED injection to APPLIED and removes the
// applied quantities from the patient's balance in one transaction. It
// fails with a conflict, changing nothing, when either eye lacks balance.
func (s *Service) ApplyInjection(ctx context.Context, id uuid.UUID, in ApplyInput, actorID string) (*Injection, error) {
	if err := validateDoses("applied_od", "applied_os", in.AppliedOD, in.AppliedOS); err != nil {
		return nil, err
	}

	var inj *Injection
	var patient *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		inj, err = s.injections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inj.Status != InjectionScheduled {
			return apperror.Conflict("status", id.String(), "injection is %s, only SCHEDULED can be applied", inj.Status)
		}

		patient, err = s.patients.ApplyDelta(ctx, inj.PatientID, Delta{AppliedOD: in.AppliedOD, AppliedOS: in.AppliedOS})
		if err != nil {
			return err
		}

		now := s.now()
		applied := now
		if in.AppliedDate != nil {
			applied = *in.AppliedDate
		}
		inj.Status = InjectionApplied
		inj.InjectionOD = in.AppliedOD
		inj.InjectionOS = in.AppliedOS
		inj.AppliedDate = &applied
		inj.AppliedAt = &now
		if actorID != "" {
			inj.AppliedByID = &actorID
		}
		if in.Observations != nil {
			inj.Observations = in.Observations
		}
		inj.SideEffects = in.SideEffects
		return s.injections.Update(ctx, inj)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			metrics.RecordConflict("apply_injection")
			s.logger.Warn().Err(err).Str("injection_id", id.String()).Msg("injection application rejected")
		}
		return nil, err
	}

	metrics.RecordApplication(inj.InjectionOD, inj.InjectionOS)
	s.logger.Info().
		Str("patient_id", patient.ID.String()).
		Str("injection_id", inj.ID.String()).
		Int("applied_od", inj.InjectionOD).
		Int("applied_os", inj.InjectionOS).
		Int("balance_od", patient.BalanceOD).
		Int("balance_os", patient.BalanceOS).
		Msg("injection applied")
	return inj, nil
}

// transition moves a SCHEDULED injection to a terminal status without
// touching the ledger.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to InjectionStatus, observations *string) (*Injection, error) {
	var inj *Injection
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		inj, err = s.injections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inj.Status != InjectionScheduled {
			return apperror.Conflict("status", id.String(), "injection is %s, only SCHEDULED can become %s", inj.Status, to)
		}
		inj.Status = to
		if observations != nil {
			inj.Observations = observations
		}
		return s.injections.Update(ctx, inj)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(to))
	s.logger.Info().Str("injection_id", id.String()).Str("status", string(to)).Msg("injection status changed")
	return inj, nil
}

func (s *Service) CancelInjection(ctx context.Context, id uuid.UUID, reason *string) (*Injection, error) {
	return s.transition(ctx, id, InjectionCancelled, reason)
}

func (s *Service) MarkMissed(ctx context.Context, id uuid.UUID) (*Injection, error) {
	return s.transition(ctx, id, InjectionMissed, nil)
}

// RescheduleInjection closes the current row as RESCHEDULED and opens a new
// SCHEDULED row with the same planned doses.
func (s *Service) RescheduleInjection(ctx context.Context, id uuid.UUID, newDate time.Time) (*Injection, error) {
	if newDate.IsZero() {
		return nil, apperror.Validation("scheduled_date", "scheduled_date is required")
	}

	var next *Injection
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		cur, err := s.injections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status != InjectionScheduled {
			return apperror.Conflict("status", id.String(), "injection is %s, only SCHEDULED can be rescheduled", cur.Status)
		}
		cur.Status = InjectionRescheduled
		if err := s.injections.Update(ctx, cur); err != nil {
			return err
		}
		next = &Injection{
			PatientID:      cur.PatientID,
			PrescriptionID: cur.PrescriptionID,
			ScheduledDate:  newDate,
			InjectionOD:    cur.InjectionOD,
			InjectionOS:    cur.InjectionOS,
			Status:         InjectionScheduled,
			Observations:   cur.Observations,
		}
		return s.injections.Create(ctx, next)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(InjectionRescheduled))
	s.logger.Info().
		Str("injection_id", id.String()).
		Str("new_injection_id", next.ID.String()).
		Time("scheduled_date", newDate).
		Msg("injection rescheduled")
	return next, nil
}

func (s *Service) GetInjection(ctx context.Context, id uuid.UUID) (*Injection, error) {
	return s.injections.GetByID(ctx, id)
}

func (s *Service) ListPatientInjections(ctx context.Context, patientID uuid.UUID) ([]*Injection, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.injections.ListByPatient(ctx, patientID)
}

// ListPrescriptionInjections lists the injections of the patient who owns
// the prescription.
func (s *Service) ListPrescriptionInjections(ctx context.Context, prescriptionID uuid.UUID) ([]*Injection, error) {
	p, err := s.prescriptions.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	return s.injections.ListByPatient(ctx, p.PatientID)
}

// -- Patients --

func (s *Service) GetPatientBalance(ctx context.Context, patientID uuid.UUID) (Balance, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return Balance{}, err
	}
	return p.Balance(), nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*PatientDetail, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prescriptions, err := s.prescriptions.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	injections, err := s.injections.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if prescriptions == nil {
		prescriptions = []*Prescription{}
	}
	if injections == nil {
		injections = []*Injection{}
	}
	return &PatientDetail{Patient: p, Prescriptions: prescriptions, Injections: injections}, nil
}

func (s *Service) ListPatients(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error) {
	if f.MaxPriority < 0 {
		return nil, 0, apperror.Validation("max_priority", "max_priority must not be negative")
	}
	return s.patients.List(ctx, f, limit, offset)
}

// ListUrgentPatients returns the head of the queue: active patients whose
// latest prescription carries an active Swalis class of priority
// UrgentMaxPriority or better (A1, A2).
func (s *Service) ListUrgentPatients(ctx context.Context, limit int) ([]*Patient, error) {
	switch {
	case limit == 0:
		limit = DefaultUrgentLimit
	case limit < 1:
		limit = 1
	case limit > MaxUrgentLimit:
		limit = MaxUrgentLimit
	}
	items, _, err := s.patients.List(ctx, PatientFilter{MaxPriority: UrgentMaxPriority}, limit, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Patient{}
	}
	return items, nil
}

// UpdatePatient changes identity fields only; counters belong to the ledger.
func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, ref PatientRef) (*Patient, error) {
	if err := validatePatientRef(&ref); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.RefID = ref.RefID
	p.Name = ref.Name
	p.BirthDate = ref.BirthDate
	if err := s.patients.UpdateInfo(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SetPatientActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.patients.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", id.String()).Bool("active", active).Msg("patient activation changed")
	return nil
}
