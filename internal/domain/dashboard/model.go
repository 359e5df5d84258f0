package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/leonunesbs/injecoes-v2/internal/domain/catalog"
	"github.com/leonunesbs/injecoes-v2/internal/domain/treatment"
)

// Label names a catalogue entry or, when Custom is set, free text entered
// on the prescription.
type Label struct {
	ID     *uuid.UUID `json:"id,omitempty"`
	Code   string     `json:"code,omitempty"`
	Name   string     `json:"name"`
	Custom bool       `json:"custom,omitempty"`
}

type SwalisLabel struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Priority int       `json:"priority"`
}

// PrescriptionSummary describes a patient's most recent prescription.
type PrescriptionSummary struct {
	PrescriptionID uuid.UUID    `json:"prescription_id"`
	Indication     Label        `json:"indication"`
	Medication     Label        `json:"medication"`
	Swalis         *SwalisLabel `json:"swalis,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// -- Repository facts --

type Counts struct {
	TotalPatients       int
	ActivePatients      int
	ActiveIndications   int
	ActiveMedications   int
	TotalPrescriptions  int
	ActivePrescriptions int
	TotalInjections     int
	AppliedInjections   int
}

// PatientFacts is an active patient with its ledger counters and the
// number of prescriptions and injections (any status) it owns.
type PatientFacts struct {
	treatment.Patient
	PrescriptionCount int
	InjectionCount    int
}

// PrescriptionFacts is one prescription joined with its patient's
// lifetime counters.
type PrescriptionFacts struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	PatientActive bool
	Indication    treatment.Choice
	Medication    treatment.Choice
	SwalisID      uuid.UUID
	PrescribedOD  int
	PrescribedOS  int
	Status        treatment.PrescriptionStatus
	CreatedAt     time.Time

	PatientAppliedOD int
	PatientAppliedOS int
	PatientBalanceOD int
	PatientBalanceOS int
}

// AppliedDose is an APPLIED injection with a recorded application date.
type AppliedDose struct {
	PatientID   uuid.UUID
	AppliedDate time.Time
	OD          int
	OS          int
}

// InjectionFilter selects injections of active patients. Before is an
// exclusive upper bound; From and To are inclusive.
type InjectionFilter struct {
	Status treatment.InjectionStatus
	Before *time.Time
	From   *time.Time
	To     *time.Time
}

// -- Reports --

type IndicationProfile struct {
	Indication           *catalog.Indication `json:"indication"`
	Custom               bool                `json:"custom,omitempty"`
	PatientCount         int                 `json:"patient_count"`
	DistinctPatientCount int                 `json:"distinct_patient_count"`
	TotalPrescribedOD    int                 `json:"total_prescribed_od"`
	TotalPrescribedOS    int                 `json:"total_prescribed_os"`
	TotalAppliedOD       int                 `json:"total_applied_od"`
	TotalAppliedOS       int                 `json:"total_applied_os"`
	AvgBalanceOD         float64             `json:"avg_balance_od"`
	AvgBalanceOS         float64             `json:"avg_balance_os"`
	TotalPrescribed      int                 `json:"total_prescribed"`
	TotalApplied         int                 `json:"total_applied"`
	ComplianceRate       float64             `json:"compliance_rate"`
}

type GeneralCounts struct {
	TotalPatients      int `json:"total_patients"`
	TotalIndications   int `json:"total_indications"`
	TotalMedications   int `json:"total_medications"`
	TotalPrescriptions int `json:"total_prescriptions"`
	TotalInjections    int `json:"total_injections"`
}

type SwalisProfile struct {
	Swalis               *catalog.Swalis `json:"swalis"`
	PatientCount         int             `json:"patient_count"`
	DistinctPatientCount int             `json:"distinct_patient_count"`
	TotalBalance         int             `json:"total_balance"`
	TotalPrescribed      int             `json:"total_prescribed"`
	TotalApplied         int             `json:"total_applied"`
	AvgBalancePerPatient float64         `json:"avg_balance_per_patient"`
}

type MedicationProfile struct {
	Medication           *catalog.Medication `json:"medication"`
	Custom               bool                `json:"custom,omitempty"`
	PatientCount         int                 `json:"patient_count"`
	DistinctPatientCount int                 `json:"distinct_patient_count"`
	TotalPrescribed      int                 `json:"total_prescribed"`
	TotalApplied         int                 `json:"total_applied"`
	UsageRate            float64             `json:"usage_rate"`
}

type Quantitative struct {
	General            GeneralCounts       `json:"general"`
	SwalisAnalysis     []SwalisProfile     `json:"swalis_analysis"`
	MedicationAnalysis []MedicationProfile `json:"medication_analysis"`
}

type PatientLabel struct {
	ID    uuid.UUID `json:"id"`
	RefID string    `json:"ref_id"`
	Name  string    `json:"name"`
}

type PatientIntervals struct {
	Patient            PatientLabel         `json:"patient"`
	Prescription       *PrescriptionSummary `json:"prescription"`
	InjectionCount     int                  `json:"injection_count"`
	Intervals          []int                `json:"intervals"`
	AvgInterval        int                  `json:"avg_interval"`
	MinInterval        int                  `json:"min_interval"`
	MaxInterval        int                  `json:"max_interval"`
	TotalInjectedOD    int                  `json:"total_injected_od"`
	TotalInjectedOS    int                  `json:"total_injected_os"`
	FirstInjectionDate time.Time            `json:"first_injection_date"`
	LastInjectionDate  time.Time            `json:"last_injection_date"`
}

// Histogram buckets day gaps: <30, [30,60), [60,90), >=90.
type Histogram struct {
	LessThan30Days     int `json:"less_than_30_days"`
	Between30And60Days int `json:"between_30_and_60_days"`
	Between60And90Days int `json:"between_60_and_90_days"`
	MoreThan90Days     int `json:"more_than_90_days"`
}

type IndicationIntervals struct {
	Indication                     *catalog.Indication `json:"indication"`
	PatientCount                   int                 `json:"patient_count"`
	PatientsWithMultipleInjections int                 `json:"patients_with_multiple_injections"`
	AvgIntervalAcrossPatients      int                 `json:"avg_interval_across_patients"`
	MinIntervalAcrossPatients      int                 `json:"min_interval_across_patients"`
	MaxIntervalAcrossPatients      int                 `json:"max_interval_across_patients"`
	IntervalDistribution           Histogram           `json:"interval_distribution"`
}

type DoseIntervals struct {
	PatientIntervals []PatientIntervals    `json:"patient_intervals"`
	IndicationStats  []IndicationIntervals `json:"indication_stats"`
}

type RankingRow struct {
	ID                    uuid.UUID            `json:"id"`
	RefID                 string               `json:"ref_id"`
	Name                  string               `json:"name"`
	BirthDate             *time.Time           `json:"birth_date,omitempty"`
	Prescription          *PrescriptionSummary `json:"prescription"`
	TotalPrescribedOD     int                  `json:"total_prescribed_od"`
	TotalPrescribedOS     int                  `json:"total_prescribed_os"`
	TotalAppliedOD        int                  `json:"total_applied_od"`
	TotalAppliedOS        int                  `json:"total_applied_os"`
	BalanceOD             int                  `json:"balance_od"`
	BalanceOS             int                  `json:"balance_os"`
	TotalPrescribed       int                  `json:"total_prescribed"`
	TotalApplied          int                  `json:"total_applied"`
	ComplianceRate        float64              `json:"compliance_rate"`
	PrescriptionCount     int                  `json:"prescription_count"`
	InjectionCount        int                  `json:"injection_count"`
	AppliedInjectionCount int                  `json:"applied_injection_count"`
	AvgInterval           int                  `json:"avg_interval"`
	CreatedAt             time.Time            `json:"created_at"`
	LastInjectionDate     *time.Time           `json:"last_injection_date,omitempty"`
}

type DueCounts struct {
	OverdueScheduled int `json:"overdue_scheduled"`
	DueToday         int `json:"due_today"`
	Missed           int `json:"missed"`
	Total            int `json:"total"`
}

type StatsGeneral struct {
	TotalPatients          int     `json:"total_patients"`
	TotalActivePatients    int     `json:"total_active_patients"`
	TotalInjections        int     `json:"total_injections"`
	TotalAppliedInjections int     `json:"total_applied_injections"`
	TotalPrescriptions     int     `json:"total_prescriptions"`
	ActivePrescriptions    int     `json:"active_prescriptions"`
	ApplicationRate        float64 `json:"application_rate"`
}

type SwalisShare struct {
	Swalis     *catalog.Swalis `json:"swalis"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

type Stats struct {
	General            StatsGeneral  `json:"general"`
	SwalisDistribution []SwalisShare `json:"swalis_distribution"`
}
