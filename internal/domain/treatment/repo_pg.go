package treatment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/db"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, ref_id, name, birth_date, balance_od, balance_os,
	total_prescribed_od, total_prescribed_os, total_applied_od, total_applied_os,
	is_active, created_by_id, created_at, updated_at`

const patientColsP = `p.id, p.ref_id, p.name, p.birth_date, p.balance_od, p.balance_os,
	p.total_prescribed_od, p.total_prescribed_os, p.total_applied_od, p.total_applied_os,
	p.is_active, p.created_by_id, p.created_at, p.updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.RefID, &p.Name, &p.BirthDate, &p.BalanceOD, &p.BalanceOS,
		&p.TotalPrescribedOD, &p.TotalPrescribedOS, &p.TotalAppliedOD, &p.TotalAppliedOS,
		&p.IsActive, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) EnsureByRefID(ctx context.Context, ref PatientRef, createdBy string) (*Patient, error) {
	var by *string
	if createdBy != "" {
		by = &createdBy
	}
	// The no-op DO UPDATE makes RETURNING yield the existing row. It touches
	// a non-key column so the row lock stays FOR NO KEY UPDATE.
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, ref_id, name, birth_date, created_by_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ref_id) DO UPDATE SET updated_at = patient.updated_at
		RETURNING `+patientCols,
		uuid.New(), ref.RefID, ref.Name, ref.BirthDate, by))
	if err != nil {
		return nil, db.Translate(err, "patient", ref.RefID)
	}
	return p, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "patient", id.String())
	}
	return p, nil
}

// patientQueueFrom joins each patient with its latest prescription and
// that prescription's Swalis class.
const patientQueueFrom = ` FROM patient p
	LEFT JOIN LATERAL (
		SELECT r.indication_id, r.medication_id, r.swalis_id
		FROM prescription r
		WHERE r.patient_id = p.id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT 1
	) lp ON TRUE
	LEFT JOIN swalis_classification s ON s.id = lp.swalis_id`

func (r *patientRepoPG) List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludeInactive {
		where = append(where, "p.is_active")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		n := arg("%" + s + "%")
		where = append(where, fmt.Sprintf("(p.name ILIKE %s OR p.ref_id ILIKE %s)", n, n))
	}
	if f.SwalisID != nil {
		where = append(where, "lp.swalis_id = "+arg(*f.SwalisID))
	}
	if f.IndicationID != nil {
		where = append(where, "lp.indication_id = "+arg(*f.IndicationID))
	}
	if f.MedicationID != nil {
		where = append(where, "lp.medication_id = "+arg(*f.MedicationID))
	}
	if f.MaxPriority > 0 {
		where = append(where, "s.is_active AND s.priority <= "+arg(f.MaxPriority))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+patientQueueFrom+clause, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err, "patient", "")
	}

	query := `SELECT ` + patientColsP + patientQueueFrom + clause +
		` ORDER BY s.priority ASC NULLS LAST, p.created_at ASC, p.id` +
		` LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err, "patient", "")
	}
	defer rows.Close()
	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, db.Translate(err, "patient", "")
		}
		out = append(out, p)
	}
	return out, total, db.Translate(rows.Err(), "patient", "")
}

func (r *patientRepoPG) UpdateInfo(ctx context.Context, p *Patient) error {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET ref_id = $2, name = $3, birth_date = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+patientCols,
		p.ID, p.RefID, p.Name, p.BirthDate)
	updated, err := scanPatient(row)
	if err != nil {
		return db.Translate(err, "patient", p.ID.String())
	}
	*p = *updated
	return nil
}

func (r *patientRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return db.Translate(err, "patient", id.String())
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("patient", id.String())
	}
	return nil
}

func (r *patientRepoPG) ApplyDelta(ctx context.Context, id uuid.UUID, d Delta) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET
			balance_od = balance_od + $2,
			balance_os = balance_os + $3,
			total_prescribed_od = total_prescribed_od + $4,
			total_prescribed_os = total_prescribed_os + $5,
			total_applied_od = total_applied_od + $6,
			total_applied_os = total_applied_os + $7,
			updated_at = NOW()
		WHERE id = $1 AND balance_od + $2 >= 0 AND balance_os + $3 >= 0
		RETURNING `+patientCols,
		id, d.BalanceOD(), d.BalanceOS(), d.PrescribedOD, d.PrescribedOS, d.AppliedOD, d.AppliedOS))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, db.Translate(err, "patient", id.String())
	}

	// No row matched: either the patient is missing or the guard rejected it.
	var od, os int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT balance_od, balance_os FROM patient WHERE id = $1`, id).Scan(&od, &os); err != nil {
		return nil, db.Translate(err, "patient", id.String())
	}
	return nil, insufficientBalance(id, od, os, d)
}

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const prescriptionCols = `id, patient_id, indication_id, indication_other, medication_id, medication_other,
	swalis_id, doctor_id, prescribed_od, prescribed_os, start_with_od, notes, status, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var indID, medID *uuid.UUID
	var indOther, medOther *string
	err := row.Scan(&p.ID, &p.PatientID, &indID, &indOther, &medID, &medOther,
		&p.SwalisID, &p.DoctorID, &p.PrescribedOD, &p.PrescribedOS, &p.StartWithOD, &p.Notes, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	p.Indication = ChoiceFromColumns(indID, indOther)
	p.Medication = ChoiceFromColumns(medID, medOther)
	return &p, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	indID, indOther := p.Indication.Columns()
	medID, medOther := p.Medication.Columns()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, patient_id, indication_id, indication_other, medication_id, medication_other,
			swalis_id, doctor_id, prescribed_od, prescribed_os, start_with_od, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, indID, indOther, medID, medOther,
		p.SwalisID, p.DoctorID, p.PrescribedOD, p.PrescribedOS, p.StartWithOD, p.Notes, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Translate(err, "prescription", p.ID.String())
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "prescription", id.String())
	}
	return p, nil
}

func (r *prescriptionRepoPG) collect(rows pgx.Rows) ([]*Prescription, error) {
	defer rows.Close()
	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, db.Translate(err, "prescription", "")
		}
		out = append(out, p)
	}
	return out, db.Translate(rows.Err(), "prescription", "")
}

func (r *prescriptionRepoPG) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`).Scan(&total); err != nil {
		return nil, 0, db.Translate(err, "prescription", "")
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+prescriptionCols+` FROM prescription ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Translate(err, "prescription", "")
	}
	out, err := r.collect(rows)
	return out, total, err
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, db.Translate(err, "prescription", "")
	}
	return r.collect(rows)
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE prescription SET status = $2, notes = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Status, p.Notes).Scan(&p.UpdatedAt)
	return db.Translate(err, "prescription", p.ID.String())
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDelete(err, "prescription", id.String())
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("prescription", id.String())
	}
	return nil
}

// =========== Injection Repository ===========

type injectionRepoPG struct{ pool *pgxpool.Pool }

func NewInjectionRepoPG(pool *pgxpool.Pool) InjectionRepository {
	return &injectionRepoPG{pool: pool}
}

func (r *injectionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const injectionCols = `id, patient_id, prescription_id, scheduled_date, applied_date, applied_at,
	injection_od, injection_os, status, applied_by_id, observations, side_effects, created_at, updated_at`

func scanInjection(row pgx.Row) (*Injection, error) {
	var i Injection
	err := row.Scan(&i.ID, &i.PatientID, &i.PrescriptionID, &i.ScheduledDate, &i.AppliedDate, &i.AppliedAt,
		&i.InjectionOD, &i.InjectionOS, &i.Status, &i.AppliedByID, &i.Observations, &i.SideEffects,
		&i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *injectionRepoPG) Create(ctx context.Context, inj *Injection) error {
	inj.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO injection (id, patient_id, prescription_id, scheduled_date, injection_od, injection_os,
			status, observations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		inj.ID, inj.PatientID, inj.PrescriptionID, inj.ScheduledDate, inj.InjectionOD, inj.InjectionOS,
		inj.Status, inj.Observations,
	).Scan(&inj.CreatedAt, &inj.UpdatedAt)
	return db.Translate(err, "injection", inj.ID.String())
}

func (r *injectionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Injection, error) {
	inj, err := scanInjection(r.conn(ctx).QueryRow(ctx, `SELECT `+injectionCols+` FROM injection WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "injection", id.String())
	}
	return inj, nil
}

func (r *injectionRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Injection, error) {
	inj, err := scanInjection(r.conn(ctx).QueryRow(ctx, `SELECT `+injectionCols+` FROM injection WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, db.Translate(err, "injection", id.String())
	}
	return inj, nil
}

func (r *injectionRepoPG) Update(ctx context.Context, inj *Injection) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE injection SET scheduled_date = $2, applied_date = $3, applied_at = $4,
			injection_od = $5, injection_os = $6, status = $7, applied_by_id = $8,
			observations = $9, side_effects = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		inj.ID, inj.ScheduledDate, inj.AppliedDate, inj.AppliedAt,
		inj.InjectionOD, inj.InjectionOS, inj.Status, inj.AppliedByID,
		inj.Observations, inj.SideEffects,
	).Scan(&inj.UpdatedAt)
	return db.Translate(err, "injection", inj.ID.String())
}

func (r *injectionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Injection, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+injectionCols+` FROM injection WHERE patient_id = $1 ORDER BY scheduled_date DESC`, patientID)
	if err != nil {
		return nil, db.Translate(err, "injection", "")
	}
	defer rows.Close()
	var out []*Injection
	for rows.Next() {
		inj, err := scanInjection(rows)
		if err != nil {
			return nil, db.Translate(err, "injection", "")
		}
		out = append(out, inj)
	}
	return out, db.Translate(rows.Err(), "injection", "")
}
