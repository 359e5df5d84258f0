package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leonunesbs/injecoes-v2/internal/domain/treatment"
	"github.com/leonunesbs/injecoes-v2/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patient),
			(SELECT COUNT(*) FROM patient WHERE is_active),
			(SELECT COUNT(*) FROM indication WHERE is_active),
			(SELECT COUNT(*) FROM medication WHERE is_active),
			(SELECT COUNT(*) FROM prescription),
			(SELECT COUNT(*) FROM prescription WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM injection),
			(SELECT COUNT(*) FROM injection WHERE status = 'APPLIED')`,
	).Scan(&c.TotalPatients, &c.ActivePatients, &c.ActiveIndications, &c.ActiveMedications,
		&c.TotalPrescriptions, &c.ActivePrescriptions, &c.TotalInjections, &c.AppliedInjections)
	if err != nil {
		return Counts{}, db.Translate(err, "dashboard", "counts")
	}
	return c, nil
}

func (r *repoPG) ActivePatients(ctx context.Context) ([]PatientFacts, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.ref_id, p.name, p.birth_date, p.balance_od, p.balance_os,
			p.total_prescribed_od, p.total_prescribed_os, p.total_applied_od, p.total_applied_os,
			p.is_active, p.created_by_id, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM prescription r WHERE r.patient_id = p.id),
			(SELECT COUNT(*) FROM injection i WHERE i.patient_id = p.id)
		FROM patient p
		WHERE p.is_active
		ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, db.Translate(err, "patient", "")
	}
	defer rows.Close()

	var out []PatientFacts
	for rows.Next() {
		var f PatientFacts
		p := &f.Patient
		if err := rows.Scan(&p.ID, &p.RefID, &p.Name, &p.BirthDate, &p.BalanceOD, &p.BalanceOS,
			&p.TotalPrescribedOD, &p.TotalPrescribedOS, &p.TotalAppliedOD, &p.TotalAppliedOS,
			&p.IsActive, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt,
			&f.PrescriptionCount, &f.InjectionCount); err != nil {
			return nil, db.Translate(err, "patient", "")
		}
		out = append(out, f)
	}
	return out, db.Translate(rows.Err(), "patient", "")
}

func (r *repoPG) Prescriptions(ctx context.Context) ([]PrescriptionFacts, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT r.id, r.patient_id, p.is_active,
			r.indication_id, r.indication_other, r.medication_id, r.medication_other,
			r.swalis_id, r.prescribed_od, r.prescribed_os, r.status, r.created_at,
			p.total_applied_od, p.total_applied_os, p.balance_od, p.balance_os
		FROM prescription r
		JOIN patient p ON p.id = r.patient_id
		ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, db.Translate(err, "prescription", "")
	}
	defer rows.Close()

	var out []PrescriptionFacts
	for rows.Next() {
		var (
			f                  PrescriptionFacts
			indID, medID       *uuid.UUID
			indOther, medOther *string
		)
		if err := rows.Scan(&f.ID, &f.PatientID, &f.PatientActive,
			&indID, &indOther, &medID, &medOther,
			&f.SwalisID, &f.PrescribedOD, &f.PrescribedOS, &f.Status, &f.CreatedAt,
			&f.PatientAppliedOD, &f.PatientAppliedOS, &f.PatientBalanceOD, &f.PatientBalanceOS); err != nil {
			return nil, db.Translate(err, "prescription", "")
		}
		f.Indication = treatment.ChoiceFromColumns(indID, indOther)
		f.Medication = treatment.ChoiceFromColumns(medID, medOther)
		out = append(out, f)
	}
	return out, db.Translate(rows.Err(), "prescription", "")
}

func (r *repoPG) AppliedDoses(ctx context.Context) ([]AppliedDose, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT patient_id, applied_date, injection_od, injection_os
		FROM injection
		WHERE status = 'APPLIED' AND applied_date IS NOT NULL
		ORDER BY patient_id, applied_date, id`)
	if err != nil {
		return nil, db.Translate(err, "injection", "")
	}
	defer rows.Close()

	var out []AppliedDose
	for rows.Next() {
		var d AppliedDose
		if err := rows.Scan(&d.PatientID, &d.AppliedDate, &d.OD, &d.OS); err != nil {
			return nil, db.Translate(err, "injection", "")
		}
		out = append(out, d)
	}
	return out, db.Translate(rows.Err(), "injection", "")
}

func (r *repoPG) CountInjections(ctx context.Context, f InjectionFilter) (int, error) {
	where := []string{"p.is_active"}
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("i.status = $%d", string(f.Status))
	}
	if f.Before != nil {
		add("i.scheduled_date < $%d", *f.Before)
	}
	if f.From != nil {
		add("i.scheduled_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("i.scheduled_date <= $%d", *f.To)
	}

	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM injection i
		JOIN patient p ON p.id = i.patient_id
		WHERE `+strings.Join(where, " AND "), args...).Scan(&n)
	if err != nil {
		return 0, db.Translate(err, "injection", "")
	}
	return n, nil
}
