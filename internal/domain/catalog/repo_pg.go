package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
	"github.com/leonunesbs/injecoes-v2/internal/platform/db"
)

func affected(tag pgconn.CommandTag, resource string, id uuid.UUID) error {
	if tag.RowsAffected() == 0 {
		return apperror.NotFound(resource, id.String())
	}
	return nil
}

// =========== Indication ===========

type indicationRepoPG struct{ pool *pgxpool.Pool }

func NewIndicationRepoPG(pool *pgxpool.Pool) IndicationRepository {
	return &indicationRepoPG{pool: pool}
}

func (r *indicationRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const indicationCols = `id, code, name, description, is_active, created_at, updated_at`

func scanIndication(row pgx.Row) (*Indication, error) {
	var i Indication
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.Description, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *indicationRepoPG) Create(ctx context.Context, i *Indication) error {
	i.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO indication (id, code, name, description, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		i.ID, i.Code, i.Name, i.Description, i.IsActive).Scan(&i.CreatedAt, &i.UpdatedAt)
	return db.Translate(err, "indication", i.ID.String())
}

func (r *indicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Indication, error) {
	i, err := scanIndication(r.conn(ctx).QueryRow(ctx, `SELECT `+indicationCols+` FROM indication WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "indication", id.String())
	}
	return i, nil
}

func (r *indicationRepoPG) Update(ctx context.Context, i *Indication) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE indication SET code = $2, name = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		i.ID, i.Code, i.Name, i.Description, i.IsActive).Scan(&i.CreatedAt, &i.UpdatedAt)
	return db.Translate(err, "indication", i.ID.String())
}

func (r *indicationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM indication WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDelete(err, "indication", id.String())
	}
	return affected(tag, "indication", id)
}

func (r *indicationRepoPG) List(ctx context.Context, activeOnly bool) ([]*Indication, error) {
	q := `SELECT ` + indicationCols + ` FROM indication ORDER BY code`
	if activeOnly {
		q = `SELECT ` + indicationCols + ` FROM indication WHERE is_active ORDER BY name`
	}
	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, db.Translate(err, "indication", "")
	}
	defer rows.Close()
	var out []*Indication
	for rows.Next() {
		i, err := scanIndication(rows)
		if err != nil {
			return nil, db.Translate(err, "indication", "")
		}
		out = append(out, i)
	}
	return out, db.Translate(rows.Err(), "indication", "")
}

func (r *indicationRepoPG) InsertIfMissing(ctx context.Context, i *Indication) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO indication (id, code, name, description, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING`,
		uuid.New(), i.Code, i.Name, i.Description, i.IsActive)
	if err != nil {
		return false, db.Translate(err, "indication", i.Code)
	}
	return tag.RowsAffected() == 1, nil
}

// =========== Medication ===========

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const medicationCols = `id, code, name, active_substance, is_active, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Code, &m.Name, &m.ActiveSubstance, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication (id, code, name, active_substance, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		m.ID, m.Code, m.Name, m.ActiveSubstance, m.IsActive).Scan(&m.CreatedAt, &m.UpdatedAt)
	return db.Translate(err, "medication", m.ID.String())
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `SELECT `+medicationCols+` FROM medication WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "medication", id.String())
	}
	return m, nil
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medication SET code = $2, name = $3, active_substance = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		m.ID, m.Code, m.Name, m.ActiveSubstance, m.IsActive).Scan(&m.CreatedAt, &m.UpdatedAt)
	return db.Translate(err, "medication", m.ID.String())
}

func (r *medicationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medication WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDelete(err, "medication", id.String())
	}
	return affected(tag, "medication", id)
}

func (r *medicationRepoPG) List(ctx context.Context, activeOnly bool) ([]*Medication, error) {
	q := `SELECT ` + medicationCols + ` FROM medication ORDER BY code`
	if activeOnly {
		q = `SELECT ` + medicationCols + ` FROM medication WHERE is_active ORDER BY name`
	}
	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, db.Translate(err, "medication", "")
	}
	defer rows.Close()
	var out []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, db.Translate(err, "medication", "")
		}
		out = append(out, m)
	}
	return out, db.Translate(rows.Err(), "medication", "")
}

func (r *medicationRepoPG) InsertIfMissing(ctx context.Context, m *Medication) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medication (id, code, name, active_substance, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING`,
		uuid.New(), m.Code, m.Name, m.ActiveSubstance, m.IsActive)
	if err != nil {
		return false, db.Translate(err, "medication", m.Code)
	}
	return tag.RowsAffected() == 1, nil
}

// =========== Swalis ===========

type swalisRepoPG struct{ pool *pgxpool.Pool }

func NewSwalisRepoPG(pool *pgxpool.Pool) SwalisRepository {
	return &swalisRepoPG{pool: pool}
}

func (r *swalisRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const swalisCols = `id, code, name, description, priority, is_active, created_at, updated_at`

func scanSwalis(row pgx.Row) (*Swalis, error) {
	var s Swalis
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Description, &s.Priority, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *swalisRepoPG) Create(ctx context.Context, s *Swalis) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO swalis_classification (id, code, name, description, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		s.ID, s.Code, s.Name, s.Description, s.Priority, s.IsActive).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.Translate(err, "swalis classification", s.ID.String())
}

func (r *swalisRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Swalis, error) {
	s, err := scanSwalis(r.conn(ctx).QueryRow(ctx, `SELECT `+swalisCols+` FROM swalis_classification WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "swalis classification", id.String())
	}
	return s, nil
}

func (r *swalisRepoPG) Update(ctx context.Context, s *Swalis) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE swalis_classification
		SET code = $2, name = $3, description = $4, priority = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		s.ID, s.Code, s.Name, s.Description, s.Priority, s.IsActive).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.Translate(err, "swalis classification", s.ID.String())
}

func (r *swalisRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM swalis_classification WHERE id = $1`, id)
	if err != nil {
		return db.TranslateDelete(err, "swalis classification", id.String())
	}
	return affected(tag, "swalis classification", id)
}

func (r *swalisRepoPG) List(ctx context.Context, activeOnly bool) ([]*Swalis, error) {
	q := `SELECT ` + swalisCols + ` FROM swalis_classification ORDER BY priority, code`
	if activeOnly {
		q = `SELECT ` + swalisCols + ` FROM swalis_classification WHERE is_active ORDER BY priority, code`
	}
	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, db.Translate(err, "swalis classification", "")
	}
	defer rows.Close()
	var out []*Swalis
	for rows.Next() {
		s, err := scanSwalis(rows)
		if err != nil {
			return nil, db.Translate(err, "swalis classification", "")
		}
		out = append(out, s)
	}
	return out, db.Translate(rows.Err(), "swalis classification", "")
}

func (r *swalisRepoPG) InsertIfMissing(ctx context.Context, s *Swalis) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO swalis_classification (id, code, name, description, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING`,
		uuid.New(), s.Code, s.Name, s.Description, s.Priority, s.IsActive)
	if err != nil {
		return false, db.Translate(err, "swalis classification", s.Code)
	}
	return tag.RowsAffected() == 1, nil
}
