package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, apperror.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), apperror.ErrNotFound},
		{"unique", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "patient_ref_id_key"}, apperror.ErrConflict},
		{"check", &pgconn.PgError{Code: CodeCheckViolation, ConstraintName: "patient_balance_od_check"}, apperror.ErrValidation},
		{"fk", &pgconn.PgError{Code: CodeForeignKeyViolation}, apperror.ErrValidation},
		{"too long", &pgconn.PgError{Code: CodeStringTooLong, ColumnName: "name"}, apperror.ErrValidation},
		{"other", errors.New("connection reset by peer"), apperror.ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err, "patient", "p-1")
			if !errors.Is(got, tt.want) {
				t.Errorf("Translate(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTranslate_KeepsAppErrors(t *testing.T) {
	orig := apperror.Conflict("balance_od", "p-1", "insufficient balance")
	if got := Translate(orig, "patient", "p-1"); got != error(orig) {
		t.Errorf("expected original error, got %v", got)
	}
	if Translate(nil, "patient", "") != nil {
		t.Error("expected nil")
	}
}

func TestTranslate_ConstraintAsField(t *testing.T) {
	got := Translate(&pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "indication_code_key"}, "indication", "")
	var e *apperror.Error
	if !errors.As(got, &e) || e.Field != "indication_code_key" {
		t.Errorf("expected constraint as field, got %+v", got)
	}
}

func TestTranslateDelete(t *testing.T) {
	fk := &pgconn.PgError{Code: CodeForeignKeyViolation, ConstraintName: "prescription_indication_id_fkey"}

	got := TranslateDelete(fk, "indication", "i-1")
	if !errors.Is(got, apperror.ErrConflict) {
		t.Fatalf("expected conflict for a referenced row, got %v", got)
	}
	var e *apperror.Error
	if !errors.As(got, &e) || e.ID != "i-1" || e.Field != "prescription_indication_id_fkey" {
		t.Errorf("unexpected error %+v", got)
	}
	if !errors.Is(Translate(fk, "prescription", ""), apperror.ErrValidation) {
		t.Error("writes that reference a missing row stay validation errors")
	}
	if !errors.Is(TranslateDelete(pgx.ErrNoRows, "indication", "i-1"), apperror.ErrNotFound) {
		t.Error("expected other errors to fall through to Translate")
	}
}
