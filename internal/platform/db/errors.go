package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
)

// PostgreSQL SQLSTATE codes translated into application errors.
const (
	CodeUniqueViolation     = "23505"
	CodeCheckViolation      = "23514"
	CodeForeignKeyViolation = "23503"
	CodeStringTooLong       = "22001"
)

// TranslateDelete is Translate for DELETE statements: a foreign key
// violation there means other rows still reference the target, which is a
// conflict with existing state rather than bad input.
func TranslateDelete(err error, resource, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == CodeForeignKeyViolation {
		e := apperror.Conflict(pgErr.ConstraintName, id, "%s is still referenced by other records", resource)
		e.Err = err
		return e
	}
	return Translate(err, resource, id)
}

// Translate maps driver errors onto apperror kinds. resource and id
// describe the entity the statement addressed.
func Translate(err error, resource, id string) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(resource, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case CodeUniqueViolation:
			e := apperror.Conflict(pgErr.ConstraintName, id, "%s already exists", resource)
			e.Err = err
			return e
		case CodeCheckViolation:
			e := apperror.Validation(pgErr.ConstraintName, "%s violates constraint %s", resource, pgErr.ConstraintName)
			e.Err = err
			return e
		case CodeForeignKeyViolation:
			e := apperror.Validation(pgErr.ConstraintName, "%s references a missing record", resource)
			e.Err = err
			return e
		case CodeStringTooLong:
			e := apperror.Validation(pgErr.ColumnName, "%s value too long", resource)
			e.Err = err
			return e
		}
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperror.Storage(err, resource+" query failed")
}
