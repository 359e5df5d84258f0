// Package apperror defines the error kinds surfaced by the ledger and
// catalog services and their mapping onto HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
)

var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("resource not found")
	ErrStorage    = errors.New("storage error")
)

// Error carries the kind plus the offending field and entity id so callers
// can render a precise message.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	ID      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	case KindStorage:
		return ErrStorage
	}
	return nil
}

// Validation reports malformed input on field.
func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a state clash on the entity identified by id.
func Conflict(field, id, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Field: field, ID: id, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, ID: id, Message: fmt.Sprintf("%s not found", resource)}
}

func Storage(err error, message string) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Body is the JSON error envelope returned by handlers.
type Body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	ID      string `json:"id,omitempty"`
}

// HTTPStatus maps an error onto a status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ToHTTP converts err into an echo.HTTPError whose message is a Body.
// Unclassified errors keep their detail out of the response.
func ToHTTP(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	status := HTTPStatus(err)
	var e *Error
	if !errors.As(err, &e) {
		return echo.NewHTTPError(status, Body{Code: "internal", Message: "internal server error"}).SetInternal(err)
	}
	body := Body{Code: string(e.Kind), Message: e.Message, Field: e.Field, ID: e.ID}
	if e.Kind == KindStorage {
		body.Message = "storage unavailable"
	}
	return echo.NewHTTPError(status, body).SetInternal(err)
}
