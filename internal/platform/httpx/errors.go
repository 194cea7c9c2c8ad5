// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// FieldErrors carries per-field validation messages.
type FieldErrors map[string]string

// Add records msg for field, keeping the first message per field.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (f FieldErrors) Unwrap() error { return ErrValidation }

// FieldError builds a single-field validation error.
func FieldError(field, msg string) error {
	return FieldErrors{field: msg}
}

// DuplicateField reports an explicit value that is already taken.
func DuplicateField(field, msg string) error {
	return &duplicateField{field: field, msg: msg}
}

type duplicateField struct {
	field string
	msg   string
}

func (d *duplicateField) Error() string { return fmt.Sprintf("%s: %s", d.field, d.msg) }
func (d *duplicateField) Unwrap() error { return ErrDuplicate }
func (d *duplicateField) Fields() FieldErrors {
	return FieldErrors{d.field: d.msg}
}

// MapPgError translates constraint violations into domain sentinels.
func MapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		if pgErr.ConstraintName != "" {
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Detail)
	case "23503":
		return fmt.Errorf("%w: %s", ErrValidation, pgErr.Detail)
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
	}
	return err
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	err = MapPgError(err)

	var fields FieldErrors
	if errors.As(err, &fields) {
		JSON(w, http.StatusBadRequest, ValidationProblem{
			ProblemDetail: ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest},
			Errors:        fields,
		})
		return
	}
	var dup interface{ Fields() FieldErrors }
	if errors.As(err, &dup) {
		JSON(w, http.StatusConflict, ValidationProblem{
			ProblemDetail: ProblemDetail{Title: "Duplicate", Status: http.StatusConflict},
			Errors:        dup.Fields(),
		})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
