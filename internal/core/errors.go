package core

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInactiveUser = errors.New("user is inactive")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidPeriod = errors.New("invalid period")
)

type (
	// FieldError is one failed rule on one input field.
	FieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	// ValidationError collects every field failure of a form.
	ValidationError struct {
		Fields []FieldError `json:"fields"`
	}

	// ConflictError reports a uniqueness violation on a field.
	ConflictError struct {
		Field   string
		Message string
	}
)

// Add records a failure for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has reports whether field already has a failure.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns e when at least one failure was recorded, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ConflictError) Error() string {
	return "conflict on " + e.Field + ": " + e.Message
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewBudgetConflict is returned when a (user, category, month, year) budget already exists.
func NewBudgetConflict() *ConflictError {
	return &ConflictError{
		Field:   "category",
		Message: "A budget for this category already exists for the selected month/year",
	}
}
