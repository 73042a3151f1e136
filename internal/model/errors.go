package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the failure classes the discovery subsystem can surface.
// Match with eris.Is.
var (
	// ErrValidation marks input rejected before any I/O.
	ErrValidation = eris.New("validation failed")

	// ErrUpstreamProvider marks a place provider search/detail failure.
	ErrUpstreamProvider = eris.New("upstream provider error")

	// ErrExportGeneration marks a failed export; the request is left in a
	// terminal failed state and is never retried automatically.
	ErrExportGeneration = eris.New("export generation failed")

	// ErrNotFound marks a missing record.
	ErrNotFound = eris.New("not found")
)

// ValidationError carries field-level detail for a rejected input. It
// unwraps to ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Unwrap lets eris.Is(err, ErrValidation) match any field error.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
