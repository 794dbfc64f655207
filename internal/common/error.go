// Package common defines sentinel errors shared by the repositories, services
// and the HTTP layer. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Validation errors are rejected before any storage side effect.
	ErrValidation = errors.New("validation error")

	// ErrStagedFileMissing is reported when a staged file has vanished from
	// disk before it could be promoted.
	ErrStagedFileMissing = fmt.Errorf("staged file missing: %w", ErrNotFound)

	// ErrRendererUnavailable means no PDF renderer is configured.
	ErrRendererUnavailable = errors.New("pdf renderer unavailable")
)

// ValidationError carries the specific reason an input was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
