package models

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every input validation failure.
var ErrValidation = errors.New("validation failed")

// ValidationError describes which input was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a validation error for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
