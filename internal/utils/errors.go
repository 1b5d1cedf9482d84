package utils

import (
	"errors"
	"fmt"
)

// ValidationError reports a request or parameter that failed validation.
// Handlers map it to 400 Bad Request.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// NewFieldError creates a ValidationError bound to a named input field.
func NewFieldError(field string, format string, args ...interface{}) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
