package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a rejected request; no transaction was opened.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the operation clashes with existing state.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates resource not found or out of company scope.
	ErrNotFound = errors.New("not found")
)

// Validationf wraps ErrValidation with a caller message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a caller message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a caller message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
