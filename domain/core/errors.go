package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)
	ErrLevelNotFound  = fmt.Errorf("%w: condition level", ErrNotFound)

	// Validation errors
	ErrInvalidTable     = errors.New("invalid table")
	ErrRaggedRow        = errors.New("row width does not match declared columns")
	ErrDuplicateColumn  = errors.New("duplicate column name")
	ErrRoleMismatch     = errors.New("column role mismatch")
	ErrNonNumeric       = errors.New("non-numeric value in measurement column")
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// NewColumnNotFoundError reports a missing column by name
func NewColumnNotFoundError(name string) error {
	return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// NewRoleMismatchError reports a column used with the wrong role
func NewRoleMismatchError(name, want, got string) error {
	return fmt.Errorf("%w: column %q is %s, need %s", ErrRoleMismatch, name, got, want)
}

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
