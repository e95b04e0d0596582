package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input validation errors
	ErrInvalidInputShape = errors.New("input must be a non-empty one-dimensional sequence of finite numbers")
	ErrInvalidUnit       = errors.New("unit not recognized")
	ErrOutOfModelRange   = errors.New("value outside the model's supported range")
	ErrNonPositiveValue  = errors.New("value must be strictly positive")
	ErrInvalidArgument   = errors.New("invalid argument")

	// Sampling errors
	ErrGridTooSparse        = errors.New("sample grid is too sparse")
	ErrDegenerateLikelihood = errors.New("likelihood is zero across the entire grid")

	// Model errors
	ErrConfiguration = errors.New("malformed hyperparameter configuration")
	ErrEmptyTable    = fmt.Errorf("%w: hyperparameter table has no rows", ErrConfiguration)
)

// Error constructors with context
func NewShapeError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInputShape, reason)
}

func NewRangeError(name string, value, lo, hi float64) error {
	return fmt.Errorf("%w: %s %g not in [%g, %g]", ErrOutOfModelRange, name, value, lo, hi)
}

func NewConfigurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInputShape) ||
		errors.Is(err, ErrOutOfModelRange) ||
		errors.Is(err, ErrNonPositiveValue) ||
		errors.Is(err, ErrInvalidArgument)
}

// IsRecoverable reports conditions that degrade to a documented default
// instead of failing the call.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidUnit) ||
		errors.Is(err, ErrGridTooSparse)
}
