package errors

import (
	stderrors "errors"
	"fmt"

	"mrforecast/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeFor(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeDatabaseError        = "DATABASE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInvalidInputShape    = "INVALID_INPUT_SHAPE"
	CodeInvalidUnit          = "INVALID_UNIT"
	CodeOutOfModelRange      = "OUT_OF_MODEL_RANGE"
	CodeNonPositiveValue     = "NON_POSITIVE_VALUE"
	CodeGridTooSparse        = "GRID_TOO_SPARSE"
	CodeDegenerateLikelihood = "DEGENERATE_LIKELIHOOD"
	CodeModelConfiguration   = "MODEL_CONFIGURATION"
)

// CodeFor maps domain sentinels to error codes
func CodeFor(err error) string {
	switch {
	case stderrors.Is(err, core.ErrInvalidInputShape):
		return CodeInvalidInputShape
	case stderrors.Is(err, core.ErrInvalidUnit):
		return CodeInvalidUnit
	case stderrors.Is(err, core.ErrOutOfModelRange):
		return CodeOutOfModelRange
	case stderrors.Is(err, core.ErrNonPositiveValue):
		return CodeNonPositiveValue
	case stderrors.Is(err, core.ErrGridTooSparse):
		return CodeGridTooSparse
	case stderrors.Is(err, core.ErrDegenerateLikelihood):
		return CodeDegenerateLikelihood
	case stderrors.Is(err, core.ErrConfiguration):
		return CodeModelConfiguration
	case stderrors.Is(err, core.ErrInvalidArgument):
		return CodeInvalidInput
	default:
		return CodeInternalError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: message,
		Cause:   cause,
	}
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
