// Package errors provides the domain-layer error taxonomy used by entities,
// value objects and domain services. It deliberately stays small: the richer
// UnifiedError used by the application/service layer (internal/errors) wraps
// these with operation, trace id and retry metadata.
package errors

import (
	"fmt"
)

// ErrorType defines the error-taxonomy kinds from the design's error handling
// section. Every domain-layer failure is one of these.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "INVALID_INPUT"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeConflict    ErrorType = "ALREADY_EXISTS"
	ErrorTypeSchema      ErrorType = "SCHEMA_VIOLATION"
	ErrorTypeCycle       ErrorType = "CYCLE_DETECTED"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
	ErrorTypeInvariant   ErrorType = "INVARIANT_VIOLATION"
	ErrorTypeUnavailable ErrorType = "ADAPTER_UNAVAILABLE"
)

// AppError is the domain-layer error type. It is intentionally plain: no
// trace id, no severity — those are added once an error crosses into the
// application layer (see internal/errors.Wrap).
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates an InvalidInput error.
func NewValidationError(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewConflictError creates an AlreadyExists error.
func NewConflictError(message string) error {
	return &AppError{Type: ErrorTypeConflict, Message: message}
}

// NewSchemaViolationError creates a SchemaViolation error.
func NewSchemaViolationError(message string) error {
	return &AppError{Type: ErrorTypeSchema, Message: message}
}

// NewCycleDetectedError creates a CycleDetected error.
func NewCycleDetectedError(message string) error {
	return &AppError{Type: ErrorTypeCycle, Message: message}
}

// NewInternalError creates an Internal error wrapping a cause.
func NewInternalError(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// NewInvariantViolation creates an InvariantViolation error. These are
// programming errors: they should never be silently swallowed.
func NewInvariantViolation(message string) error {
	return &AppError{Type: ErrorTypeInvariant, Message: message}
}

// NewAdapterUnavailableError creates an AdapterUnavailable error for a failed
// external collaborator (LLM, memory backend, tool adapter).
func NewAdapterUnavailableError(message string, err error) error {
	return &AppError{Type: ErrorTypeUnavailable, Message: message, Err: err}
}

// Wrap preserves the type of an existing AppError while prefixing message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

func typeOf(err error) (ErrorType, bool) {
	appErr, ok := err.(*AppError)
	if !ok {
		return "", false
	}
	return appErr.Type, true
}

func IsValidation(err error) bool  { t, ok := typeOf(err); return ok && t == ErrorTypeValidation }
func IsNotFound(err error) bool    { t, ok := typeOf(err); return ok && t == ErrorTypeNotFound }
func IsConflict(err error) bool    { t, ok := typeOf(err); return ok && t == ErrorTypeConflict }
func IsSchema(err error) bool      { t, ok := typeOf(err); return ok && t == ErrorTypeSchema }
func IsCycle(err error) bool       { t, ok := typeOf(err); return ok && t == ErrorTypeCycle }
func IsInternal(err error) bool    { t, ok := typeOf(err); return ok && t == ErrorTypeInternal }
func IsInvariant(err error) bool   { t, ok := typeOf(err); return ok && t == ErrorTypeInvariant }
func IsUnavailable(err error) bool { t, ok := typeOf(err); return ok && t == ErrorTypeUnavailable }
