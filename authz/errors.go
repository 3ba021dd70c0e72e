package authz

import (
	"errors"
	"fmt"
)

// ErrorType categorizes authorization errors.
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeEvaluation    ErrorType = "evaluation"
)

// DomainError is a structured error carrying its category. Routine
// authorization outcomes are booleans, never errors; the error surface here
// exists for misconfiguration and diagnostics.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on error category, so errors.Is works through fmt wrapping.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

var (
	// ErrInvalidMode is the only error this subsystem surfaces as a hard
	// failure: an unknown combination mode must be caught at bootstrap,
	// not silently tolerated at decision time.
	ErrInvalidMode = NewDomainError(ErrorTypeConfiguration, "invalid policy engine mode", nil)

	// ErrPolicyNotFound marks an Authorize target that resolved to
	// nothing. It is logged and absorbed into a false verdict, never
	// returned to callers.
	ErrPolicyNotFound = NewDomainError(ErrorTypeNotFound, "policy not found", nil)

	// ErrRuleNotFound is returned by Engine.EvaluateRule when no
	// registered rule carries the requested name.
	ErrRuleNotFound = NewDomainError(ErrorTypeNotFound, "policy rule not found", nil)
)

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConfiguration
	}
	return false
}

// IsNotFoundError reports whether err is a not-found error.
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}
