package shared

import "errors"

// Error codes surfaced by the admin core. They are stable strings shared by
// the domain, the pipeline and the HTTP envelope.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidCreds = "INVALID_CREDENTIALS"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies with different details
// still satisfy errors.Is against the sentinels below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithDetails returns a copy of the error carrying the given details.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR with field details.
func NewValidationError(message string, details map[string]any) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message, Details: details}
}

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrUnauthorized       = NewDomainError(CodeUnauthorized, "Authentication required")
	ErrForbidden          = NewDomainError(CodeForbidden, "You do not have permission to perform this action")
	ErrValidation         = NewDomainError(CodeValidation, "Request validation failed")
	ErrConflict           = NewDomainError(CodeConflict, "A request with this idempotency key is already in progress")
	ErrInvalidCredentials = NewDomainError(CodeInvalidCreds, "Invalid email or password")

	ErrConcurrentModification = NewDomainError(CodeConflict, "The record was modified by another request, please retry")
)

// CodeOf extracts the domain error code from err, or CodeInternal.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
