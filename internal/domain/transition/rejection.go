package transition

import (
	"fmt"

	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// Reason classifies a rejected transition
type Reason string

const (
	ReasonNoSuchEdge       Reason = "NO_SUCH_EDGE"
	ReasonPermissionDenied Reason = "PERMISSION_DENIED"
)

// Rejection is returned when a transition is not allowed. It unwraps to a
// DomainError so callers can map it with errors.As.
type Rejection struct {
	Entity   string
	From     string
	To       string
	Reason   Reason
	Required identity.Permission
}

// Error implements the error interface
func (r *Rejection) Error() string {
	if r.Reason == ReasonPermissionDenied {
		return fmt.Sprintf("%s transition %s -> %s requires %s", r.Entity, r.From, r.To, r.Required)
	}
	return fmt.Sprintf("%s cannot transition from %s to %s", r.Entity, r.From, r.To)
}

// Unwrap returns the DomainError form: VALIDATION_ERROR for a missing edge,
// FORBIDDEN for a guarded edge.
func (r *Rejection) Unwrap() error {
	return r.DomainError()
}

// DomainError converts the rejection into the error taxonomy
func (r *Rejection) DomainError() *shared.DomainError {
	details := map[string]any{
		"entity": r.Entity,
		"from":   r.From,
		"to":     r.To,
		"reason": string(r.Reason),
	}
	if r.Reason == ReasonPermissionDenied {
		details["required_permission"] = string(r.Required)
		return &shared.DomainError{Code: shared.CodeForbidden, Message: r.Error(), Details: details}
	}
	return &shared.DomainError{Code: shared.CodeValidation, Message: r.Error(), Details: details}
}
