// Package audit holds the append-only admin audit trail.
package audit

import (
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// Action is the audited action code
type Action string

const (
	ActionOrderUpdated        Action = "ORDER_UPDATED"
	ActionReturnCreated       Action = "RETURN_CREATED"
	ActionReturnUpdated       Action = "RETURN_UPDATED"
	ActionReturnDeleted       Action = "RETURN_DELETED"
	ActionRefundExecuted      Action = "REFUND_EXECUTED"
	ActionSettlementGenerated Action = "SETTLEMENT_GENERATED"
	ActionSettlementUpdated   Action = "SETTLEMENT_UPDATED"
	ActionSettlementDeleted   Action = "SETTLEMENT_DELETED"
	ActionAdminRoleChanged    Action = "ADMIN_ROLE_CHANGED"
	ActionStaffUpdated        Action = "STAFF_UPDATED"
	ActionStaffDeactivated    Action = "STAFF_DEACTIVATED"
	ActionPIIFullView         Action = "PII_FULL_VIEW"
)

// AllActions returns every audit action
func AllActions() []Action {
	return []Action{
		ActionOrderUpdated,
		ActionReturnCreated,
		ActionReturnUpdated,
		ActionReturnDeleted,
		ActionRefundExecuted,
		ActionSettlementGenerated,
		ActionSettlementUpdated,
		ActionSettlementDeleted,
		ActionAdminRoleChanged,
		ActionStaffUpdated,
		ActionStaffDeactivated,
		ActionPIIFullView,
	}
}

// IsValid checks if the action is known
func (a Action) IsValid() bool {
	for _, known := range AllActions() {
		if a == known {
			return true
		}
	}
	return false
}

// Result is the outcome recorded with an audit entry
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFail    Result = "FAIL"
)

// Target types
const (
	TargetOrder         = "Order"
	TargetReturnRequest = "ReturnRequest"
	TargetSettlement    = "Settlement"
	TargetUser          = "User"
)

// AuditLog is one immutable audit row. It is created once and never updated.
type AuditLog struct {
	ID             uuid.UUID          `json:"id"`
	OccurredAt     time.Time          `json:"occurred_at"`
	ActorID        *uuid.UUID         `json:"actor_id,omitempty"`
	ActorRole      identity.AdminRole `json:"actor_role"`
	Action         Action             `json:"action"`
	TargetType     string             `json:"target_type"`
	TargetID       string             `json:"target_id"`
	RequestID      string             `json:"request_id,omitempty"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
	IPAddress      string             `json:"ip_address,omitempty"`
	UserAgent      string             `json:"user_agent,omitempty"`
	Before         map[string]any     `json:"before,omitempty"`
	After          map[string]any     `json:"after,omitempty"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	Result         Result             `json:"result"`
	ErrorCode      string             `json:"error_code,omitempty"`
}

// NewAuditLog validates and creates an audit row
func NewAuditLog(action Action, targetType, targetID string, result Result, occurredAt time.Time) (*AuditLog, error) {
	if !action.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInternal, "Invalid audit action: "+string(action))
	}
	if targetType == "" {
		return nil, shared.NewDomainError(shared.CodeInternal, "Audit target type cannot be empty")
	}
	if result != ResultSuccess && result != ResultFail {
		return nil, shared.NewDomainError(shared.CodeInternal, "Invalid audit result: "+string(result))
	}
	return &AuditLog{
		ID:         uuid.New(),
		OccurredAt: occurredAt,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Result:     result,
	}, nil
}

// GetBefore returns a copy of the before snapshot
func (l *AuditLog) GetBefore() map[string]any {
	return copyMap(l.Before)
}

// GetAfter returns a copy of the after snapshot
func (l *AuditLog) GetAfter() map[string]any {
	return copyMap(l.After)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
