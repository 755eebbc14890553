package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/transition"
	"github.com/shopspring/decimal"
)

// ReturnStatus represents the status of a return/refund request
type ReturnStatus string

const (
	ReturnStatusRequested       ReturnStatus = "REQUESTED"
	ReturnStatusApproved        ReturnStatus = "APPROVED"
	ReturnStatusPickupScheduled ReturnStatus = "PICKUP_SCHEDULED"
	ReturnStatusReceived        ReturnStatus = "RECEIVED"
	ReturnStatusRefunding       ReturnStatus = "REFUNDING"
	ReturnStatusRefunded        ReturnStatus = "REFUNDED"
	ReturnStatusRejected        ReturnStatus = "REJECTED"
	ReturnStatusClosed          ReturnStatus = "CLOSED"
)

// EntityReturnRequest is the transition registry and audit target name
const EntityReturnRequest = "ReturnRequest"

// ReturnStatusGraph is the return lifecycle. Every edge into REFUNDING or
// REFUNDED requires REFUND_EXECUTE.
var ReturnStatusGraph = transition.NewGraph(EntityReturnRequest,
	ReturnStatusRequested, ReturnStatusApproved, ReturnStatusPickupScheduled,
	ReturnStatusReceived, ReturnStatusRefunding, ReturnStatusRefunded,
	ReturnStatusRejected, ReturnStatusClosed,
).
	Allow(ReturnStatusRequested, ReturnStatusApproved, ReturnStatusRejected).
	Allow(ReturnStatusApproved, ReturnStatusPickupScheduled, ReturnStatusReceived, ReturnStatusRejected).
	AllowWith(ReturnStatusApproved, ReturnStatusRefunding, identity.PermRefundExecute).
	Allow(ReturnStatusPickupScheduled, ReturnStatusReceived).
	AllowWith(ReturnStatusReceived, ReturnStatusRefunding, identity.PermRefundExecute).
	AllowWith(ReturnStatusRefunding, ReturnStatusRefunded, identity.PermRefundExecute).
	Allow(ReturnStatusRejected, ReturnStatusClosed)

// OpenReturnStatuses are the statuses that keep a settlement on hold
var OpenReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusPickupScheduled,
	ReturnStatusReceived,
	ReturnStatusRefunding,
}

// IsValid checks if the status is a declared return status
func (s ReturnStatus) IsValid() bool { return ReturnStatusGraph.IsState(s) }

// IsOpen reports whether the return is still being processed
func (s ReturnStatus) IsOpen() bool {
	for _, open := range OpenReturnStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// ReturnRequest is a customer return or refund request handled by staff
type ReturnRequest struct {
	shared.BaseEntity
	OrderID           uuid.UUID
	OrderNo           string
	Status            ReturnStatus
	ReasonTitle       string
	ReasonDetail      string
	RequestedAmount   decimal.Decimal
	ApprovedAmount    decimal.Decimal
	RejectedReason    string
	PickupCourierName string
	PickupTrackingNo  string
	AdminNote         string
	RequestedAt       time.Time
	ApprovedAt        *time.Time
	ReceivedAt        *time.Time
	RefundedAt        *time.Time
	ClosedAt          *time.Time
}

// NewReturnRequest opens a return against a paid order. A nil requested
// amount defaults to the order total.
func NewReturnRequest(order *Order, reasonTitle, reasonDetail string, requested *decimal.Decimal, now time.Time) (*ReturnRequest, error) {
	reasonTitle = strings.TrimSpace(reasonTitle)
	if reasonTitle == "" {
		return nil, shared.NewValidationError("Reason title cannot be empty", map[string]any{"reason_title": "required"})
	}
	if len(reasonTitle) > 200 {
		return nil, shared.NewValidationError("Reason title cannot exceed 200 characters", nil)
	}
	if order.Status != OrderStatusPaid && order.Status != OrderStatusPartialRefunded {
		return nil, shared.NewValidationError("Order is not eligible for a return",
			map[string]any{"order_no": order.OrderNo, "status": string(order.Status)})
	}

	amount := order.TotalAmount
	if requested != nil {
		amount = *requested
	}
	if amount.IsNegative() || amount.GreaterThan(order.TotalAmount) {
		return nil, shared.NewValidationError("Requested amount must be between 0 and the order total",
			map[string]any{"requested_amount": amount.String()})
	}

	return &ReturnRequest{
		BaseEntity:      shared.NewBaseEntityAt(now),
		OrderID:         order.ID,
		OrderNo:         order.OrderNo,
		Status:          ReturnStatusRequested,
		ReasonTitle:     reasonTitle,
		ReasonDetail:    strings.TrimSpace(reasonDetail),
		RequestedAmount: amount,
		ApprovedAmount:  decimal.Zero,
		RequestedAt:     now,
	}, nil
}

// ChangeStatus moves the return along ReturnStatusGraph and stamps the
// milestone timestamps on first arrival.
func (r *ReturnRequest) ChangeStatus(to ReturnStatus, perms identity.PermissionSet, now time.Time) error {
	if !to.IsValid() {
		return invalidStatus(EntityReturnRequest, string(to))
	}
	if err := ReturnStatusGraph.Validate(r.Status, to, perms); err != nil {
		return err
	}
	if r.Status == to {
		return nil
	}
	r.Status = to
	switch to {
	case ReturnStatusApproved:
		stamp(&r.ApprovedAt, now)
	case ReturnStatusReceived:
		stamp(&r.ReceivedAt, now)
	case ReturnStatusRefunded:
		stamp(&r.RefundedAt, now)
	case ReturnStatusRejected, ReturnStatusClosed:
		stamp(&r.ClosedAt, now)
	}
	r.Touch(now)
	return nil
}

// SetApprovedAmount sets the amount staff agreed to refund
func (r *ReturnRequest) SetApprovedAmount(amount decimal.Decimal, orderTotal decimal.Decimal) error {
	if amount.IsNegative() || amount.GreaterThan(orderTotal) {
		return shared.NewValidationError("Approved amount must be between 0 and the order total",
			map[string]any{"approved_amount": amount.String()})
	}
	r.ApprovedAmount = amount
	return nil
}

// RefundAmount is the amount a refund pays out: the approved amount when
// set, otherwise the requested amount.
func (r *ReturnRequest) RefundAmount() decimal.Decimal {
	if r.ApprovedAmount.IsPositive() {
		return r.ApprovedAmount
	}
	return r.RequestedAmount
}

// IsOpen reports whether the return still blocks settlement
func (r *ReturnRequest) IsOpen() bool {
	return r.Status.IsOpen()
}

func stamp(field **time.Time, now time.Time) {
	if *field == nil {
		t := now
		*field = &t
	}
}
