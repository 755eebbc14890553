package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RefundRecord is written once per executed refund. It is the money-moving
// side effect of a return reaching REFUNDED.
type RefundRecord struct {
	ID         uuid.UUID
	ReturnID   uuid.UUID
	OrderID    uuid.UUID
	Amount     decimal.Decimal
	ExecutedBy uuid.UUID
	ExecutedAt time.Time
}

// NewRefundRecord creates the refund row for a return
func NewRefundRecord(ret *ReturnRequest, executedBy uuid.UUID, now time.Time) (*RefundRecord, error) {
	amount := ret.RefundAmount()
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Refund amount must be positive",
			map[string]any{"return_id": ret.ID.String()})
	}
	return &RefundRecord{
		ID:         uuid.New(),
		ReturnID:   ret.ID,
		OrderID:    ret.OrderID,
		Amount:     amount,
		ExecutedBy: executedBy,
		ExecutedAt: now,
	}, nil
}
