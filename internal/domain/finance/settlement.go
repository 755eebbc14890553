package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopadmin/backend/internal/domain/transition"
	"github.com/shopspring/decimal"
)

// SettlementStatus represents the payout status of a settlement
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "PENDING"
	SettlementStatusHold      SettlementStatus = "HOLD"
	SettlementStatusScheduled SettlementStatus = "SCHEDULED"
	SettlementStatusPaid      SettlementStatus = "PAID"
	SettlementStatusClosed    SettlementStatus = "CLOSED"
)

// EntitySettlement is the transition registry and audit target name
const EntitySettlement = "Settlement"

// SettlementStatusGraph is the payout lifecycle
var SettlementStatusGraph = transition.NewGraph(EntitySettlement,
	SettlementStatusPending, SettlementStatusHold, SettlementStatusScheduled,
	SettlementStatusPaid, SettlementStatusClosed,
).
	Allow(SettlementStatusPending, SettlementStatusHold, SettlementStatusScheduled).
	Allow(SettlementStatusHold, SettlementStatusPending, SettlementStatusScheduled).
	Allow(SettlementStatusScheduled, SettlementStatusHold, SettlementStatusPaid).
	Allow(SettlementStatusPaid, SettlementStatusClosed)

// IsValid checks if the status is a declared settlement status
func (s SettlementStatus) IsValid() bool { return SettlementStatusGraph.IsState(s) }

// IsFinal reports whether the settlement was paid out. Final settlements
// are never recalculated or deleted.
func (s SettlementStatus) IsFinal() bool {
	return s == SettlementStatusPaid || s == SettlementStatusClosed
}

// FeePolicy holds the default fee rates applied when a settlement is created
type FeePolicy struct {
	PGFeeRate       decimal.Decimal
	PlatformFeeRate decimal.Decimal
	PayoutDelayDays int
}

// DefaultFeePolicy is 3.3% PG fee, 8% platform fee, payout three days after the order
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		PGFeeRate:       decimal.RequireFromString("0.033"),
		PlatformFeeRate: decimal.RequireFromString("0.08"),
		PayoutDelayDays: 3,
	}
}

// Settlement is the seller payout computed for one order
type Settlement struct {
	shared.BaseEntity
	OrderID            uuid.UUID
	OrderNo            string
	GrossAmount        decimal.Decimal
	DiscountAmount     decimal.Decimal
	ShippingFee        decimal.Decimal
	PGFee              decimal.Decimal
	PlatformFee        decimal.Decimal
	ReturnDeduction    decimal.Decimal
	SettlementAmount   decimal.Decimal
	Status             SettlementStatus
	ExpectedPayoutDate *time.Time
	PaidAt             *time.Time
	Memo               string
}

// NewSettlement computes a pending settlement for an order
func NewSettlement(order *trade.Order, policy FeePolicy, returnDeduction decimal.Decimal, now time.Time) *Settlement {
	gross := order.TotalAmount
	s := &Settlement{
		BaseEntity:      shared.NewBaseEntityAt(now),
		OrderID:         order.ID,
		OrderNo:         order.OrderNo,
		GrossAmount:     gross,
		DiscountAmount:  order.DiscountAmount,
		ShippingFee:     order.ShippingFee,
		PGFee:           gross.Mul(policy.PGFeeRate).Round(0),
		PlatformFee:     gross.Mul(policy.PlatformFeeRate).Round(0),
		ReturnDeduction: returnDeduction,
		Status:          SettlementStatusPending,
	}
	if !order.CreatedAt.IsZero() {
		payout := truncateDay(order.CreatedAt.AddDate(0, 0, policy.PayoutDelayDays))
		s.ExpectedPayoutDate = &payout
	}
	s.recompute()
	return s
}

// Refresh copies the order amounts and the current return deduction into an
// unpaid settlement. Fee amounts set by staff are kept.
func (s *Settlement) Refresh(order *trade.Order, policy FeePolicy, returnDeduction decimal.Decimal, now time.Time) bool {
	if s.Status.IsFinal() {
		return false
	}
	s.GrossAmount = order.TotalAmount
	s.DiscountAmount = order.DiscountAmount
	s.ShippingFee = order.ShippingFee
	s.ReturnDeduction = returnDeduction
	if s.ExpectedPayoutDate == nil && !order.CreatedAt.IsZero() {
		payout := truncateDay(order.CreatedAt.AddDate(0, 0, policy.PayoutDelayDays))
		s.ExpectedPayoutDate = &payout
	}
	s.recompute()
	s.Touch(now)
	return true
}

// SyncReturnHold puts the settlement on hold while the order has an open
// return and releases it afterwards. Paid settlements are left alone and a
// scheduled settlement is not pushed back to pending.
func (s *Settlement) SyncReturnHold(hasOpenReturn bool, now time.Time) {
	if s.Status.IsFinal() {
		return
	}
	target := s.Status
	switch {
	case hasOpenReturn && s.Status != SettlementStatusHold:
		target = SettlementStatusHold
	case !hasOpenReturn && s.Status == SettlementStatusHold:
		target = SettlementStatusPending
	}
	if target != s.Status {
		s.Status = target
		s.Touch(now)
	}
}

// ChangeStatus moves the settlement along SettlementStatusGraph
func (s *Settlement) ChangeStatus(to SettlementStatus, perms identity.PermissionSet, now time.Time) error {
	if !to.IsValid() {
		return shared.NewValidationError("Unknown status", map[string]any{"entity": EntitySettlement, "status": string(to)})
	}
	if err := SettlementStatusGraph.Validate(s.Status, to, perms); err != nil {
		return err
	}
	if s.Status == to {
		return nil
	}
	s.Status = to
	if to == SettlementStatusPaid && s.PaidAt == nil {
		paid := now
		s.PaidAt = &paid
	}
	s.Touch(now)
	return nil
}

// AdjustAmounts overrides fee and deduction amounts and recomputes the payout
func (s *Settlement) AdjustAmounts(pgFee, platformFee, returnDeduction *decimal.Decimal, now time.Time) error {
	if s.Status.IsFinal() {
		return shared.NewValidationError("Paid settlements cannot be adjusted", map[string]any{"status": string(s.Status)})
	}
	for name, v := range map[string]*decimal.Decimal{"pg_fee": pgFee, "platform_fee": platformFee, "return_deduction": returnDeduction} {
		if v != nil && v.IsNegative() {
			return shared.NewValidationError("Amount cannot be negative", map[string]any{name: v.String()})
		}
	}
	if pgFee != nil {
		s.PGFee = *pgFee
	}
	if platformFee != nil {
		s.PlatformFee = *platformFee
	}
	if returnDeduction != nil {
		s.ReturnDeduction = *returnDeduction
	}
	s.recompute()
	s.Touch(now)
	return nil
}

// SetPayoutDate sets the expected payout date
func (s *Settlement) SetPayoutDate(date *time.Time, now time.Time) {
	if date != nil {
		d := truncateDay(*date)
		date = &d
	}
	s.ExpectedPayoutDate = date
	s.Touch(now)
}

// SetMemo sets the staff memo
func (s *Settlement) SetMemo(memo string, now time.Time) {
	s.Memo = memo
	s.Touch(now)
}

// CanDelete reports whether the settlement may be removed
func (s *Settlement) CanDelete() error {
	if s.Status.IsFinal() {
		return shared.NewValidationError("Paid settlements cannot be deleted", map[string]any{"status": string(s.Status)})
	}
	return nil
}

func (s *Settlement) recompute() {
	s.SettlementAmount = s.GrossAmount.Sub(s.PGFee).Sub(s.PlatformFee).Sub(s.ReturnDeduction)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
