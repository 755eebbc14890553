package admin

import (
	"context"
	"errors"
	"time"

	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
)

// refreshSettlement recomputes the settlement of order, if one exists, from
// the current order amounts, executed refunds and open returns. Paid
// settlements are left untouched.
func refreshSettlement(
	ctx context.Context,
	repos Repositories,
	policy finance.FeePolicy,
	order *trade.Order,
	now time.Time,
) (*finance.Settlement, error) {
	s, err := repos.Settlements().FindByOrderID(ctx, order.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Status.IsFinal() {
		return s, nil
	}

	deduction, err := repos.Refunds().SumByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	open, err := repos.Returns().HasOpenForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.Refresh(order, policy, deduction, now)
	s.SyncReturnHold(open, now)
	if err := repos.Settlements().Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
