package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// DefaultGenerateLimit caps the orders considered by one generation run
const DefaultGenerateLimit = 500

// SettlementService handles seller settlements
type SettlementService struct {
	pipeline      *Pipeline
	policy        finance.FeePolicy
	generateLimit int
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(pipeline *Pipeline, policy finance.FeePolicy, generateLimit int) *SettlementService {
	if generateLimit <= 0 {
		generateLimit = DefaultGenerateLimit
	}
	return &SettlementService{
		pipeline:      pipeline,
		policy:        policy,
		generateLimit: generateLimit,
	}
}

// ===================== Query Methods =====================

// List returns a page of settlements
func (s *SettlementService) List(ctx context.Context, actor Actor, filter finance.SettlementFilter) (any, error) {
	return s.pipeline.Read(ctx, actor, Read{Permission: identity.PermSettlementView, TargetType: audit.TargetSettlement},
		func(ctx context.Context, repos Repositories) (any, error) {
			rows, total, err := repos.Settlements().FindAll(ctx, filter)
			if err != nil {
				return nil, err
			}
			items := make([]SettlementResponse, len(rows))
			for i, row := range rows {
				items[i] = NewSettlementResponse(row)
			}
			return shared.NewPaginated(items, total, filter.Page), nil
		})
}

// ===================== Command Methods =====================

// Generate creates a pending settlement for every paid order that has
// none. Orders with an open return start on HOLD.
func (s *SettlementService) Generate(ctx context.Context, actor Actor, in GenerateSettlementsInput) (*Result, error) {
	limit := in.Limit
	if limit <= 0 || limit > s.generateLimit {
		limit = s.generateLimit
	}
	m := Mutation{
		Endpoint:       EndpointGenerateSettlements,
		Permission:     identity.PermSettlementUpdate,
		Action:         audit.ActionSettlementGenerated,
		TargetType:     audit.TargetSettlement,
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		orders, err := repos.Orders().FindPaid(ctx, limit)
		if err != nil {
			return nil, err
		}
		now := s.pipeline.Clock().Now()
		result := GenerateSettlementsResult{SettlementIDs: []uuid.UUID{}}

		for _, order := range orders {
			_, err := repos.Settlements().FindByOrderID(ctx, order.ID)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}

			deduction, err := repos.Refunds().SumByOrder(ctx, order.ID)
			if err != nil {
				return nil, err
			}
			open, err := repos.Returns().HasOpenForOrder(ctx, order.ID)
			if err != nil {
				return nil, err
			}
			st := finance.NewSettlement(order, s.policy, deduction, now)
			st.SyncReturnHold(open, now)
			if err := repos.Settlements().Create(ctx, st); err != nil {
				return nil, err
			}
			result.Created++
			result.SettlementIDs = append(result.SettlementIDs, st.ID)
		}

		return &Change{
			TargetID:   "batch",
			Metadata:   map[string]any{"created": result.Created, "skipped": result.Skipped, "limit": limit},
			StatusCode: http.StatusCreated,
			Message:    "Settlements generated",
			Data:       result,
		}, nil
	})
}

// Update changes a settlement's status, amounts, payout date or memo
func (s *SettlementService) Update(ctx context.Context, actor Actor, in UpdateSettlementInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointUpdateSettlement,
		Permission:     identity.PermSettlementUpdate,
		Action:         audit.ActionSettlementUpdated,
		TargetType:     audit.TargetSettlement,
		TargetID:       in.ID.String(),
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		if in.isEmpty() {
			return nil, shared.NewValidationError("No changes requested", nil)
		}
		st, err := repos.Settlements().FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		before := settlementSnapshot(st)
		now := s.pipeline.Clock().Now()

		if in.PGFee != nil || in.PlatformFee != nil || in.ReturnDeduction != nil {
			if err := st.AdjustAmounts(in.PGFee, in.PlatformFee, in.ReturnDeduction, now); err != nil {
				return nil, err
			}
		}
		if in.ExpectedPayoutDate != nil {
			st.SetPayoutDate(in.ExpectedPayoutDate, now)
		}
		if in.Memo != nil {
			st.SetMemo(*in.Memo, now)
		}
		if in.Status != nil {
			if err := st.ChangeStatus(finance.SettlementStatus(*in.Status), actor.Permissions, now); err != nil {
				return nil, err
			}
		}
		if err := repos.Settlements().Save(ctx, st); err != nil {
			return nil, err
		}

		return &Change{
			Before:  before,
			After:   settlementSnapshot(st),
			Message: "Settlement updated",
			Data:    NewSettlementResponse(st),
		}, nil
	})
}

// Delete removes a settlement that has not been paid out
func (s *SettlementService) Delete(ctx context.Context, actor Actor, in DeleteSettlementInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointDeleteSettlement,
		Permission:     identity.PermSettlementUpdate,
		Action:         audit.ActionSettlementDeleted,
		TargetType:     audit.TargetSettlement,
		TargetID:       in.ID.String(),
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		st, err := repos.Settlements().FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if err := st.CanDelete(); err != nil {
			return nil, err
		}
		if err := repos.Settlements().Delete(ctx, st.ID); err != nil {
			return nil, err
		}
		return &Change{
			Before:   settlementSnapshot(st),
			Metadata: map[string]any{"order_no": st.OrderNo},
			Message:  "Settlement deleted",
			Data:     map[string]any{"id": st.ID.String(), "deleted": true},
		}, nil
	})
}
