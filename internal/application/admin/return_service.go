package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
)

// ReturnService handles return and refund requests
type ReturnService struct {
	pipeline *Pipeline
	policy   finance.FeePolicy
}

// NewReturnService creates a new ReturnService
func NewReturnService(pipeline *Pipeline, policy finance.FeePolicy) *ReturnService {
	return &ReturnService{
		pipeline: pipeline,
		policy:   policy,
	}
}

// ===================== Query Methods =====================

// List returns a page of return requests
func (s *ReturnService) List(ctx context.Context, actor Actor, filter trade.ReturnFilter) (any, error) {
	return s.pipeline.Read(ctx, actor, Read{Permission: identity.PermReturnView, TargetType: audit.TargetReturnRequest},
		func(ctx context.Context, repos Repositories) (any, error) {
			rets, total, err := repos.Returns().FindAll(ctx, filter)
			if err != nil {
				return nil, err
			}
			items := make([]ReturnResponse, len(rets))
			for i, r := range rets {
				items[i] = NewReturnResponse(r)
			}
			return shared.NewPaginated(items, total, filter.Page), nil
		})
}

// ===================== Command Methods =====================

// Create opens a return request against a paid order and puts the order's
// settlement on hold
func (s *ReturnService) Create(ctx context.Context, actor Actor, in CreateReturnInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointCreateReturn,
		Permission:     identity.PermReturnUpdate,
		Action:         audit.ActionReturnCreated,
		TargetType:     audit.TargetReturnRequest,
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		order, err := repos.Orders().FindByOrderNo(ctx, strings.TrimSpace(in.OrderNo))
		if err != nil {
			return nil, err
		}
		now := s.pipeline.Clock().Now()
		ret, err := trade.NewReturnRequest(order, in.ReasonTitle, in.ReasonDetail, in.RequestedAmount, now)
		if err != nil {
			return nil, err
		}
		if err := repos.Returns().Create(ctx, ret); err != nil {
			return nil, err
		}
		if _, err := refreshSettlement(ctx, repos, s.policy, order, now); err != nil {
			return nil, err
		}

		return &Change{
			TargetID:   ret.ID.String(),
			After:      returnSnapshot(ret),
			Metadata:   map[string]any{"order_no": order.OrderNo, "requested_amount": ret.RequestedAmount.String()},
			StatusCode: http.StatusCreated,
			Message:    "Return request created",
			Data:       NewReturnResponse(ret),
		}, nil
	})
}

// Update changes a return request. Reaching REFUNDED executes the refund
// exactly once: a refund record is written, the order moves to REFUNDED or
// PARTIAL_REFUNDED with its payment canceled, and the settlement absorbs the
// deduction.
func (s *ReturnService) Update(ctx context.Context, actor Actor, in UpdateReturnInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointUpdateReturn,
		Permission:     identity.PermReturnUpdate,
		Action:         audit.ActionReturnUpdated,
		TargetType:     audit.TargetReturnRequest,
		TargetID:       in.ID.String(),
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		if in.isEmpty() {
			return nil, shared.NewValidationError("No changes requested", nil)
		}
		ret, err := repos.Returns().FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		order, err := repos.Orders().FindByID(ctx, ret.OrderID)
		if err != nil {
			return nil, err
		}
		before := returnSnapshot(ret)
		now := s.pipeline.Clock().Now()
		wasRefunded := ret.Status == trade.ReturnStatusRefunded

		if in.ApprovedAmount != nil {
			if err := ret.SetApprovedAmount(*in.ApprovedAmount, order.TotalAmount); err != nil {
				return nil, err
			}
		}
		if in.RejectedReason != nil {
			ret.RejectedReason = strings.TrimSpace(*in.RejectedReason)
		}
		if in.PickupCourierName != nil {
			ret.PickupCourierName = strings.TrimSpace(*in.PickupCourierName)
		}
		if in.PickupTrackingNo != nil {
			ret.PickupTrackingNo = strings.TrimSpace(*in.PickupTrackingNo)
		}
		if in.AdminNote != nil {
			ret.AdminNote = *in.AdminNote
		}
		if in.Status != nil {
			if err := ret.ChangeStatus(trade.ReturnStatus(*in.Status), actor.Permissions, now); err != nil {
				return nil, err
			}
		}
		ret.Touch(now)

		change := &Change{Before: before, Message: "Return request updated"}
		if !wasRefunded && ret.Status == trade.ReturnStatusRefunded {
			refund, err := s.executeRefund(ctx, repos, actor, ret, order, now)
			if err != nil {
				return nil, err
			}
			change.Action = audit.ActionRefundExecuted
			change.Message = "Refund executed"
			change.Metadata = map[string]any{
				"order_no":      order.OrderNo,
				"refund_id":     refund.ID.String(),
				"refund_amount": refund.Amount.String(),
				"order_status":  string(order.Status),
			}
		}

		if err := repos.Returns().Save(ctx, ret); err != nil {
			return nil, err
		}
		if _, err := refreshSettlement(ctx, repos, s.policy, order, now); err != nil {
			return nil, err
		}

		change.After = returnSnapshot(ret)
		change.Data = NewReturnResponse(ret)
		return change, nil
	})
}

// executeRefund writes the refund record and applies it to the order. A
// return that already has a refund record is never refunded again.
func (s *ReturnService) executeRefund(
	ctx context.Context,
	repos Repositories,
	actor Actor,
	ret *trade.ReturnRequest,
	order *trade.Order,
	now time.Time,
) (*trade.RefundRecord, error) {
	n, err := repos.Refunds().CountByReturn(ctx, ret.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, shared.NewDomainError(shared.CodeConflict, "Refund was already executed for this return")
	}

	refund, err := trade.NewRefundRecord(ret, actor.ID, now)
	if err != nil {
		return nil, err
	}
	refunded, err := repos.Refunds().SumByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := order.ApplyRefund(refunded.Add(refund.Amount), actor.Permissions, now); err != nil {
		return nil, err
	}
	if err := repos.Refunds().Create(ctx, refund); err != nil {
		return nil, err
	}
	if err := repos.Orders().Save(ctx, order); err != nil {
		return nil, err
	}
	return refund, nil
}

// Delete removes a return request that has not been refunded and releases
// the settlement hold when no other return is open
func (s *ReturnService) Delete(ctx context.Context, actor Actor, in DeleteReturnInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointDeleteReturn,
		Permission:     identity.PermReturnUpdate,
		Action:         audit.ActionReturnDeleted,
		TargetType:     audit.TargetReturnRequest,
		TargetID:       in.ID.String(),
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		ret, err := repos.Returns().FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		n, err := repos.Refunds().CountByReturn(ctx, ret.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 || ret.Status == trade.ReturnStatusRefunded {
			return nil, shared.NewValidationError("Refunded returns cannot be deleted",
				map[string]any{"status": string(ret.Status)})
		}
		if err := repos.Returns().Delete(ctx, ret.ID); err != nil {
			return nil, err
		}

		order, err := repos.Orders().FindByID(ctx, ret.OrderID)
		if err != nil {
			return nil, err
		}
		if _, err := refreshSettlement(ctx, repos, s.policy, order, s.pipeline.Clock().Now()); err != nil {
			return nil, err
		}

		return &Change{
			Before:   returnSnapshot(ret),
			Metadata: map[string]any{"order_no": ret.OrderNo},
			Message:  "Return request deleted",
			Data:     map[string]any{"id": ret.ID.String(), "deleted": true},
		}, nil
	})
}
