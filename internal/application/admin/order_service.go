package admin

import (
	"context"

	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
)

// OrderService handles back-office order operations
type OrderService struct {
	pipeline *Pipeline
	policy   finance.FeePolicy
}

// NewOrderService creates a new OrderService
func NewOrderService(pipeline *Pipeline, policy finance.FeePolicy) *OrderService {
	return &OrderService{
		pipeline: pipeline,
		policy:   policy,
	}
}

// ===================== Query Methods =====================

// List returns a page of orders, masked for the actor
func (s *OrderService) List(ctx context.Context, actor Actor, filter trade.OrderFilter) (any, error) {
	return s.pipeline.Read(ctx, actor, Read{Permission: identity.PermOrderView, TargetType: audit.TargetOrder},
		func(ctx context.Context, repos Repositories) (any, error) {
			orders, total, err := repos.Orders().FindAll(ctx, filter)
			if err != nil {
				return nil, err
			}
			items := make([]OrderResponse, len(orders))
			for i, o := range orders {
				items[i] = NewOrderResponse(o)
			}
			return shared.NewPaginated(items, total, filter.Page), nil
		})
}

// Get returns one order by its order number
func (s *OrderService) Get(ctx context.Context, actor Actor, orderNo string) (any, error) {
	return s.pipeline.Read(ctx, actor, Read{Permission: identity.PermOrderView, TargetType: audit.TargetOrder, TargetID: orderNo},
		func(ctx context.Context, repos Repositories) (any, error) {
			order, err := repos.Orders().FindByOrderNo(ctx, orderNo)
			if err != nil {
				return nil, err
			}
			return NewOrderResponse(order), nil
		})
}

// ===================== Command Methods =====================

// Update applies shipping info and status changes to an order. Every
// status change is checked against the order graphs, and the order's
// settlement is refreshed when it exists.
func (s *OrderService) Update(ctx context.Context, actor Actor, in UpdateOrderInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointUpdateOrder,
		Permission:     identity.PermOrderUpdate,
		Action:         audit.ActionOrderUpdated,
		TargetType:     audit.TargetOrder,
		TargetID:       in.OrderNo,
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		if in.isEmpty() {
			return nil, shared.NewValidationError("No changes requested", nil)
		}
		order, err := repos.Orders().FindByOrderNo(ctx, in.OrderNo)
		if err != nil {
			return nil, err
		}
		before := orderSnapshot(order)
		now := s.pipeline.Clock().Now()
		perms := actor.Permissions

		if in.CourierName != nil || in.TrackingNo != nil {
			order.SetShippingInfo(in.CourierName, in.TrackingNo, now)
		}
		if in.Status != nil {
			if err := order.ChangeStatus(trade.OrderStatus(*in.Status), perms, now); err != nil {
				return nil, err
			}
		}
		if in.PaymentStatus != nil {
			if err := order.ChangePaymentStatus(trade.PaymentStatus(*in.PaymentStatus), perms, now); err != nil {
				return nil, err
			}
		}
		if in.ShippingStatus != nil {
			if err := order.ChangeShippingStatus(trade.ShippingStatus(*in.ShippingStatus), perms, now); err != nil {
				return nil, err
			}
		}
		if in.IssueInvoice {
			if err := order.IssueInvoice(perms, now); err != nil {
				return nil, err
			}
		}
		if in.MarkDelivered {
			if err := order.MarkDelivered(perms, now); err != nil {
				return nil, err
			}
		}

		if err := repos.Orders().Save(ctx, order); err != nil {
			return nil, err
		}
		if _, err := refreshSettlement(ctx, repos, s.policy, order, now); err != nil {
			return nil, err
		}

		return &Change{
			TargetID: order.OrderNo,
			Before:   before,
			After:    orderSnapshot(order),
			Message:  "Order updated",
			Data:     NewOrderResponse(order),
		}, nil
	})
}
