package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNo finds an order by its public order number
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// FindAll returns orders matching the filter, newest first
	FindAll(ctx context.Context, filter OrderFilter) ([]*Order, int64, error)

	// FindPaid returns up to limit orders whose payment was approved, newest first
	FindPaid(ctx context.Context, limit int) ([]*Order, error)

	// Create stores a new order
	Create(ctx context.Context, order *Order) error

	// Save updates an existing order
	Save(ctx context.Context, order *Order) error
}

// OrderFilter contains filter options for querying orders
type OrderFilter struct {
	// Search keyword for order number, recipient, phone, email or address
	Keyword        string
	Status         *OrderStatus
	PaymentStatus  *PaymentStatus
	ShippingStatus *ShippingStatus
	HasOpenReturn  bool

	shared.Page
}

// ReturnRequestRepository defines the interface for return request persistence
type ReturnRequestRepository interface {
	// FindByID finds a return request by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnRequest, error)

	// FindAll returns return requests matching the filter, newest first
	FindAll(ctx context.Context, filter ReturnFilter) ([]*ReturnRequest, int64, error)

	// Create stores a new return request
	Create(ctx context.Context, ret *ReturnRequest) error

	// Save updates an existing return request
	Save(ctx context.Context, ret *ReturnRequest) error

	// Delete removes a return request
	Delete(ctx context.Context, id uuid.UUID) error

	// HasOpenForOrder reports whether the order has a return in an open status
	HasOpenForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// ReturnFilter contains filter options for querying return requests
type ReturnFilter struct {
	Keyword string
	Status  *ReturnStatus
	OrderID *uuid.UUID

	shared.Page
}

// RefundRecordRepository defines the interface for refund persistence
type RefundRecordRepository interface {
	// Create stores a refund row
	Create(ctx context.Context, rec *RefundRecord) error

	// CountByReturn counts refunds executed for a return
	CountByReturn(ctx context.Context, returnID uuid.UUID) (int64, error)

	// SumByOrder totals every refund executed against an order
	SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
}
