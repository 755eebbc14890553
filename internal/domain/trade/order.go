package trade

import (
	"strings"
	"time"

	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/transition"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusFailed          OrderStatus = "FAILED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRefunded        OrderStatus = "REFUNDED"
	OrderStatusPartialRefunded OrderStatus = "PARTIAL_REFUNDED"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusReady    PaymentStatus = "READY"
	PaymentStatusApproved PaymentStatus = "APPROVED"
	PaymentStatusCanceled PaymentStatus = "CANCELED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

// ShippingStatus represents the fulfilment state of an order
type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "PENDING"
	ShippingStatusReady     ShippingStatus = "READY"
	ShippingStatusPreparing ShippingStatus = "PREPARING"
	ShippingStatusShipping  ShippingStatus = "SHIPPING"
	ShippingStatusDelivered ShippingStatus = "DELIVERED"
)

// Entity names used by the transition registry and audit target types
const (
	EntityOrder    = "Order"
	EntityPayment  = "Payment"
	EntityShipping = "Shipping"
)

// OrderStatusGraph is the order lifecycle. Refund edges require REFUND_EXECUTE.
var OrderStatusGraph = transition.NewGraph(EntityOrder,
	OrderStatusPending, OrderStatusPaid, OrderStatusFailed,
	OrderStatusCanceled, OrderStatusRefunded, OrderStatusPartialRefunded,
).
	Allow(OrderStatusPending, OrderStatusPaid, OrderStatusFailed, OrderStatusCanceled).
	Allow(OrderStatusPaid, OrderStatusCanceled).
	AllowWith(OrderStatusPaid, OrderStatusRefunded, identity.PermRefundExecute).
	AllowWith(OrderStatusPaid, OrderStatusPartialRefunded, identity.PermRefundExecute).
	AllowWith(OrderStatusPartialRefunded, OrderStatusRefunded, identity.PermRefundExecute).
	Allow(OrderStatusFailed, OrderStatusPending)

// PaymentStatusGraph is the payment lifecycle. Canceling an approved payment is a refund.
var PaymentStatusGraph = transition.NewGraph(EntityPayment,
	PaymentStatusUnpaid, PaymentStatusReady, PaymentStatusApproved,
	PaymentStatusCanceled, PaymentStatusFailed,
).
	Allow(PaymentStatusUnpaid, PaymentStatusReady, PaymentStatusCanceled).
	Allow(PaymentStatusReady, PaymentStatusApproved, PaymentStatusFailed, PaymentStatusCanceled).
	Allow(PaymentStatusFailed, PaymentStatusReady).
	AllowWith(PaymentStatusApproved, PaymentStatusCanceled, identity.PermRefundExecute)

// ShippingStatusGraph is the fulfilment lifecycle. DELIVERED is only
// reachable through SHIPPING.
var ShippingStatusGraph = transition.NewGraph(EntityShipping,
	ShippingStatusPending, ShippingStatusReady, ShippingStatusPreparing,
	ShippingStatusShipping, ShippingStatusDelivered,
).
	Allow(ShippingStatusPending, ShippingStatusReady).
	Allow(ShippingStatusReady, ShippingStatusPreparing, ShippingStatusShipping).
	Allow(ShippingStatusPreparing, ShippingStatusShipping).
	Allow(ShippingStatusShipping, ShippingStatusDelivered)

// IsValid checks if the status is a declared order status
func (s OrderStatus) IsValid() bool { return OrderStatusGraph.IsState(s) }

// IsValid checks if the status is a declared payment status
func (s PaymentStatus) IsValid() bool { return PaymentStatusGraph.IsState(s) }

// IsValid checks if the status is a declared shipping status
func (s ShippingStatus) IsValid() bool { return ShippingStatusGraph.IsState(s) }

// Order is a storefront order as seen by the back office. Customer fields
// are PII and are masked on the way out.
type Order struct {
	shared.BaseEntity
	OrderNo         string
	UserEmail       string
	UserName        string
	Recipient       string
	Phone           string
	PostalCode      string
	RoadAddress     string
	JibunAddress    string
	DetailAddress   string
	SubtotalAmount  decimal.Decimal
	ShippingFee     decimal.Decimal
	DiscountAmount  decimal.Decimal
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	ShippingStatus  ShippingStatus
	CourierName     string
	TrackingNo      string
	InvoiceIssuedAt *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
}

// NewOrder creates a pending, unpaid order
func NewOrder(orderNo string, total decimal.Decimal) (*Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, shared.NewValidationError("Order number cannot be empty", nil)
	}
	if total.IsNegative() {
		return nil, shared.NewValidationError("Order total cannot be negative", nil)
	}
	return &Order{
		BaseEntity:     shared.NewBaseEntity(),
		OrderNo:        orderNo,
		SubtotalAmount: total,
		TotalAmount:    total,
		Status:         OrderStatusPending,
		PaymentStatus:  PaymentStatusUnpaid,
		ShippingStatus: ShippingStatusPending,
	}, nil
}

// IsPaid reports whether the payment was approved
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusApproved
}

// ChangeStatus moves the order status along OrderStatusGraph
func (o *Order) ChangeStatus(to OrderStatus, perms identity.PermissionSet, now time.Time) error {
	if !to.IsValid() {
		return invalidStatus(EntityOrder, string(to))
	}
	if err := OrderStatusGraph.Validate(o.Status, to, perms); err != nil {
		return err
	}
	if o.Status != to {
		o.Status = to
		o.Touch(now)
	}
	return nil
}

// ChangePaymentStatus moves the payment status along PaymentStatusGraph
func (o *Order) ChangePaymentStatus(to PaymentStatus, perms identity.PermissionSet, now time.Time) error {
	if !to.IsValid() {
		return invalidStatus(EntityPayment, string(to))
	}
	if err := PaymentStatusGraph.Validate(o.PaymentStatus, to, perms); err != nil {
		return err
	}
	if o.PaymentStatus != to {
		o.PaymentStatus = to
		o.Touch(now)
	}
	return nil
}

// ChangeShippingStatus moves the shipping status along ShippingStatusGraph
// and stamps shipped/delivered times on first arrival.
func (o *Order) ChangeShippingStatus(to ShippingStatus, perms identity.PermissionSet, now time.Time) error {
	if !to.IsValid() {
		return invalidStatus(EntityShipping, string(to))
	}
	if err := ShippingStatusGraph.Validate(o.ShippingStatus, to, perms); err != nil {
		return err
	}
	if o.ShippingStatus == to {
		return nil
	}
	o.ShippingStatus = to
	switch to {
	case ShippingStatusShipping:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case ShippingStatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	}
	o.Touch(now)
	return nil
}

// SetShippingInfo sets courier and tracking number
func (o *Order) SetShippingInfo(courier, trackingNo *string, now time.Time) {
	if courier != nil {
		o.CourierName = strings.TrimSpace(*courier)
	}
	if trackingNo != nil {
		o.TrackingNo = strings.TrimSpace(*trackingNo)
	}
	o.Touch(now)
}

// IssueInvoice stamps the invoice and ships the order. Courier and tracking
// number must be set first.
func (o *Order) IssueInvoice(perms identity.PermissionSet, now time.Time) error {
	if o.CourierName == "" || o.TrackingNo == "" {
		return shared.NewValidationError("Courier and tracking number are required to issue an invoice",
			map[string]any{"tracking_no": "required"})
	}
	if o.InvoiceIssuedAt == nil {
		o.InvoiceIssuedAt = &now
	}
	if o.ShippingStatus == ShippingStatusReady || o.ShippingStatus == ShippingStatusPreparing {
		if err := o.ChangeShippingStatus(ShippingStatusShipping, perms, now); err != nil {
			return err
		}
	}
	if o.ShippedAt == nil {
		o.ShippedAt = &now
	}
	o.Touch(now)
	return nil
}

// MarkDelivered moves shipping to DELIVERED
func (o *Order) MarkDelivered(perms identity.PermissionSet, now time.Time) error {
	return o.ChangeShippingStatus(ShippingStatusDelivered, perms, now)
}

// ApplyRefund records a refund of amount against the order. A refund that
// covers the total marks the order REFUNDED, otherwise PARTIAL_REFUNDED; the
// payment is canceled either way.
func (o *Order) ApplyRefund(amount decimal.Decimal, perms identity.PermissionSet, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("Refund amount must be positive", map[string]any{"amount": amount.String()})
	}
	target := OrderStatusPartialRefunded
	if amount.GreaterThanOrEqual(o.TotalAmount) {
		target = OrderStatusRefunded
	}
	if err := o.ChangeStatus(target, perms, now); err != nil {
		return err
	}
	return o.ChangePaymentStatus(PaymentStatusCanceled, perms, now)
}

func invalidStatus(entity, status string) error {
	return shared.NewValidationError("Unknown status", map[string]any{"entity": entity, "status": status})
}
