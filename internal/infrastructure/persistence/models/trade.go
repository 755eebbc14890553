package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for storefront orders
type OrderModel struct {
	EntityRow
	OrderNo         string          `gorm:"type:varchar(40);not null;uniqueIndex"`
	UserEmail       string          `gorm:"type:varchar(254);not null;default:''"`
	UserName        string          `gorm:"type:varchar(100);not null;default:''"`
	Recipient       string          `gorm:"type:varchar(100);not null;default:''"`
	Phone           string          `gorm:"type:varchar(30);not null;default:''"`
	PostalCode      string          `gorm:"type:varchar(10);not null;default:''"`
	RoadAddress     string          `gorm:"type:varchar(255);not null;default:''"`
	JibunAddress    string          `gorm:"type:varchar(255);not null;default:''"`
	DetailAddress   string          `gorm:"type:varchar(255);not null;default:''"`
	SubtotalAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null;index"`
	ShippingStatus  string          `gorm:"type:varchar(20);not null;index"`
	CourierName     string          `gorm:"type:varchar(50);not null;default:''"`
	TrackingNo      string          `gorm:"type:varchar(50);not null;default:''"`
	InvoiceIssuedAt *time.Time      `gorm:"column:invoice_issued_at"`
	ShippedAt       *time.Time      `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time      `gorm:"column:delivered_at"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	return &trade.Order{
		BaseEntity:      m.EntityRow.Entity(),
		OrderNo:         m.OrderNo,
		UserEmail:       m.UserEmail,
		UserName:        m.UserName,
		Recipient:       m.Recipient,
		Phone:           m.Phone,
		PostalCode:      m.PostalCode,
		RoadAddress:     m.RoadAddress,
		JibunAddress:    m.JibunAddress,
		DetailAddress:   m.DetailAddress,
		SubtotalAmount:  m.SubtotalAmount,
		ShippingFee:     m.ShippingFee,
		DiscountAmount:  m.DiscountAmount,
		TotalAmount:     m.TotalAmount,
		Status:          trade.OrderStatus(m.Status),
		PaymentStatus:   trade.PaymentStatus(m.PaymentStatus),
		ShippingStatus:  trade.ShippingStatus(m.ShippingStatus),
		CourierName:     m.CourierName,
		TrackingNo:      m.TrackingNo,
		InvoiceIssuedAt: m.InvoiceIssuedAt,
		ShippedAt:       m.ShippedAt,
		DeliveredAt:     m.DeliveredAt,
	}
}

// OrderModelFromDomain creates a model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{
		OrderNo:         o.OrderNo,
		UserEmail:       o.UserEmail,
		UserName:        o.UserName,
		Recipient:       o.Recipient,
		Phone:           o.Phone,
		PostalCode:      o.PostalCode,
		RoadAddress:     o.RoadAddress,
		JibunAddress:    o.JibunAddress,
		DetailAddress:   o.DetailAddress,
		SubtotalAmount:  o.SubtotalAmount,
		ShippingFee:     o.ShippingFee,
		DiscountAmount:  o.DiscountAmount,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		ShippingStatus:  string(o.ShippingStatus),
		CourierName:     o.CourierName,
		TrackingNo:      o.TrackingNo,
		InvoiceIssuedAt: o.InvoiceIssuedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
	}
	m.EntityRow = entityRow(o.BaseEntity)
	return m
}

// ReturnRequestModel is the persistence model for return requests
type ReturnRequestModel struct {
	EntityRow
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderNo           string          `gorm:"type:varchar(40);not null;index"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
	ReasonTitle       string          `gorm:"type:varchar(200);not null;default:''"`
	ReasonDetail      string          `gorm:"type:text;not null;default:''"`
	RequestedAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ApprovedAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RejectedReason    string          `gorm:"type:varchar(255);not null;default:''"`
	PickupCourierName string          `gorm:"type:varchar(50);not null;default:''"`
	PickupTrackingNo  string          `gorm:"type:varchar(50);not null;default:''"`
	AdminNote         string          `gorm:"type:text;not null;default:''"`
	RequestedAt       time.Time       `gorm:"not null"`
	ApprovedAt        *time.Time      `gorm:"column:approved_at"`
	ReceivedAt        *time.Time      `gorm:"column:received_at"`
	RefundedAt        *time.Time      `gorm:"column:refunded_at"`
	ClosedAt          *time.Time      `gorm:"column:closed_at"`
}

// TableName returns the table name for GORM
func (ReturnRequestModel) TableName() string {
	return "return_requests"
}

// ToDomain converts the model to a domain ReturnRequest
func (m *ReturnRequestModel) ToDomain() *trade.ReturnRequest {
	return &trade.ReturnRequest{
		BaseEntity:        m.EntityRow.Entity(),
		OrderID:           m.OrderID,
		OrderNo:           m.OrderNo,
		Status:            trade.ReturnStatus(m.Status),
		ReasonTitle:       m.ReasonTitle,
		ReasonDetail:      m.ReasonDetail,
		RequestedAmount:   m.RequestedAmount,
		ApprovedAmount:    m.ApprovedAmount,
		RejectedReason:    m.RejectedReason,
		PickupCourierName: m.PickupCourierName,
		PickupTrackingNo:  m.PickupTrackingNo,
		AdminNote:         m.AdminNote,
		RequestedAt:       m.RequestedAt,
		ApprovedAt:        m.ApprovedAt,
		ReceivedAt:        m.ReceivedAt,
		RefundedAt:        m.RefundedAt,
		ClosedAt:          m.ClosedAt,
	}
}

// ReturnRequestModelFromDomain creates a model from a domain ReturnRequest
func ReturnRequestModelFromDomain(r *trade.ReturnRequest) *ReturnRequestModel {
	m := &ReturnRequestModel{
		OrderID:           r.OrderID,
		OrderNo:           r.OrderNo,
		Status:            string(r.Status),
		ReasonTitle:       r.ReasonTitle,
		ReasonDetail:      r.ReasonDetail,
		RequestedAmount:   r.RequestedAmount,
		ApprovedAmount:    r.ApprovedAmount,
		RejectedReason:    r.RejectedReason,
		PickupCourierName: r.PickupCourierName,
		PickupTrackingNo:  r.PickupTrackingNo,
		AdminNote:         r.AdminNote,
		RequestedAt:       r.RequestedAt,
		ApprovedAt:        r.ApprovedAt,
		ReceivedAt:        r.ReceivedAt,
		RefundedAt:        r.RefundedAt,
		ClosedAt:          r.ClosedAt,
	}
	m.EntityRow = entityRow(r.BaseEntity)
	return m
}

// RefundRecordModel is one executed refund
type RefundRecordModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReturnID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExecutedBy uuid.UUID       `gorm:"type:uuid;not null"`
	ExecutedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundRecordModel) TableName() string {
	return "refund_records"
}

// ToDomain converts the model to a domain RefundRecord
func (m *RefundRecordModel) ToDomain() *trade.RefundRecord {
	return &trade.RefundRecord{
		ID:         m.ID,
		ReturnID:   m.ReturnID,
		OrderID:    m.OrderID,
		Amount:     m.Amount,
		ExecutedBy: m.ExecutedBy,
		ExecutedAt: m.ExecutedAt,
	}
}

// RefundRecordModelFromDomain creates a model from a domain RefundRecord
func RefundRecordModelFromDomain(r *trade.RefundRecord) *RefundRecordModel {
	return &RefundRecordModel{
		ID:         r.ID,
		ReturnID:   r.ReturnID,
		OrderID:    r.OrderID,
		Amount:     r.Amount,
		ExecutedBy: r.ExecutedBy,
		ExecutedAt: r.ExecutedAt,
	}
}
