package handler

import (
	"time"

	"github.com/shopadmin/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,max=2048"`
}

// =====================
// Order DTOs
// =====================

// OrderListRequest holds the order list query
type OrderListRequest struct {
	dto.ListRequest
	Status         string `form:"status" binding:"omitempty,max=32"`
	PaymentStatus  string `form:"payment_status" binding:"omitempty,max=32"`
	ShippingStatus string `form:"shipping_status" binding:"omitempty,max=32"`
	HasOpenReturn  bool   `form:"has_open_return"`
}

// UpdateOrderRequest is the body of PATCH /admin/orders/:order_no
type UpdateOrderRequest struct {
	Status         *string `json:"status" binding:"omitempty,max=32"`
	PaymentStatus  *string `json:"payment_status" binding:"omitempty,max=32"`
	ShippingStatus *string `json:"shipping_status" binding:"omitempty,max=32"`
	CourierName    *string `json:"courier_name" binding:"omitempty,max=100"`
	TrackingNo     *string `json:"tracking_no" binding:"omitempty,max=100"`
	IssueInvoice   bool    `json:"issue_invoice"`
	MarkDelivered  bool    `json:"mark_delivered"`
}

// =====================
// Return DTOs
// =====================

// ReturnListRequest holds the return list query
type ReturnListRequest struct {
	dto.ListRequest
	Status  string `form:"status" binding:"omitempty,max=32"`
	OrderID string `form:"order_id" binding:"omitempty,uuid"`
}

// CreateReturnRequest is the body of POST /admin/returns
type CreateReturnRequest struct {
	OrderNo         string           `json:"order_no" binding:"required,max=64"`
	ReasonTitle     string           `json:"reason_title" binding:"required,max=200"`
	ReasonDetail    string           `json:"reason_detail" binding:"omitempty,max=2000"`
	RequestedAmount *decimal.Decimal `json:"requested_amount"`
}

// UpdateReturnRequest is the body of PATCH /admin/returns/:id
type UpdateReturnRequest struct {
	Status            *string          `json:"status" binding:"omitempty,max=32"`
	ApprovedAmount    *decimal.Decimal `json:"approved_amount"`
	RejectedReason    *string          `json:"rejected_reason" binding:"omitempty,max=500"`
	PickupCourierName *string          `json:"pickup_courier_name" binding:"omitempty,max=100"`
	PickupTrackingNo  *string          `json:"pickup_tracking_no" binding:"omitempty,max=100"`
	AdminNote         *string          `json:"admin_note" binding:"omitempty,max=2000"`
}

// =====================
// Settlement DTOs
// =====================

// SettlementListRequest holds the settlement list query
type SettlementListRequest struct {
	dto.ListRequest
	Status string `form:"status" binding:"omitempty,max=32"`
}

// GenerateSettlementsRequest is the body of POST /admin/settlements/generate
type GenerateSettlementsRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// UpdateSettlementRequest is the body of PATCH /admin/settlements/:id
type UpdateSettlementRequest struct {
	Status             *string          `json:"status" binding:"omitempty,max=32"`
	PGFee              *decimal.Decimal `json:"pg_fee"`
	PlatformFee        *decimal.Decimal `json:"platform_fee"`
	ReturnDeduction    *decimal.Decimal `json:"return_deduction"`
	ExpectedPayoutDate *time.Time       `json:"expected_payout_date"`
	Memo               *string          `json:"memo" binding:"omitempty,max=1000"`
}

// =====================
// User DTOs
// =====================

// UserListRequest holds the user and staff list query
type UserListRequest struct {
	dto.ListRequest
	Role     string `form:"role" binding:"omitempty,admin_role"`
	IsActive *bool  `form:"is_active"`
}

// UpdateUserRequest is the body of PATCH /admin/users/:id
type UpdateUserRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
	AdminRole *string `json:"admin_role" binding:"omitempty,admin_role"`
}

// =====================
// Audit DTOs
// =====================

// AuditLogListRequest holds the audit trail query. From and To are RFC 3339.
type AuditLogListRequest struct {
	dto.ListRequest
	ActorID    string `form:"actor_id" binding:"omitempty,uuid"`
	Action     string `form:"action" binding:"omitempty,max=50"`
	TargetType string `form:"target_type" binding:"omitempty,max=50"`
	TargetID   string `form:"target_id" binding:"omitempty,max=100"`
	Result     string `form:"result" binding:"omitempty,oneof=SUCCESS FAIL"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}
