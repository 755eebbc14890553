package admin

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ===================== Orders =====================

// OrderResponse is the admin view of an order. PII fields are masked by
// field name before the response leaves the pipeline.
type OrderResponse struct {
	ID              uuid.UUID       `json:"id"`
	OrderNo         string          `json:"order_no"`
	UserEmail       string          `json:"user_email"`
	UserName        string          `json:"user_name"`
	Recipient       string          `json:"recipient"`
	Phone           string          `json:"phone"`
	PostalCode      string          `json:"postal_code"`
	RoadAddress     string          `json:"road_address"`
	JibunAddress    string          `json:"jibun_address"`
	DetailAddress   string          `json:"detail_address"`
	SubtotalAmount  decimal.Decimal `json:"subtotal_amount"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	ShippingStatus  string          `json:"shipping_status"`
	CourierName     string          `json:"courier_name"`
	TrackingNo      string          `json:"tracking_no"`
	InvoiceIssuedAt *time.Time      `json:"invoice_issued_at"`
	ShippedAt       *time.Time      `json:"shipped_at"`
	DeliveredAt     *time.Time      `json:"delivered_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewOrderResponse converts a domain order
func NewOrderResponse(o *trade.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
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
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func orderSnapshot(o *trade.Order) map[string]any {
	return map[string]any{
		"status":          string(o.Status),
		"payment_status":  string(o.PaymentStatus),
		"shipping_status": string(o.ShippingStatus),
		"courier_name":    o.CourierName,
		"tracking_no":     o.TrackingNo,
	}
}

// UpdateOrderInput is a partial order update. Status values are validated
// against the order graphs.
type UpdateOrderInput struct {
	OrderNo        string  `json:"order_no"`
	Status         *string `json:"status,omitempty"`
	PaymentStatus  *string `json:"payment_status,omitempty"`
	ShippingStatus *string `json:"shipping_status,omitempty"`
	CourierName    *string `json:"courier_name,omitempty"`
	TrackingNo     *string `json:"tracking_no,omitempty"`
	IssueInvoice   bool    `json:"issue_invoice,omitempty"`
	MarkDelivered  bool    `json:"mark_delivered,omitempty"`

	IdempotencyKey string `json:"-"`
}

func (in UpdateOrderInput) isEmpty() bool {
	return in.Status == nil && in.PaymentStatus == nil && in.ShippingStatus == nil &&
		in.CourierName == nil && in.TrackingNo == nil && !in.IssueInvoice && !in.MarkDelivered
}

// ===================== Returns =====================

// ReturnResponse is the admin view of a return request
type ReturnResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"order_id"`
	OrderNo           string          `json:"order_no"`
	Status            string          `json:"status"`
	ReasonTitle       string          `json:"reason_title"`
	ReasonDetail      string          `json:"reason_detail"`
	RequestedAmount   decimal.Decimal `json:"requested_amount"`
	ApprovedAmount    decimal.Decimal `json:"approved_amount"`
	RejectedReason    string          `json:"rejected_reason"`
	PickupCourierName string          `json:"pickup_courier_name"`
	PickupTrackingNo  string          `json:"pickup_tracking_no"`
	AdminNote         string          `json:"admin_note"`
	RequestedAt       time.Time       `json:"requested_at"`
	ApprovedAt        *time.Time      `json:"approved_at"`
	ReceivedAt        *time.Time      `json:"received_at"`
	RefundedAt        *time.Time      `json:"refunded_at"`
	ClosedAt          *time.Time      `json:"closed_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewReturnResponse converts a domain return request
func NewReturnResponse(r *trade.ReturnRequest) ReturnResponse {
	return ReturnResponse{
		ID:                r.ID,
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
		UpdatedAt:         r.UpdatedAt,
	}
}

func returnSnapshot(r *trade.ReturnRequest) map[string]any {
	return map[string]any{
		"status":          string(r.Status),
		"approved_amount": r.ApprovedAmount.String(),
		"admin_note":      r.AdminNote,
	}
}

// CreateReturnInput opens a return on behalf of a customer
type CreateReturnInput struct {
	OrderNo         string           `json:"order_no"`
	ReasonTitle     string           `json:"reason_title"`
	ReasonDetail    string           `json:"reason_detail,omitempty"`
	RequestedAmount *decimal.Decimal `json:"requested_amount,omitempty"`

	IdempotencyKey string `json:"-"`
}

// UpdateReturnInput is a partial return update
type UpdateReturnInput struct {
	ID                uuid.UUID        `json:"id"`
	Status            *string          `json:"status,omitempty"`
	ApprovedAmount    *decimal.Decimal `json:"approved_amount,omitempty"`
	RejectedReason    *string          `json:"rejected_reason,omitempty"`
	PickupCourierName *string          `json:"pickup_courier_name,omitempty"`
	PickupTrackingNo  *string          `json:"pickup_tracking_no,omitempty"`
	AdminNote         *string          `json:"admin_note,omitempty"`

	IdempotencyKey string `json:"-"`
}

func (in UpdateReturnInput) isEmpty() bool {
	return in.Status == nil && in.ApprovedAmount == nil && in.RejectedReason == nil &&
		in.PickupCourierName == nil && in.PickupTrackingNo == nil && in.AdminNote == nil
}

// DeleteReturnInput removes a return request
type DeleteReturnInput struct {
	ID uuid.UUID `json:"id"`

	IdempotencyKey string `json:"-"`
}

// ===================== Settlements =====================

// SettlementResponse is the admin view of a settlement
type SettlementResponse struct {
	ID                 uuid.UUID       `json:"id"`
	OrderID            uuid.UUID       `json:"order_id"`
	OrderNo            string          `json:"order_no"`
	GrossAmount        decimal.Decimal `json:"gross_amount"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	ShippingFee        decimal.Decimal `json:"shipping_fee"`
	PGFee              decimal.Decimal `json:"pg_fee"`
	PlatformFee        decimal.Decimal `json:"platform_fee"`
	ReturnDeduction    decimal.Decimal `json:"return_deduction"`
	SettlementAmount   decimal.Decimal `json:"settlement_amount"`
	Status             string          `json:"status"`
	ExpectedPayoutDate *time.Time      `json:"expected_payout_date"`
	PaidAt             *time.Time      `json:"paid_at"`
	Memo               string          `json:"memo"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewSettlementResponse converts a domain settlement
func NewSettlementResponse(s *finance.Settlement) SettlementResponse {
	return SettlementResponse{
		ID:                 s.ID,
		OrderID:            s.OrderID,
		OrderNo:            s.OrderNo,
		GrossAmount:        s.GrossAmount,
		DiscountAmount:     s.DiscountAmount,
		ShippingFee:        s.ShippingFee,
		PGFee:              s.PGFee,
		PlatformFee:        s.PlatformFee,
		ReturnDeduction:    s.ReturnDeduction,
		SettlementAmount:   s.SettlementAmount,
		Status:             string(s.Status),
		ExpectedPayoutDate: s.ExpectedPayoutDate,
		PaidAt:             s.PaidAt,
		Memo:               s.Memo,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func settlementSnapshot(s *finance.Settlement) map[string]any {
	return map[string]any{
		"status":            string(s.Status),
		"pg_fee":            s.PGFee.String(),
		"platform_fee":      s.PlatformFee.String(),
		"return_deduction":  s.ReturnDeduction.String(),
		"settlement_amount": s.SettlementAmount.String(),
	}
}

// GenerateSettlementsInput creates settlements for paid orders that have none
type GenerateSettlementsInput struct {
	Limit int `json:"limit,omitempty"`

	IdempotencyKey string `json:"-"`
}

// GenerateSettlementsResult summarizes a generation run
type GenerateSettlementsResult struct {
	Created       int         `json:"created"`
	Skipped       int         `json:"skipped"`
	SettlementIDs []uuid.UUID `json:"settlement_ids"`
}

// UpdateSettlementInput is a partial settlement update
type UpdateSettlementInput struct {
	ID                 uuid.UUID        `json:"id"`
	Status             *string          `json:"status,omitempty"`
	PGFee              *decimal.Decimal `json:"pg_fee,omitempty"`
	PlatformFee        *decimal.Decimal `json:"platform_fee,omitempty"`
	ReturnDeduction    *decimal.Decimal `json:"return_deduction,omitempty"`
	ExpectedPayoutDate *time.Time       `json:"expected_payout_date,omitempty"`
	Memo               *string          `json:"memo,omitempty"`

	IdempotencyKey string `json:"-"`
}

func (in UpdateSettlementInput) isEmpty() bool {
	return in.Status == nil && in.PGFee == nil && in.PlatformFee == nil &&
		in.ReturnDeduction == nil && in.ExpectedPayoutDate == nil && in.Memo == nil
}

// DeleteSettlementInput removes an unpaid settlement
type DeleteSettlementInput struct {
	ID uuid.UUID `json:"id"`

	IdempotencyKey string `json:"-"`
}

// ===================== Users =====================

// UserResponse is the admin view of an account
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	AdminRole   string     `json:"admin_role"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewUserResponse converts a domain staff user
func NewUserResponse(u *identity.StaffUser) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		AdminRole:   string(u.AdminRole),
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func userSnapshot(u *identity.StaffUser) map[string]any {
	return map[string]any{
		"name":       u.Name,
		"phone":      u.Phone,
		"admin_role": string(u.AdminRole),
		"is_active":  u.IsActive,
	}
}

// UpdateUserInput is a partial account update. Changing AdminRole requires
// a SUPER_ADMIN actor.
type UpdateUserInput struct {
	ID        uuid.UUID `json:"id"`
	Name      *string   `json:"name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	AdminRole *string   `json:"admin_role,omitempty"`

	IdempotencyKey string `json:"-"`
}

// DeactivateUserInput disables an account
type DeactivateUserInput struct {
	ID uuid.UUID `json:"id"`

	IdempotencyKey string `json:"-"`
}

// StaffResponse is the directory entry shown to STAFF_VIEW holders
type StaffResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AdminRole string    `json:"admin_role"`
	IsActive  bool      `json:"is_active"`
}

// NewStaffResponse converts a domain staff user
func NewStaffResponse(u *identity.StaffUser) StaffResponse {
	return StaffResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AdminRole: string(u.EffectiveRole()),
		IsActive:  u.IsActive,
	}
}

// ===================== Audit =====================

// AuditLogResponse is one audit row
type AuditLogResponse struct {
	ID             uuid.UUID      `json:"id"`
	OccurredAt     time.Time      `json:"occurred_at"`
	ActorID        *uuid.UUID     `json:"actor_id"`
	ActorRole      string         `json:"actor_role"`
	Action         string         `json:"action"`
	TargetType     string         `json:"target_type"`
	TargetID       string         `json:"target_id"`
	RequestID      string         `json:"request_id"`
	IPAddress      string         `json:"ip_address"`
	UserAgent      string         `json:"user_agent"`
	IdempotencyKey string         `json:"idempotency_key"`
	Before         map[string]any `json:"before,omitempty"`
	After          map[string]any `json:"after,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Result         string         `json:"result"`
	ErrorCode      string         `json:"error_code,omitempty"`
}

// NewAuditLogResponse converts an audit row
func NewAuditLogResponse(l *audit.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:             l.ID,
		OccurredAt:     l.OccurredAt,
		ActorID:        l.ActorID,
		ActorRole:      string(l.ActorRole),
		Action:         string(l.Action),
		TargetType:     l.TargetType,
		TargetID:       l.TargetID,
		RequestID:      l.RequestID,
		IPAddress:      l.IPAddress,
		UserAgent:      l.UserAgent,
		IdempotencyKey: l.IdempotencyKey,
		Before:         l.Before,
		After:          l.After,
		Metadata:       l.Metadata,
		Result:         string(l.Result),
		ErrorCode:      l.ErrorCode,
	}
}

// ===================== Auth =====================

// LoginInput contains the credentials for login
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult contains the issued tokens and the logged-in user
type LoginResult struct {
	AccessToken           string     `json:"access_token"`
	RefreshToken          string     `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time  `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time  `json:"refresh_token_expires_at"`
	TokenType             string     `json:"token_type"`
	User                  MeResponse `json:"user"`
}

// LogoutInput identifies the token to revoke
type LogoutInput struct {
	UserID   uuid.UUID
	TokenJTI string
	TokenTTL time.Duration
}

// MeResponse describes the current staff member and what they may do
type MeResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	AdminRole   string    `json:"admin_role"`
	IsSuperuser bool      `json:"is_superuser"`
	Permissions []string  `json:"permissions"`
}

// NewMeResponse converts a staff user
func NewMeResponse(u *identity.StaffUser) MeResponse {
	return MeResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		AdminRole:   string(u.EffectiveRole()),
		IsSuperuser: u.IsSuperuser,
		Permissions: u.Permissions().Strings(),
	}
}
