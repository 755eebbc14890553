package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// SettlementModel is the persistence model for order settlements
type SettlementModel struct {
	EntityRow
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	OrderNo            string          `gorm:"type:varchar(40);not null;index"`
	GrossAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingFee        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PGFee              decimal.Decimal `gorm:"column:pg_fee;type:decimal(18,2);not null;default:0"`
	PlatformFee        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ReturnDeduction    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	SettlementAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status             string          `gorm:"type:varchar(20);not null;index"`
	ExpectedPayoutDate *time.Time      `gorm:"column:expected_payout_date"`
	PaidAt             *time.Time      `gorm:"column:paid_at"`
	Memo               string          `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (SettlementModel) TableName() string {
	return "settlements"
}

// ToDomain converts the model to a domain Settlement
func (m *SettlementModel) ToDomain() *finance.Settlement {
	return &finance.Settlement{
		BaseEntity:         m.EntityRow.Entity(),
		OrderID:            m.OrderID,
		OrderNo:            m.OrderNo,
		GrossAmount:        m.GrossAmount,
		DiscountAmount:     m.DiscountAmount,
		ShippingFee:        m.ShippingFee,
		PGFee:              m.PGFee,
		PlatformFee:        m.PlatformFee,
		ReturnDeduction:    m.ReturnDeduction,
		SettlementAmount:   m.SettlementAmount,
		Status:             finance.SettlementStatus(m.Status),
		ExpectedPayoutDate: m.ExpectedPayoutDate,
		PaidAt:             m.PaidAt,
		Memo:               m.Memo,
	}
}

// SettlementModelFromDomain creates a model from a domain Settlement
func SettlementModelFromDomain(s *finance.Settlement) *SettlementModel {
	m := &SettlementModel{
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
	}
	m.EntityRow = entityRow(s.BaseEntity)
	return m
}
