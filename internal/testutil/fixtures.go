package testutil

import (
	"testing"
	"time"

	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the password of every seeded staff user
const TestPassword = "correct-horse-battery"

// SeedStaff inserts an active staff user with the given role. The password
// is hashed with the minimum bcrypt cost to keep tests fast.
func SeedStaff(t *testing.T, db *gorm.DB, email string, role identity.AdminRole) *identity.StaffUser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	u := &identity.StaffUser{
		BaseEntity:   shared.NewBaseEntity(),
		Email:        email,
		Name:         "Staff " + string(role),
		Phone:        "010-1234-5678",
		PasswordHash: string(hash),
		AdminRole:    role,
		IsActive:     true,
		IsStaff:      true,
	}
	require.NoError(t, db.Create(models.StaffUserModelFromDomain(u)).Error)
	return u
}

// SeedPaidOrder inserts a paid, ready-to-ship order carrying customer PII
func SeedPaidOrder(t *testing.T, db *gorm.DB, orderNo string, total int64) *trade.Order {
	t.Helper()

	o, err := trade.NewOrder(orderNo, decimal.NewFromInt(total))
	require.NoError(t, err)
	o.CreatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o.UpdatedAt = o.CreatedAt
	o.UserEmail = "customer@example.com"
	o.UserName = "Kim Minji"
	o.Recipient = "Kim Minji"
	o.Phone = "010-9876-5432"
	o.PostalCode = "06236"
	o.RoadAddress = "123 Teheran-ro, Gangnam-gu"
	o.DetailAddress = "Apt 1204"
	o.Status = trade.OrderStatusPaid
	o.PaymentStatus = trade.PaymentStatusApproved
	o.ShippingStatus = trade.ShippingStatusReady

	require.NoError(t, db.Create(models.OrderModelFromDomain(o)).Error)
	return o
}

// SeedReturn inserts a return request in the given status
func SeedReturn(t *testing.T, db *gorm.DB, order *trade.Order, status trade.ReturnStatus) *trade.ReturnRequest {
	t.Helper()

	r, err := trade.NewReturnRequest(order, "Damaged item", "Box was crushed", nil, order.CreatedAt.Add(time.Hour))
	require.NoError(t, err)
	r.Status = status

	require.NoError(t, db.Create(models.ReturnRequestModelFromDomain(r)).Error)
	return r
}

// SeedSettlement inserts a settlement for order with the default fee policy
func SeedSettlement(t *testing.T, db *gorm.DB, order *trade.Order, status finance.SettlementStatus) *finance.Settlement {
	t.Helper()

	s := finance.NewSettlement(order, finance.DefaultFeePolicy(), decimal.Zero, order.CreatedAt)
	s.Status = status

	require.NoError(t, db.Create(models.SettlementModelFromDomain(s)).Error)
	return s
}
