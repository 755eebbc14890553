package persistence

import (
	"context"

	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements admin.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db    *gorm.DB
	clock shared.Clock
	opts  idempotency.Options
}

// NewGormTransactionScope creates a new GormTransactionScope. clock and
// opts configure the transaction-bound idempotency store.
func NewGormTransactionScope(db *gorm.DB, clock shared.Clock, opts idempotency.Options) *GormTransactionScope {
	return &GormTransactionScope{db: db, clock: clock, opts: opts}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos admin.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx, s.clock, s.opts))
	})
}

// Repositories gives access to every admin repository on one connection,
// either the pool or a transaction.
type Repositories struct {
	db    *gorm.DB
	clock shared.Clock
	opts  idempotency.Options
}

// NewRepositories binds the admin repositories to db
func NewRepositories(db *gorm.DB, clock shared.Clock, opts idempotency.Options) *Repositories {
	return &Repositories{db: db, clock: clock, opts: opts}
}

// Staff returns the staff user repository
func (r *Repositories) Staff() identity.StaffRepository {
	return NewGormStaffRepository(r.db)
}

// Orders returns the order repository
func (r *Repositories) Orders() trade.OrderRepository {
	return NewGormOrderRepository(r.db)
}

// Returns returns the return request repository
func (r *Repositories) Returns() trade.ReturnRequestRepository {
	return NewGormReturnRequestRepository(r.db)
}

// Refunds returns the refund record repository
func (r *Repositories) Refunds() trade.RefundRecordRepository {
	return NewGormRefundRecordRepository(r.db)
}

// Settlements returns the settlement repository
func (r *Repositories) Settlements() finance.SettlementRepository {
	return NewGormSettlementRepository(r.db)
}

// AuditLogs returns the audit log repository
func (r *Repositories) AuditLogs() audit.Repository {
	return NewGormAuditLogRepository(r.db)
}

// Idempotency returns the database idempotency store
func (r *Repositories) Idempotency() idempotency.Store {
	return NewGormIdempotencyStore(r.db, r.clock, r.opts)
}

// Ensure GormTransactionScope implements TransactionScope
var _ admin.TransactionScope = (*GormTransactionScope)(nil)

// Ensure Repositories implements admin.Repositories
var _ admin.Repositories = (*Repositories)(nil)
