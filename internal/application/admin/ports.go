package admin

import (
	"context"
	"time"

	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/trade"
)

// Repositories bundles the repositories an admin operation may touch. Inside
// TransactionScope.Execute every repository shares the transaction.
type Repositories interface {
	Staff() identity.StaffRepository
	Orders() trade.OrderRepository
	Returns() trade.ReturnRequestRepository
	Refunds() trade.RefundRecordRepository
	Settlements() finance.SettlementRepository
	AuditLogs() audit.Repository
	// Idempotency returns the database-backed store bound to the same
	// connection as the other repositories
	Idempotency() idempotency.Store
}

// TransactionScope runs fn in one database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// NoOpTransactionScope runs fn directly against the given repositories. It
// is meant for tests that don't need rollback.
type NoOpTransactionScope struct {
	Repos Repositories
}

// Execute runs fn without a transaction
func (s NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.Repos)
}

// TokenRevoker invalidates every token issued to a user up to now
type TokenRevoker interface {
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error
}

// Observer receives pipeline events for metrics
type Observer interface {
	MutationFinished(endpoint string, code string, replayed bool, elapsed time.Duration)
	IdempotencyOutcome(endpoint string, outcome idempotency.Outcome)
	AccessDenied(permission identity.Permission)
	FullViewRecorded(targetType string)
}

// NopObserver discards every event
type NopObserver struct{}

func (NopObserver) MutationFinished(string, string, bool, time.Duration) {}
func (NopObserver) IdempotencyOutcome(string, idempotency.Outcome) {}
func (NopObserver) AccessDenied(identity.Permission) {}
func (NopObserver) FullViewRecorded(string) {}
