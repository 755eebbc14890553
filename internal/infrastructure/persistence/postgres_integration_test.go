//go:build integration

package persistence_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopadmin/backend/internal/infrastructure/persistence"
	"github.com/shopadmin/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPostgres_IdempotencyConcurrentBegin(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	store := persistence.NewGormIdempotencyStore(db, shared.SystemClock{}, idempotency.DefaultOptions())
	ctx := context.Background()
	scope := testScope(t, "pg-race")

	const n = 10
	outcomes := make([]idempotency.Outcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := store.Begin(ctx, scope, "hash")
			outcomes[i], errs[i] = res.Outcome, err
		}(i)
	}
	wg.Wait()

	acquired := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if outcomes[i] == idempotency.OutcomeAcquired {
			acquired++
		}
	}
	assert.Equal(t, 1, acquired)
}

func TestPostgres_AuditLogsAreAppendOnly(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	repo := persistence.NewGormAuditLogRepository(db)
	ctx := context.Background()

	log, err := audit.NewAuditLog(audit.ActionOrderUpdated, audit.TargetOrder, "ORD-PG-1", audit.ResultSuccess, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, log))

	err = db.Exec(`UPDATE audit_logs SET result = 'FAIL' WHERE id = ?`, log.ID).Error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	err = db.Exec(`DELETE FROM audit_logs WHERE id = ?`, log.ID).Error
	require.Error(t, err)

	_, total, err := repo.FindAll(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPostgres_OrderKeywordSearch(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	testutil.SeedPaidOrder(t, db, "ORD-PG-100", 10000)
	testutil.SeedPaidOrder(t, db, "ORD-PG-200", 20000)

	repo := persistence.NewGormOrderRepository(db)
	rows, total, err := repo.FindAll(context.Background(), trade.OrderFilter{Keyword: "pg-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "ORD-PG-200", rows[0].OrderNo)
}

func TestPostgres_ConcurrentRefundsWithDistinctKeys(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	clock := shared.SystemClock{}
	opts := idempotency.DefaultOptions()
	pipeline := admin.NewPipeline(admin.PipelineDeps{
		TxScope: persistence.NewGormTransactionScope(db, clock, opts),
		Repos:   persistence.NewRepositories(db, clock, opts),
		Store:   persistence.NewGormIdempotencyStore(db, clock, opts),
		Clock:   clock,
		Logger:  zaptest.NewLogger(t),
	}, admin.DefaultPipelineOptions())
	returns := admin.NewReturnService(pipeline, finance.DefaultFeePolicy())
	ctx := context.Background()

	fin := admin.NewActor(testutil.SeedStaff(t, db, "fin@shop.test", identity.RoleFinance))
	order := testutil.SeedPaidOrder(t, db, "ORD-PG-RF-1", 50000)
	ret := testutil.SeedReturn(t, db, order, trade.ReturnStatusRefunding)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = returns.Update(ctx, fin, admin.UpdateReturnInput{
				ID:             ret.ID,
				Status:         ptr(string(trade.ReturnStatusRefunded)),
				IdempotencyKey: fmt.Sprintf("refund-%d", i),
			})
		}(i)
	}
	wg.Wait()

	// requests that load the return after the refund commit see it already
	// REFUNDED and succeed without refunding; overlapping ones conflict
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, shared.CodeConflict, shared.CodeOf(err), err.Error())
	}
	assert.GreaterOrEqual(t, succeeded, 1)

	var refunds int64
	require.NoError(t, db.Table("refund_records").Where("return_id = ?", ret.ID).Count(&refunds).Error)
	assert.Equal(t, int64(1), refunds)

	var executed int64
	require.NoError(t, db.Table("audit_logs").
		Where("action = ? AND result = ?", audit.ActionRefundExecuted, audit.ResultSuccess).
		Count(&executed).Error)
	assert.Equal(t, int64(1), executed)

	sum, err := persistence.NewGormRefundRecordRepository(db).SumByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(order.TotalAmount), sum.String())
}
