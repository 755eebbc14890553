package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/auth"
	"github.com/shopadmin/backend/internal/infrastructure/persistence"
	"github.com/shopadmin/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	clock       *shared.ManualClock
	repos       *persistence.Repositories
	store       *persistence.GormIdempotencyStore
	blacklist   *auth.InMemoryTokenBlacklist
	pipeline    *admin.Pipeline
	orders      *admin.OrderService
	returns     *admin.ReturnService
	settlements *admin.SettlementService
	staff       *admin.StaffService
	audits      *admin.AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithOptions(t, admin.DefaultPipelineOptions())
}

func newTestEnvWithOptions(t *testing.T, opts admin.PipelineOptions) *testEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	clock := shared.NewManualClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	idemOpts := idempotency.DefaultOptions()
	repos := persistence.NewRepositories(db, clock, idemOpts)
	store := persistence.NewGormIdempotencyStore(db, clock, idemOpts)
	blacklist := auth.NewInMemoryTokenBlacklist()

	pipeline := admin.NewPipeline(admin.PipelineDeps{
		TxScope: persistence.NewGormTransactionScope(db, clock, idemOpts),
		Repos:   repos,
		Store:   store,
		Clock:   clock,
		Logger:  zaptest.NewLogger(t),
	}, opts)

	policy := finance.DefaultFeePolicy()
	return &testEnv{
		db:          db,
		clock:       clock,
		repos:       repos,
		store:       store,
		blacklist:   blacklist,
		pipeline:    pipeline,
		orders:      admin.NewOrderService(pipeline, policy),
		returns:     admin.NewReturnService(pipeline, policy),
		settlements: admin.NewSettlementService(pipeline, policy, 0),
		staff:       admin.NewStaffService(pipeline, blacklist, 7*24*time.Hour),
		audits:      admin.NewAuditService(pipeline),
	}
}

func (e *testEnv) actor(t *testing.T, role identity.AdminRole) admin.Actor {
	t.Helper()
	u := testutil.SeedStaff(t, e.db, string(role)+"@shop.test", role)
	return admin.NewActor(u)
}

func (e *testEnv) auditRows(t *testing.T, action audit.Action) []*audit.AuditLog {
	t.Helper()
	rows, _, err := e.repos.AuditLogs().FindAll(context.Background(), audit.Filter{
		Action: &action,
		Page:   shared.Page{PageSize: shared.MaxPageSize},
	})
	require.NoError(t, err)
	return rows
}

func (e *testEnv) auditCount(t *testing.T) int64 {
	t.Helper()
	_, total, err := e.repos.AuditLogs().FindAll(context.Background(), audit.Filter{})
	require.NoError(t, err)
	return total
}

func ptr[T any](v T) *T {
	return &v
}

func dataMap(t *testing.T, res *admin.Result) map[string]any {
	t.Helper()
	require.NotNil(t, res)
	m, ok := res.Data.(map[string]any)
	require.True(t, ok, "result data is %T", res.Data)
	return m
}
