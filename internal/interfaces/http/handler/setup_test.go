package handler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/auth"
	"github.com/shopadmin/backend/internal/infrastructure/config"
	"github.com/shopadmin/backend/internal/infrastructure/persistence"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
	"github.com/shopadmin/backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// handlerEnv wires the real admin services on an in-memory database
type handlerEnv struct {
	db        *gorm.DB
	clock     *shared.ManualClock
	repos     *persistence.Repositories
	blacklist *auth.InMemoryTokenBlacklist
	jwt       *auth.JWTService

	auth        *AuthHandler
	orders      *OrderHandler
	returns     *ReturnHandler
	settlements *SettlementHandler
	users       *UserHandler
	auditLogs   *AuditLogHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	clock := shared.NewManualClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	idemOpts := idempotency.DefaultOptions()
	repos := persistence.NewRepositories(db, clock, idemOpts)
	blacklist := auth.NewInMemoryTokenBlacklist()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-bytes!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "shop-admin-test",
	})
	log := zaptest.NewLogger(t)

	pipeline := admin.NewPipeline(admin.PipelineDeps{
		TxScope: persistence.NewGormTransactionScope(db, clock, idemOpts),
		Repos:   repos,
		Store:   persistence.NewGormIdempotencyStore(db, clock, idemOpts),
		Clock:   clock,
		Logger:  log,
	}, admin.DefaultPipelineOptions())

	policy := finance.DefaultFeePolicy()
	return &handlerEnv{
		db:          db,
		clock:       clock,
		repos:       repos,
		blacklist:   blacklist,
		jwt:         jwtService,
		auth:        NewAuthHandler(admin.NewAuthService(repos.Staff(), jwtService, blacklist, clock, log)),
		orders:      NewOrderHandler(admin.NewOrderService(pipeline, policy)),
		returns:     NewReturnHandler(admin.NewReturnService(pipeline, policy)),
		settlements: NewSettlementHandler(admin.NewSettlementService(pipeline, policy, 0)),
		users:       NewUserHandler(admin.NewStaffService(pipeline, blacklist, 7*24*time.Hour)),
		auditLogs:   NewAuditLogHandler(admin.NewAuditService(pipeline)),
	}
}

func (e *handlerEnv) actor(t *testing.T, role identity.AdminRole) admin.Actor {
	t.Helper()
	u := testutil.SeedStaff(t, e.db, string(role)+"@shop.test", role)
	return admin.NewActor(u)
}

// router mounts every admin handler behind a fixed actor. Permission
// checks are left to the services.
func (e *handlerEnv) router(actor *admin.Actor) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if actor != nil {
		a := *actor
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ActorKey, a)
			c.Next()
		})
	}

	r.POST("/api/v1/auth/login", e.auth.Login)
	r.GET("/api/v1/admin/me", e.auth.Me)

	g := r.Group("/api/v1/admin")
	g.GET("/orders", e.orders.List)
	g.GET("/orders/:order_no", e.orders.Get)
	g.PATCH("/orders/:order_no", e.orders.Update)
	g.GET("/returns", e.returns.List)
	g.POST("/returns", e.returns.Create)
	g.PATCH("/returns/:id", e.returns.Update)
	g.DELETE("/returns/:id", e.returns.Delete)
	g.GET("/settlements", e.settlements.List)
	g.POST("/settlements/generate", e.settlements.Generate)
	g.PATCH("/settlements/:id", e.settlements.Update)
	g.DELETE("/settlements/:id", e.settlements.Delete)
	g.GET("/users", e.users.ListUsers)
	g.PATCH("/users/:id", e.users.Update)
	g.DELETE("/users/:id", e.users.Deactivate)
	g.GET("/staff", e.users.ListStaff)
	g.GET("/audit-logs", e.auditLogs.List)
	return r
}

func (e *handlerEnv) do(t *testing.T, actor *admin.Actor, method, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()
	headers := map[string]string{}
	if key != "" {
		headers[idempotency.HeaderName] = key
	}
	return testutil.DoJSON(t, e.router(actor), method, path, body, headers)
}

func (e *handlerEnv) auditRows(t *testing.T, action audit.Action) []*audit.AuditLog {
	t.Helper()
	rows, _, err := e.repos.AuditLogs().FindAll(context.Background(), audit.Filter{
		Action: &action,
		Page:   shared.Page{PageSize: shared.MaxPageSize},
	})
	require.NoError(t, err)
	return rows
}
