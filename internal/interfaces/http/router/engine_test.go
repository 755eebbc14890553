package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/auth"
	"github.com/shopadmin/backend/internal/infrastructure/config"
	"github.com/shopadmin/backend/internal/infrastructure/persistence"
	"github.com/shopadmin/backend/internal/infrastructure/telemetry"
	"github.com/shopadmin/backend/internal/interfaces/http/handler"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
	"github.com/shopadmin/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type stack struct {
	engine  *gin.Engine
	router  *Router
	db      *gorm.DB
	metrics *telemetry.Metrics
}

func newStack(t *testing.T, loginLimit int) *stack {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	clock := shared.SystemClock{}
	idemOpts := idempotency.DefaultOptions()
	repos := persistence.NewRepositories(db, clock, idemOpts)
	log := zaptest.NewLogger(t)
	metrics := telemetry.NewMetrics("test")
	blacklist := auth.NewInMemoryTokenBlacklist()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-bytes!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "shop-admin-test",
	})

	pipeline := admin.NewPipeline(admin.PipelineDeps{
		TxScope:  persistence.NewGormTransactionScope(db, clock, idemOpts),
		Repos:    repos,
		Store:    persistence.NewGormIdempotencyStore(db, clock, idemOpts),
		Clock:    clock,
		Observer: metrics,
		Logger:   log,
	}, admin.DefaultPipelineOptions())
	policy := finance.DefaultFeePolicy()
	authService := admin.NewAuthService(repos.Staff(), jwtService, blacklist, clock, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = []string{"https://admin.shop.test"}

	engine, r, err := NewEngine(EngineConfig{
		Logger:        log,
		Authenticator: authService,
		CORS:          cors,
		Security:      middleware.DefaultSecurityConfig(),
		Tracing:       middleware.TracingConfig{Enabled: false},
		MaxBodySize:   1 << 20,
		Metrics:       metrics,
		ActorLimiter:  middleware.NewRateLimiter(ctx, 1000, 1000),
		LoginLimiter:  middleware.NewWindowRateLimiter(ctx, loginLimit, time.Minute),
	}, Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Orders:      handler.NewOrderHandler(admin.NewOrderService(pipeline, policy)),
		Returns:     handler.NewReturnHandler(admin.NewReturnService(pipeline, policy)),
		Settlements: handler.NewSettlementHandler(admin.NewSettlementService(pipeline, policy, 0)),
		Users:       handler.NewUserHandler(admin.NewStaffService(pipeline, blacklist, time.Hour)),
		AuditLogs:   handler.NewAuditLogHandler(admin.NewAuditService(pipeline)),
		Health:      handler.NewHealthHandler(&persistence.Database{DB: db}, "shop-admin", "test"),
	})
	require.NoError(t, err)

	return &stack{engine: engine, router: r, db: db, metrics: metrics}
}

func (s *stack) login(t *testing.T, email string) string {
	t.Helper()
	w := testutil.DoJSON(t, s.engine, http.MethodPost, "/api/v1/auth/login",
		map[string]any{"email": email, "password": testutil.TestPassword}, nil)
	resp := testutil.AssertSuccessResponse(t, w)
	token := resp["data"].(map[string]any)["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func bearer(token, key string) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + token}
	if key != "" {
		h[idempotency.HeaderName] = key
	}
	return h
}

func TestEngine_MutationRoundTrip(t *testing.T) {
	s := newStack(t, 100)
	testutil.SeedStaff(t, s.db, "ops@shop.test", identity.RoleOps)
	testutil.SeedPaidOrder(t, s.db, "ORD-9001", 45000)
	token := s.login(t, "ops@shop.test")

	body := map[string]any{"courier_name": "CJ", "tracking_no": "6000-1234"}
	w := testutil.DoJSON(t, s.engine, http.MethodPatch, "/api/v1/admin/orders/ORD-9001", body, bearer(token, "ship-9001"))
	resp := testutil.AssertSuccessResponse(t, w)
	assert.Equal(t, "Order updated", resp["message"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get(idempotency.ReplayHeader))

	w = testutil.DoJSON(t, s.engine, http.MethodPatch, "/api/v1/admin/orders/ORD-9001", body, bearer(token, "ship-9001"))
	resp = testutil.AssertSuccessResponse(t, w)
	assert.Equal(t, "true", w.Header().Get(idempotency.ReplayHeader))
	assert.Equal(t, true, resp["replayed"])

	w = testutil.DoJSON(t, s.engine, http.MethodGet, "/api/v1/admin/orders/ORD-9001", nil, bearer(token, ""))
	order := testutil.AssertSuccessResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, "CJ", order["courier_name"])
}

func TestEngine_Authorization(t *testing.T) {
	s := newStack(t, 100)
	testutil.SeedStaff(t, s.db, "ops@shop.test", identity.RoleOps)
	token := s.login(t, "ops@shop.test")

	w := testutil.DoJSON(t, s.engine, http.MethodGet, "/api/v1/admin/orders", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	w = testutil.DoJSON(t, s.engine, http.MethodGet, "/api/v1/admin/audit-logs", nil, bearer(token, ""))
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, "FORBIDDEN")

	w = testutil.DoJSON(t, s.engine, http.MethodPost, "/api/v1/auth/logout", nil, bearer(token, ""))
	testutil.AssertSuccessResponse(t, w)

	w = testutil.DoJSON(t, s.engine, http.MethodGet, "/api/v1/admin/me", nil, bearer(token, ""))
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	metrics := httptest.NewRecorder()
	s.engine.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `test_access_denied_total{permission="AUDIT_LOG_VIEW"} 1`)
	assert.Contains(t, metrics.Body.String(), `route="/api/v1/admin/audit-logs"`)
}

func TestEngine_LoginRateLimit(t *testing.T) {
	s := newStack(t, 2)

	for range 2 {
		w := testutil.DoJSON(t, s.engine, http.MethodPost, "/api/v1/auth/login",
			map[string]any{"email": "nobody@shop.test", "password": "guess"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := testutil.DoJSON(t, s.engine, http.MethodPost, "/api/v1/auth/login",
		map[string]any{"email": "nobody@shop.test", "password": "guess"}, nil)
	testutil.AssertErrorResponse(t, w, http.StatusTooManyRequests, "RATE_LIMITED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestEngine_PublicEndpoints(t *testing.T) {
	s := newStack(t, 100)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = testutil.DoJSON(t, s.engine, http.MethodGet, "/api/v1/nope", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, "NOT_FOUND")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/admin/orders/ORD-1", nil)
	req.Header.Set("Origin", "https://admin.shop.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.shop.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEngine_Routes(t *testing.T) {
	s := newStack(t, 100)

	perms := map[string]identity.Permission{}
	for _, r := range s.router.Routes() {
		perms[r.Method+" "+r.Path] = r.Permission
	}

	assert.Len(t, perms, 20)
	assert.Equal(t, identity.PermOrderUpdate, perms["PATCH /api/v1/admin/orders/:order_no"])
	assert.Equal(t, identity.PermSettlementUpdate, perms["POST /api/v1/admin/settlements/generate"])
	assert.Equal(t, identity.PermAuditLogView, perms["GET /api/v1/admin/audit-logs"])
	assert.Equal(t, identity.Permission(""), perms["GET /api/v1/admin/me"])
	assert.Contains(t, perms, "POST /api/v1/auth/login")
	assert.Contains(t, perms, "POST /api/v1/auth/refresh")
}
