package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/infrastructure/logger"
	"github.com/shopadmin/backend/internal/interfaces/http/dto"
	"github.com/shopadmin/backend/internal/interfaces/http/handler"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers holds every HTTP handler the admin API serves
type Handlers struct {
	Auth        *handler.AuthHandler
	Orders      *handler.OrderHandler
	Returns     *handler.ReturnHandler
	Settlements *handler.SettlementHandler
	Users       *handler.UserHandler
	AuditLogs   *handler.AuditLogHandler
	Health      *handler.HealthHandler
}

// Metrics is the Prometheus surface used by the engine
type Metrics interface {
	middleware.HTTPMetricsRecorder
	middleware.DenialObserver
	Handler() http.Handler
}

// EngineConfig configures the middleware stack
type EngineConfig struct {
	Logger         *zap.Logger
	Authenticator  middleware.Authenticator
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	Tracing        middleware.TracingConfig
	MaxBodySize    int64
	TrustedProxies []string

	// Metrics is optional; MetricsPath defaults to /metrics
	Metrics     Metrics
	MetricsPath string

	// ActorLimiter limits admin requests per staff user, LoginLimiter limits
	// login attempts per client address. Nil disables either.
	ActorLimiter *middleware.RateLimiter
	LoginLimiter *middleware.RateLimiter
}

// NewEngine builds the gin engine with the full middleware stack and every
// admin route mounted
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, *Router, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, nil, err
		}
	}

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	// Order matters: request id first so every later layer can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, logger.WithQuietPaths("/health", metricsPath)))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.SecureWithConfig(cfg.Security))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	tracing := cfg.Tracing
	if tracing.SkipPaths == nil {
		tracing.SkipPaths = []string{"/health", metricsPath}
	}
	engine.Use(middleware.TracingWithConfig(tracing))
	if cfg.Metrics != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Metrics))
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	if cfg.Metrics != nil {
		engine.GET(metricsPath, gin.WrapH(cfg.Metrics.Handler()))
	}

	authenticate := middleware.Authenticate(cfg.Authenticator, log)
	var permCfg middleware.PermissionConfig
	if cfg.Metrics != nil {
		permCfg.Observer = cfg.Metrics
	}

	r := NewRouter(engine, WithAPIVersion("v1"))

	authRoutes := NewDomainGroup("auth", "/auth")
	// login and refresh share the per-IP limiter
	var credentialLimit []gin.HandlerFunc
	if cfg.LoginLimiter != nil {
		credentialLimit = []gin.HandlerFunc{middleware.RateLimitByKey(cfg.LoginLimiter, middleware.ClientIPKey)}
	}
	authRoutes.POST("/login", "", append(credentialLimit, h.Auth.Login)...)
	authRoutes.POST("/refresh", "", append(credentialLimit, h.Auth.Refresh)...)
	authRoutes.POST("/logout", "", authenticate, h.Auth.Logout)

	adminRoutes := NewDomainGroup("admin", "/admin").WithPermissionConfig(permCfg)
	adminRoutes.Use(authenticate, middleware.TracingAttributeInjector())
	if cfg.ActorLimiter != nil {
		adminRoutes.Use(middleware.RateLimitByKey(cfg.ActorLimiter, middleware.ActorRateKey))
	}
	adminRoutes.GET("/me", "", h.Auth.Me)

	adminRoutes.GET("/orders", identity.PermOrderView, h.Orders.List)
	adminRoutes.GET("/orders/:order_no", identity.PermOrderView, h.Orders.Get)
	adminRoutes.PATCH("/orders/:order_no", identity.PermOrderUpdate, h.Orders.Update)

	adminRoutes.GET("/returns", identity.PermReturnView, h.Returns.List)
	adminRoutes.POST("/returns", identity.PermReturnUpdate, h.Returns.Create)
	adminRoutes.PATCH("/returns/:id", identity.PermReturnUpdate, h.Returns.Update)
	adminRoutes.DELETE("/returns/:id", identity.PermReturnUpdate, h.Returns.Delete)

	adminRoutes.GET("/settlements", identity.PermSettlementView, h.Settlements.List)
	adminRoutes.POST("/settlements/generate", identity.PermSettlementUpdate, h.Settlements.Generate)
	adminRoutes.PATCH("/settlements/:id", identity.PermSettlementUpdate, h.Settlements.Update)
	adminRoutes.DELETE("/settlements/:id", identity.PermSettlementUpdate, h.Settlements.Delete)

	adminRoutes.GET("/users", identity.PermUserView, h.Users.ListUsers)
	adminRoutes.PATCH("/users/:id", identity.PermUserUpdate, h.Users.Update)
	adminRoutes.DELETE("/users/:id", identity.PermUserUpdate, h.Users.Deactivate)
	adminRoutes.GET("/staff", identity.PermStaffView, h.Users.ListStaff)

	adminRoutes.GET("/audit-logs", identity.PermAuditLogView, h.AuditLogs.List)

	r.Register(authRoutes).Register(adminRoutes)
	r.Setup()

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c), nil))
	})

	return engine, r, nil
}
