package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/auth"
	"github.com/shopadmin/backend/internal/infrastructure/cache"
	"github.com/shopadmin/backend/internal/infrastructure/config"
	"github.com/shopadmin/backend/internal/infrastructure/logger"
	"github.com/shopadmin/backend/internal/infrastructure/persistence"
	"github.com/shopadmin/backend/internal/infrastructure/scheduler"
	"github.com/shopadmin/backend/internal/infrastructure/telemetry"
	"github.com/shopadmin/backend/internal/interfaces/http/handler"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
	"github.com/shopadmin/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		Sampling: cfg.Log.Sampling,
	}, logger.WithFields(
		zap.String("service", cfg.App.Name),
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
	))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting shop admin backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	var (
		metrics   *telemetry.Metrics
		dbOptions []telemetry.DBTracingOption
	)
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics(telemetry.DefaultNamespace)
		if sqlDB, err := db.DB.DB(); err == nil {
			if err := metrics.RegisterDBStats(sqlDB, cfg.Database.DBName); err != nil {
				log.Warn("Failed to register database stats collector", zap.Error(err))
			}
		}
		dbOptions = append(dbOptions, telemetry.WithSlowQueryObserver(metrics))
	}

	dbTracing := telemetry.NewDBTracing(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log, dbOptions...)
	if err := dbTracing.Register(db.DB); err != nil {
		return fmt.Errorf("register database instrumentation: %w", err)
	}

	clock := shared.SystemClock{}
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis,
		cache.WithLogger(log),
		cache.WithClock(clock),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	idemOpts := storeFactory.Options()

	repos := persistence.NewRepositories(db.DB, clock, idemOpts)
	store, completeInTx, closeStore, err := newIdempotencyStore(ctx, cfg, storeFactory, db, clock, idemOpts)
	if err != nil {
		return err
	}
	defer closeStore()

	blacklist, closeBlacklist, err := newTokenBlacklist(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBlacklist()

	pipelineOpts := admin.DefaultPipelineOptions()
	pipelineOpts.RecordDenials = cfg.Audit.RecordDenials
	pipelineOpts.InFlightWait = cfg.Idempotency.InFlightWait
	pipelineOpts.PollInterval = cfg.Idempotency.PollInterval
	pipelineOpts.CompleteInTx = completeInTx

	deps := admin.PipelineDeps{
		TxScope: persistence.NewGormTransactionScope(db.DB, clock, idemOpts),
		Repos:   repos,
		Store:   store,
		Masker:  newMasker(cfg.Masking),
		Clock:   clock,
		Logger:  log,
	}
	if metrics != nil {
		deps.Observer = metrics
	}
	pipeline := admin.NewPipeline(deps, pipelineOpts)

	policy := feePolicy(cfg.Settlement)
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := admin.NewAuthService(repos.Staff(), jwtService, blacklist, clock, log)

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Orders:      handler.NewOrderHandler(admin.NewOrderService(pipeline, policy)),
		Returns:     handler.NewReturnHandler(admin.NewReturnService(pipeline, policy)),
		Settlements: handler.NewSettlementHandler(admin.NewSettlementService(pipeline, policy, cfg.Settlement.GenerateLimit)),
		Users:       handler.NewUserHandler(admin.NewStaffService(pipeline, blacklist, cfg.JWT.RefreshTokenExpiration)),
		AuditLogs:   handler.NewAuditLogHandler(admin.NewAuditService(pipeline)),
		Health:      handler.NewHealthHandler(db, cfg.App.Name, version),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()

	engineCfg := router.EngineConfig{
		Logger:        log,
		Authenticator: authService,
		CORS:          cors,
		Security:      security,
		Tracing: middleware.TracingConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			Enabled:        tp.IsEnabled(),
			TracerProvider: tp.Provider(),
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MetricsPath:    cfg.Telemetry.MetricsPath,
	}
	if metrics != nil {
		engineCfg.Metrics = metrics
	}
	if cfg.HTTP.RateLimitEnabled {
		engineCfg.ActorLimiter = middleware.NewRateLimiter(ctx, rate.Limit(cfg.HTTP.ActorRateLimit), cfg.HTTP.ActorRateBurst)
		engineCfg.LoginLimiter = middleware.NewWindowRateLimiter(ctx, cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		log.Info("Rate limiting enabled",
			zap.Float64("actor_rps", cfg.HTTP.ActorRateLimit),
			zap.Int("actor_burst", cfg.HTTP.ActorRateBurst),
			zap.Int("login_requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("login_window", cfg.HTTP.AuthRateLimitWindow),
		)
	}

	engine, routes, err := router.NewEngine(engineCfg, handlers)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	if log.Core().Enabled(zap.DebugLevel) {
		for _, rt := range routes.Routes() {
			log.Debug("Route registered",
				zap.String("group", rt.Group),
				zap.String("method", rt.Method),
				zap.String("path", rt.Path),
				zap.String("permission", string(rt.Permission)),
			)
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	var pruner *scheduler.IdempotencyPruner
	if cfg.Idempotency.PruneInterval > 0 {
		pruner, err = scheduler.NewIdempotencyPruner(scheduler.PrunerConfig{
			Interval: cfg.Idempotency.PruneInterval,
		}, store, clock, log)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	if pruner != nil {
		if err := pruner.Start(gctx); err != nil {
			return err
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if pruner != nil {
			if err := pruner.Stop(shutdownCtx); err != nil {
				log.Warn("Idempotency pruner did not stop cleanly", zap.Error(err))
			}
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newIdempotencyStore selects the configured backend. Only the database
// store can complete records inside the mutation transaction.
func newIdempotencyStore(
	ctx context.Context,
	cfg *config.Config,
	factory *cache.IdempotencyStoreFactory,
	db *persistence.Database,
	clock shared.Clock,
	opts idempotency.Options,
) (idempotency.Store, bool, func(), error) {
	if cfg.Idempotency.Backend == "database" {
		return persistence.NewGormIdempotencyStore(db.DB, clock, opts), true, func() {}, nil
	}

	store, err := factory.CreateStore(ctx)
	if err != nil {
		return nil, false, nil, fmt.Errorf("create idempotency store: %w", err)
	}
	return store, false, func() { _ = store.Close() }, nil
}

// newTokenBlacklist uses Redis so revocations reach every instance. Outside
// production an unreachable Redis falls back to a process-local blacklist.
func newTokenBlacklist(ctx context.Context, cfg *config.Config, log *zap.Logger) (auth.TokenBlacklist, func(), error) {
	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("token blacklist: %w", err)
		}
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		return auth.NewInMemoryTokenBlacklist(), func() {}, nil
	}
	log.Info("Using Redis token blacklist", zap.String("addr", cfg.Redis.Addr()))
	return auth.NewRedisTokenBlacklist(client), func() { _ = client.Close() }, nil
}
