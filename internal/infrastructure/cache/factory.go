package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Supported non-database idempotency backends
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// redisPingTimeout bounds the startup connectivity check
const redisPingTimeout = 3 * time.Second

// ClosableStore is an idempotency store owning resources that must be released
type ClosableStore interface {
	idempotency.Store
	Close() error
}

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	idempotencyConfig     config.IdempotencyConfig
	redisConfig           config.RedisConfig
	clock                 shared.Clock
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithClock sets the clock used by created stores
func WithClock(clock shared.Clock) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.clock = clock
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable
// Default is false
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(idemCfg config.IdempotencyConfig, redisCfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		idempotencyConfig: idemCfg,
		redisConfig:       redisCfg,
		clock:             shared.SystemClock{},
		logger:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Options converts the configuration into store timing options
func (f *IdempotencyStoreFactory) Options() idempotency.Options {
	opts := idempotency.DefaultOptions()
	if f.idempotencyConfig.Retention > 0 {
		opts.Retention = f.idempotencyConfig.Retention
	}
	if f.idempotencyConfig.InProgressLease > 0 {
		opts.InProgressLease = f.idempotencyConfig.InProgressLease
	}
	return opts
}

// CreateRedisStore creates a Redis-based idempotency store
func (f *IdempotencyStoreFactory) CreateRedisStore(ctx context.Context) (ClosableStore, error) {
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
	}
	return NewRedisIdempotencyStore(client, f.idempotencyConfig.KeyPrefix, f.clock, f.Options()), nil
}

// CreateInMemoryStore creates an in-memory idempotency store
// This is suitable for single-instance deployments and testing
// WARNING: In-memory stores do not share state across process instances,
// so a retry routed to another instance mutates again
func (f *IdempotencyStoreFactory) CreateInMemoryStore() ClosableStore {
	return NewInMemoryIdempotencyStore(f.clock, f.Options(), defaultCleanupInterval)
}

// CreateStore creates the store named by the configured backend. A redis
// backend falls back to in-memory only when the fallback option is set.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (ClosableStore, error) {
	switch f.idempotencyConfig.Backend {
	case BackendMemory:
		f.logger.Warn("using in-memory idempotency store; replay protection is per instance")
		return f.CreateInMemoryStore(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("idempotency backend %q is not served by the cache package", f.idempotencyConfig.Backend)
	}

	// Try Redis first
	store, err := f.CreateRedisStore(ctx)
	if err == nil {
		f.logger.Info("using Redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"Retries routed to another instance will not be deduplicated.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
