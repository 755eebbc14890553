package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// unreachableRedis points at a closed local port
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestIdempotencyStoreFactory_Options(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{}, unreachableRedis)
		assert.Equal(t, idempotency.DefaultOptions(), f.Options())
	})

	t.Run("configured values win", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{
			Retention:       time.Hour,
			InProgressLease: 5 * time.Second,
		}, unreachableRedis)
		assert.Equal(t, time.Hour, f.Options().Retention)
		assert.Equal(t, 5*time.Second, f.Options().InProgressLease)
	})
}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendMemory}, unreachableRedis,
			WithLogger(zaptest.NewLogger(t)))
		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis unavailable without fallback", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendRedis}, unreachableRedis)
		_, err := f.CreateStore(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Redis required")
	})

	t.Run("redis unavailable with fallback", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendRedis}, unreachableRedis,
			WithInMemoryFallback(true), WithLogger(zaptest.NewLogger(t)))
		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("database backend is rejected", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "database"}, unreachableRedis)
		_, err := f.CreateStore(ctx)
		assert.Error(t, err)
	})
}
