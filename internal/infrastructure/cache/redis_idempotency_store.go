package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// DefaultKeyPrefix namespaces idempotency records in a shared Redis
const DefaultKeyPrefix = "admin:idempotency:"

// maxWatchRetries bounds optimistic transaction retries
const maxWatchRetries = 5

// RedisIdempotencyStore implements idempotency.Store using Redis.
// This is suitable for distributed deployments where multiple instances
// need to share idempotency state. An IN_PROGRESS key lives for the
// in-progress lease, so an abandoned request frees its key by expiry; a
// completed key lives for the retention period.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	clock     shared.Clock
	opts      idempotency.Options
}

// redisRecord is the JSON value stored under a scope key
type redisRecord struct {
	RequestHash string                      `json:"request_hash"`
	Status      idempotency.Status          `json:"status"`
	Response    *idempotency.StoredResponse `json:"response,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
}

// NewRedisIdempotencyStore creates a store on an existing Redis client
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string, clock shared.Clock, opts idempotency.Options) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
		clock:     clock,
		opts:      opts,
	}
}

func (s *RedisIdempotencyStore) key(scope idempotency.Scope) string {
	return s.keyPrefix + scope.String()
}

// Begin claims the scope with SETNX or reports its current state
func (s *RedisIdempotencyStore) Begin(ctx context.Context, scope idempotency.Scope, requestHash string) (idempotency.BeginResult, error) {
	key := s.key(scope)

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		now := s.clock.Now()
		rec := redisRecord{
			RequestHash: requestHash,
			Status:      idempotency.StatusInProgress,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return idempotency.BeginResult{}, fmt.Errorf("encode idempotency record: %w", err)
		}

		acquired, err := s.client.SetNX(ctx, key, value, s.opts.InProgressLease).Result()
		if err != nil {
			return idempotency.BeginResult{}, fmt.Errorf("claim idempotency key: %w", err)
		}
		if acquired {
			return idempotency.BeginResult{Outcome: idempotency.OutcomeAcquired, Record: rec.toDomain(scope)}, nil
		}

		existing, err := s.get(ctx, key)
		if errors.Is(err, redis.Nil) {
			// expired or aborted between SETNX and GET
			continue
		}
		if err != nil {
			return idempotency.BeginResult{}, err
		}
		if existing.RequestHash != requestHash {
			return idempotency.BeginResult{}, idempotency.ErrKeyReused
		}
		if existing.Status == idempotency.StatusCompleted {
			return idempotency.BeginResult{Outcome: idempotency.OutcomeCompleted, Record: existing.toDomain(scope)}, nil
		}
		return idempotency.BeginResult{Outcome: idempotency.OutcomeInProgress, Record: existing.toDomain(scope)}, nil
	}
	return idempotency.BeginResult{}, fmt.Errorf("acquire idempotency key %s: gave up after %d attempts", scope, maxWatchRetries)
}

// Complete stores the response and extends the key to the retention period
func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope idempotency.Scope, resp idempotency.StoredResponse) error {
	key := s.key(scope)
	return s.update(ctx, key, func(tx *redis.Tx, rec *redisRecord) error {
		if rec == nil || rec.Status != idempotency.StatusInProgress {
			return fmt.Errorf("complete idempotency key %s: %w", scope, idempotency.ErrNotInProgress)
		}
		now := s.clock.Now()
		rec.Status = idempotency.StatusCompleted
		rec.Response = &resp
		rec.UpdatedAt = now
		rec.CompletedAt = &now
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode idempotency record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, s.opts.Retention)
			return nil
		})
		return err
	})
}

// Abort deletes an IN_PROGRESS key so the client may retry
func (s *RedisIdempotencyStore) Abort(ctx context.Context, scope idempotency.Scope) error {
	key := s.key(scope)
	return s.update(ctx, key, func(tx *redis.Tx, rec *redisRecord) error {
		if rec == nil || rec.Status != idempotency.StatusInProgress {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	})
}

// Prune is a no-op: Redis expires keys on its own
func (s *RedisIdempotencyStore) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// update runs fn under WATCH on key, retrying when another client changed
// the key before EXEC
func (s *RedisIdempotencyStore) update(ctx context.Context, key string, fn func(tx *redis.Tx, rec *redisRecord) error) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fn(tx, nil)
		}
		if err != nil {
			return fmt.Errorf("load idempotency key: %w", err)
		}
		var rec redisRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode idempotency record: %w", err)
		}
		return fn(tx, &rec)
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update idempotency key %s: too much contention", key)
}

func (s *RedisIdempotencyStore) get(ctx context.Context, key string) (*redisRecord, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

func (r redisRecord) toDomain(scope idempotency.Scope) *idempotency.Record {
	return &idempotency.Record{
		Scope:       scope,
		RequestHash: r.RequestHash,
		Status:      r.Status,
		Response:    r.Response,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// Close closes the underlying Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// Ensure RedisIdempotencyStore implements idempotency.Store
var _ idempotency.Store = (*RedisIdempotencyStore)(nil)
