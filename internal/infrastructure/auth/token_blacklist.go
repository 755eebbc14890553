package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// TokenBlacklist invalidates JWTs before they expire: single tokens on
// logout, every token of a staff user on deactivation or role change
type TokenBlacklist interface {
	// AddToBlacklist revokes one token until ttl elapses; ttl should be the
	// token's remaining lifetime
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// AddUserTokensToBlacklist revokes every token issued to userID up to now.
	// ttl should cover the longest token lifetime.
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserTokenInvalidated reports whether a token issued at tokenIssuedAt
	// predates the user's last revocation
	IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error)
}

const defaultBlacklistPrefix = "admin:token:"

type blacklistConfig struct {
	prefix string
	clock  shared.Clock
}

// BlacklistOption configures a TokenBlacklist implementation
type BlacklistOption func(*blacklistConfig)

// WithBlacklistPrefix overrides the Redis key prefix
func WithBlacklistPrefix(prefix string) BlacklistOption {
	return func(c *blacklistConfig) {
		c.prefix = prefix
	}
}

// WithBlacklistClock sets the clock used for revocation instants
func WithBlacklistClock(clock shared.Clock) BlacklistOption {
	return func(c *blacklistConfig) {
		c.clock = clock
	}
}

func newBlacklistConfig(opts []BlacklistOption) blacklistConfig {
	cfg := blacklistConfig{prefix: defaultBlacklistPrefix, clock: shared.SystemClock{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// issuedBeforeRevocation compares at second precision since JWT iat is whole
// seconds; a token minted in the same second as the revocation is rejected
func issuedBeforeRevocation(issuedAt time.Time, revokedAtUnix int64) bool {
	return issuedAt.Unix() <= revokedAtUnix
}

// RedisTokenBlacklist shares revocations across every API instance
type RedisTokenBlacklist struct {
	client redis.UniversalClient
	cfg    blacklistConfig
}

// NewRedisTokenBlacklist creates a token blacklist on a shared Redis client
func NewRedisTokenBlacklist(client redis.UniversalClient, opts ...BlacklistOption) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{
		client: client,
		cfg:    newBlacklistConfig(opts),
	}
}

func (b *RedisTokenBlacklist) key(kind, id string) string {
	return b.cfg.prefix + kind + ":" + id
}

func (b *RedisTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.key("jti", jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key("jti", jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

func (b *RedisTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error {
	revokedAt := b.cfg.clock.Now().Unix()
	if err := b.client.Set(ctx, b.key("user", userID), strconv.FormatInt(revokedAt, 10), ttl).Err(); err != nil {
		return fmt.Errorf("revoke tokens of user %s: %w", userID, err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	revokedAt, err := b.client.Get(ctx, b.key("user", userID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check revocation of user %s: %w", userID, err)
	}
	return issuedBeforeRevocation(tokenIssuedAt, revokedAt), nil
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// InMemoryTokenBlacklist keeps revocations in process memory. Revocations
// are lost on restart and not shared between instances.
type InMemoryTokenBlacklist struct {
	cfg blacklistConfig

	mu    sync.Mutex
	jtis  map[string]time.Time // jti -> entry expiry
	users map[string]userRevocation
}

type userRevocation struct {
	revokedAt int64
	expiresAt time.Time
}

// NewInMemoryTokenBlacklist creates a new in-memory token blacklist
func NewInMemoryTokenBlacklist(opts ...BlacklistOption) *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		cfg:   newBlacklistConfig(opts),
		jtis:  make(map[string]time.Time),
		users: make(map[string]userRevocation),
	}
}

func (b *InMemoryTokenBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = b.cfg.clock.Now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweep()
	_, ok := b.jtis[jti]
	return ok, nil
}

func (b *InMemoryTokenBlacklist) AddUserTokensToBlacklist(_ context.Context, userID string, ttl time.Duration) error {
	now := b.cfg.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = userRevocation{revokedAt: now.Unix(), expiresAt: now.Add(ttl)}
	return nil
}

func (b *InMemoryTokenBlacklist) IsUserTokenInvalidated(_ context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweep()
	rev, ok := b.users[userID]
	if !ok {
		return false, nil
	}
	return issuedBeforeRevocation(tokenIssuedAt, rev.revokedAt), nil
}

// sweep drops expired entries; callers hold mu
func (b *InMemoryTokenBlacklist) sweep() {
	now := b.cfg.clock.Now()
	for jti, exp := range b.jtis {
		if !now.Before(exp) {
			delete(b.jtis, jti)
		}
	}
	for id, rev := range b.users {
		if !now.Before(rev.expiresAt) {
			delete(b.users, id)
		}
	}
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
