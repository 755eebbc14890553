package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/domain/shared"
	"golang.org/x/time/rate"
)

// maxBuckets caps the number of tracked keys to prevent memory exhaustion
const maxBuckets = 100_000

// bucketTTL is how long an idle key keeps its bucket
const bucketTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing limit events per second with
// the given burst. Idle buckets are evicted until ctx is cancelled.
func NewRateLimiter(ctx context.Context, limit rate.Limit, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
	}
	go rl.cleanup(ctx)
	return rl
}

// NewWindowRateLimiter allows requests events per window per key
func NewWindowRateLimiter(ctx context.Context, requests int, window time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	return NewRateLimiter(ctx, rate.Every(window/time.Duration(requests)), requests)
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.lastSeen) > bucketTTL {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow takes one token from key's bucket. When the bucket is empty it
// returns false and how long until the next token.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		if len(rl.buckets) >= maxBuckets {
			rl.mu.Unlock()
			return false, rl.interval()
		}
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	if b.lim.AllowN(now, 1) {
		return true, 0
	}
	return false, rl.interval()
}

// Remaining returns the whole tokens left in key's bucket
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	rl.mu.Unlock()
	if !ok {
		return rl.burst
	}
	return int(math.Max(0, math.Floor(b.lim.TokensAt(time.Now()))))
}

// Burst returns the bucket size
func (rl *RateLimiter) Burst() int {
	return rl.burst
}

// interval is the time to refill one token
func (rl *RateLimiter) interval() time.Duration {
	if rl.limit <= 0 {
		return time.Minute
	}
	if rl.limit == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(rl.limit))
}

// RateLimitByKey returns a rate limiting middleware with a custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, retryAfter := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			abortWithError(c, shared.CodeRateLimited, "Too many requests. Please try again later.",
				map[string]any{"retry_after_seconds": seconds})
			return
		}

		c.Next()
	}
}

// ClientIPKey keys the limiter by client address
func ClientIPKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ActorRateKey keys the limiter by authenticated staff user, falling back to
// the client address
func ActorRateKey(c *gin.Context) string {
	if actor, ok := GetActor(c); ok {
		return "actor:" + actor.ID.String()
	}
	return ClientIPKey(c)
}
