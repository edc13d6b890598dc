package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = time.Minute

// Counter is the minimal store the rate limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type redisCounter struct {
	rc *redis.Client
}

func (r redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return r.rc.Incr(ctx, key).Result()
}

func (r redisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.rc.Expire(ctx, key, ttl).Err()
}

// RateLimiter counts requests per user in fixed one-minute buckets.
// Store failures never block a request.
type RateLimiter struct {
	counter Counter
	limit   int64
	now     func() time.Time
}

// NewRateLimiter builds a limiter over any Counter. A nil counter allows everything.
func NewRateLimiter(counter Counter, limit int) *RateLimiter {
	if limit <= 0 {
		limit = 100
	}
	return &RateLimiter{counter: counter, limit: int64(limit), now: time.Now}
}

// NewRedisRateLimiter wires the limiter to Redis.
func NewRedisRateLimiter(rc *redis.Client, limit int) *RateLimiter {
	if rc == nil {
		return NewRateLimiter(nil, limit)
	}
	return NewRateLimiter(redisCounter{rc: rc}, limit)
}

// RateLimitKey is the bucket key for a user at t.
func RateLimitKey(userID string, t time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", userID, t.Unix()/int64(rateLimitWindow/time.Second))
}

// Allow increments the caller's bucket and reports whether the request may proceed.
func (l *RateLimiter) Allow(ctx context.Context, userID string) bool {
	if l == nil || l.counter == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	key := RateLimitKey(userID, l.now())
	n, err := l.counter.Incr(ctx, key)
	if err != nil {
		Sugar.Warnf("rate limiter unavailable, allowing request: %v", err)
		return true
	}
	if n == 1 {
		if err := l.counter.Expire(ctx, key, rateLimitWindow); err != nil {
			Sugar.Warnf("rate limiter expire failed key=%s err=%v", key, err)
		}
	}
	return n <= l.limit
}
