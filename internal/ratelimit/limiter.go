package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const keyPrefix = "pricing:ratelimit"

// Decision is the outcome of a single limiter check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// StoreLimiter adapts a ulule limiter to the Limiter interface.
type StoreLimiter struct {
	L *limiter.Limiter
}

// NewMemoryLimiter builds a process-local limiter from a rate such as "100-M" (100 per minute).
func NewMemoryLimiter(formatted string) (*StoreLimiter, error) {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          keyPrefix,
		CleanUpInterval: time.Minute,
	})
	return newStoreLimiter(store, formatted)
}

// NewRedisLimiter shares counters between instances through Redis.
func NewRedisLimiter(client *redis.Client, formatted string) (*StoreLimiter, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: keyPrefix})
	if err != nil {
		return nil, fmt.Errorf("redis limiter store: %w", err)
	}
	return newStoreLimiter(store, formatted)
}

func newStoreLimiter(store limiter.Store, formatted string) (*StoreLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	return &StoreLimiter{L: limiter.New(store, rate)}, nil
}

// Allow implements Limiter.
func (s *StoreLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if s == nil || s.L == nil {
		return Decision{Allowed: true}, nil
	}
	lctx, err := s.L.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		ResetAt:   time.Unix(lctx.Reset, 0),
	}, nil
}
