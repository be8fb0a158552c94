package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// MetadataKey is the huma operation metadata key holding an EndpointConfig.
const MetadataKey = "rateLimit"

// LimitConfig allows Max requests per Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// EndpointConfig overrides the default limits for one operation.
type EndpointConfig struct {
	// Limits replaces the limiter defaults when non-empty.
	Limits []LimitConfig

	// Disabled skips rate limiting entirely for this endpoint.
	Disabled bool
}

// Exceeded describes the limit a request ran into.
type Exceeded struct {
	Limit LimitConfig
	Count int64
}

func (e *Exceeded) String() string {
	return fmt.Sprintf("%d/%d requests in %s", e.Count, e.Limit.Max, e.Limit.Window)
}

// SlidingWindowLimiter enforces sliding window limits per client and route.
type SlidingWindowLimiter struct {
	store    Store
	defaults []LimitConfig
}

// NewSlidingWindowLimiter creates a limiter applying defaults to routes
// without their own configuration.
func NewSlidingWindowLimiter(store Store, defaults ...LimitConfig) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:    store,
		defaults: defaults,
	}
}

// Allow records a request of clientKey on route and checks it against limits,
// or against the defaults when limits is empty. Exceeded is nil when allowed.
func (l *SlidingWindowLimiter) Allow(
	ctx context.Context, clientKey, route string, limits []LimitConfig,
) (bool, *Exceeded, error) {
	if len(limits) == 0 {
		limits = l.defaults
	}

	for _, limit := range limits {
		key := fmt.Sprintf("%s:%s:%d", clientKey, route, limit.Window.Milliseconds())

		count, err := l.store.Record(ctx, key, limit.Window)
		if err != nil {
			return false, nil, err
		}

		if count > limit.Max {
			return false, &Exceeded{Limit: limit, Count: count}, nil
		}
	}

	return true, nil, nil
}
