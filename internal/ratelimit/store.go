package ratelimit

import (
	"context"
	"time"
)

// Store keeps the request log behind the sliding windows.
type Store interface {
	// Record logs one request under key, forgets requests older than window
	// and returns how many remain, this one included.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
