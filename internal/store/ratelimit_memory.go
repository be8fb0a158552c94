package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shortener-go/internal/ratelimit"
)

var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)

// RateLimitMemoryStore keeps request timestamps per key in process memory.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
	calls    int
}

// sweepEvery controls how often idle keys are removed from the map.
const sweepEvery = 1024

func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return NewRateLimitMemoryStoreWithClock(time.Now)
}

// NewRateLimitMemoryStoreWithClock is NewRateLimitMemoryStore with a custom time source.
func NewRateLimitMemoryStoreWithClock(now func() time.Time) *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
		now:      now,
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	valid := prune(s.requests[key], now.Add(-window))
	valid = append(valid, now)
	s.requests[key] = valid

	s.calls++
	if s.calls%sweepEvery == 0 {
		s.sweep(now)
	}

	return int64(len(valid)), nil
}

// Keys returns the number of tracked keys.
func (s *RateLimitMemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// sweep drops keys whose newest request is older than the longest window seen
// in their key. Window length is not stored, so an hour is used as the ceiling.
func (s *RateLimitMemoryStore) sweep(now time.Time) {
	cutoff := now.Add(-time.Hour)

	for key, timestamps := range s.requests {
		if len(timestamps) == 0 || !timestamps[len(timestamps)-1].After(cutoff) {
			delete(s.requests, key)
		}
	}
}

// prune returns the timestamps after cutoff, reusing the backing array.
func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	valid := timestamps[:0]

	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	return valid
}
