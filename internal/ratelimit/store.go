package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// WindowStore persists the request timestamps of each identity.
// Implementations must be safe for concurrent use; the limiter serializes
// access per key, not across keys.
type WindowStore interface {
	Load(ctx context.Context, key string) ([]time.Time, error)
	Save(ctx context.Context, key string, window []time.Time, ttl time.Duration) error
}

const sweepEvery = 1024

// MemoryStore is an in-process WindowStore. Idle identities expire with the
// entry TTL; expired entries are swept inline every sweepEvery saves so no
// background goroutine is needed.
type MemoryStore struct {
	cache *ttlcache.Cache[string, []time.Time]
	saves atomic.Uint64
}

var _ WindowStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: ttlcache.New[string, []time.Time](
			ttlcache.WithDisableTouchOnHit[string, []time.Time](),
		),
	}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]time.Time, error) {
	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, nil
	}
	return item.Value(), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, window []time.Time, ttl time.Duration) error {
	s.cache.Set(key, window, ttl)
	if s.saves.Add(1)%sweepEvery == 0 {
		s.cache.DeleteExpired()
	}
	return nil
}

// Len returns the number of tracked identities, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
