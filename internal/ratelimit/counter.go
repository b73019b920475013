package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is the atomic-counter primitive the limiter runs on. Incr must
// be atomic across concurrent callers (and across processes for the redis
// implementation); Decr rolls an over-limit increment back.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
}

// RedisCounterStore backs counters with shared redis so all workers see the
// same windows. The expiry equals the bucket width, so stale buckets
// self-clean.
type RedisCounterStore struct {
	rdb *redis.Client
}

func NewRedisCounterStore(rdb *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{rdb: rdb}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.rdb.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cnt.Val(), nil
}

func (s *RedisCounterStore) Decr(ctx context.Context, key string) error {
	return s.rdb.Decr(ctx, key).Err()
}

// MemoryCounterStore is a process-local CounterStore for tests and single-node
// development. Expiry is checked lazily on increment.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memCounter
	now     func() time.Time
}

type memCounter struct {
	n       int64
	expires time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string]*memCounter),
		now:     time.Now,
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.now().After(e.expires) {
		e = &memCounter{expires: s.now().Add(ttl)}
		s.entries[key] = e
	}
	e.n++
	return e.n, nil
}

func (s *MemoryCounterStore) Decr(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.n > 0 {
		e.n--
	}
	return nil
}
