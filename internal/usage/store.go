package usage

import (
	"context"
	"sync"
	"time"
)

// Store is a key to counter map with per-key expiry. Implementations must be
// safe for concurrent use.
type Store interface {
	// IncrBy adds delta to key and returns the new value. A key that does
	// not exist (or has expired) starts at zero and expires after ttl;
	// ttl <= 0 means it never expires. Incrementing an existing key keeps
	// its original expiry.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// Get returns the current value of key, zero when missing or expired.
	Get(ctx context.Context, key string) (int64, error)
}

// Sweeper is implemented by stores that drop expired keys only when asked.
type Sweeper interface {
	Sweep() int
}

type entry struct {
	value     int64
	expiresAt time.Time // zero when the key never expires
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Sweeper = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryStore) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		e = entry{}
		if ttl > 0 {
			e.expiresAt = now.Add(ttl)
		}
	}
	e.value += delta
	s.entries[key] = e

	return e.value, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		return 0, nil
	}
	return e.value, nil
}

// Sweep drops expired keys and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored keys, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
