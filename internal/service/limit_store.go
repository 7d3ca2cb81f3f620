package service

import (
	"context"
	"sync"
	"time"
)

// LimitStore is the backing store contract for the rate limiter. Increment
// must be atomic per key: concurrent requests on the same key may never
// undercount.
type LimitStore interface {
	// Increment bumps the counter for key, starting a new fixed window of the
	// given length if none is active, and returns the count and window reset time.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)

	// Reset clears the key's window early (administrative override)
	Reset(ctx context.Context, key string) error
}

type limitEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryLimitStore is a mutex-guarded in-process store. Counts are lost on
// restart, which is adequate for single-instance deployments.
type MemoryLimitStore struct {
	mu      sync.Mutex
	entries map[string]*limitEntry
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryLimitStore creates an in-memory store with a background janitor
// sweeping expired windows
func NewMemoryLimitStore() *MemoryLimitStore {
	s := &MemoryLimitStore{
		entries: make(map[string]*limitEntry),
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Increment implements LimitStore. An entry whose window has passed is
// treated as absent, so expiry needs no active state transition.
func (s *MemoryLimitStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &limitEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.resetAt, nil
}

// Reset implements LimitStore
func (s *MemoryLimitStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the janitor goroutine
func (s *MemoryLimitStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryLimitStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, entry := range s.entries {
				if now.After(entry.resetAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
