package queue

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore remembers which job ids the queue has already accepted so
// a re-trigger inside the dedup window becomes a no-op. Implementations must
// make MarkAccepted atomic.
type IdempotencyStore interface {
	// MarkAccepted records a job id with a TTL. Returns true if the id was
	// newly recorded, false if it was already present.
	MarkAccepted(ctx context.Context, jobID string, ttl time.Duration) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// dedupEntry represents a stored job ID with expiration
type dedupEntry struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore implements IdempotencyStore using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]dedupEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store
// It starts a background goroutine to clean up expired entries
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]dedupEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkAccepted records a job id with a TTL
// Returns true if the id was newly recorded, false if it was already present
func (s *InMemoryIdempotencyStore) MarkAccepted(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[jobID]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil // Already accepted
		}
		// Entry exists but expired, will be overwritten
	}

	s.entries[jobID] = dedupEntry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for jobID, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, jobID)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
