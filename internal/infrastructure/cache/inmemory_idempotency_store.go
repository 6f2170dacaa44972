package cache

import (
	"context"
	"sync"
	"time"

	"github.com/propledger/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore implements IdempotencyStore with a process-local map.
// Keys are event IDs seen by the event handlers; entries expire after their TTL.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiries  map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store and starts its sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(5*time.Minute, time.Now)
}

func newInMemoryIdempotencyStore(sweepEvery time.Duration, now func() time.Time) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		expiries: make(map[string]time.Time),
		now:      now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.sweepLoop(sweepEvery)

	return store
}

// MarkProcessed records the key until ttl elapses.
// It returns false if the key is already recorded and still live.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.expiries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.expiries[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether the key is recorded and still live
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.expiries[key]
	return ok && s.now().Before(expiresAt), nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, expiresAt := range s.expiries {
		if !now.Before(expiresAt) {
			delete(s.expiries, key)
		}
	}
}

// Size returns the number of recorded keys, expired or not
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
