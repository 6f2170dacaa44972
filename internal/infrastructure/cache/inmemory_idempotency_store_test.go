package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newInMemoryIdempotencyStore(time.Hour, clock.Now)
	defer store.Close()
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "evt-2", time.Minute)
		require.NoError(t, err)
		require.True(t, isNew)

		clock.Advance(2 * time.Minute)

		processed, err := store.IsProcessed(ctx, "evt-2")
		require.NoError(t, err)
		assert.False(t, processed)

		isNew, err = store.MarkProcessed(ctx, "evt-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newInMemoryIdempotencyStore(time.Hour, clock.Now)
	defer store.Close()
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short", time.Minute)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	clock.Advance(5 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Size())
	processed, err := store.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "same-event", time.Hour)
			assert.NoError(t, err)
			if isNew {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
