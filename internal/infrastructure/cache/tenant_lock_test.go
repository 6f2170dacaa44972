package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexLocker_SerializesSameKey(t *testing.T) {
	locker := NewKeyedMutexLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "tenant-a")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locker.Held())
}

func TestKeyedMutexLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewKeyedMutexLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "tenant-a")
	require.NoError(t, err)
	defer unlockA()

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(waitCtx, "tenant-b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutexLocker_TimesOut(t *testing.T) {
	locker := NewKeyedMutexLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "tenant-a")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "tenant-a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.True(t, shared.IsKind(err, shared.KindConflict))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	unlock()
	assert.Zero(t, locker.Held())
}

func TestCoordinationFactory_DisabledRedisUsesInProcess(t *testing.T) {
	f := NewCoordinationFactory(config.RedisConfig{Enabled: false}, time.Second)
	c, err := f.Create(context.Background())
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Distributed)
	assert.IsType(t, &KeyedMutexLocker{}, c.Locker)
	assert.IsType(t, &InMemoryIdempotencyStore{}, c.Idempotency)
}

func TestCoordinationFactory_UnreachableRedis(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("falls back by default", func(t *testing.T) {
		c, err := NewCoordinationFactory(cfg, time.Second).Create(ctx)
		require.NoError(t, err)
		defer c.Close()
		assert.False(t, c.Distributed)
	})

	t.Run("fails when fallback is disabled", func(t *testing.T) {
		_, err := NewCoordinationFactory(cfg, time.Second, WithInMemoryFallback(false)).Create(ctx)
		assert.Error(t, err)
	})
}
