package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockTimeout is returned when a lock could not be acquired before the context ended
var ErrLockTimeout = shared.NewConflictError("LOCK_TIMEOUT", "Timed out waiting for lock")

// KeyedMutexLocker serializes callers per key inside one process
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutexLocker creates an in-process locker
func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: make(map[string]*keyedLock)}
}

// Lock waits for the key or for ctx to end
func (l *KeyedMutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *KeyedMutexLocker) release(key string, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Held returns the number of keys currently locked or awaited
func (l *KeyedMutexLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// compare-and-delete: only the holder of the token may release the key
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DefaultLockKeyPrefix namespaces lock keys in Redis
const DefaultLockKeyPrefix = "propledger:lock:"

// RedisLocker is a single-instance Redis lock (SET NX PX with a random token).
// The TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	retry     time.Duration
	logger    *zap.Logger
}

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithLockRetryInterval sets the polling interval while waiting for a held key
func WithLockRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLockLogger sets the logger used for release failures
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, opts ...RedisLockerOption) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	l := &RedisLocker{
		client:    client,
		keyPrefix: DefaultLockKeyPrefix,
		ttl:       ttl,
		retry:     25 * time.Millisecond,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock polls SET NX until the key is free or ctx ends
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be done
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}
}

var (
	_ shared.Locker = (*KeyedMutexLocker)(nil)
	_ shared.Locker = (*RedisLocker)(nil)
)
