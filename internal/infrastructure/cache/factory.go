package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordination bundles the cross-request primitives: the tenant payment lock
// and the processed-event store
type Coordination struct {
	Locker      shared.Locker
	Idempotency shared.IdempotencyStore
	// Distributed is true when both are backed by Redis
	Distributed bool
	client      *redis.Client
}

// Close releases the idempotency store and the Redis client, if any
func (c *Coordination) Close() error {
	var firstErr error
	if c.Idempotency != nil {
		firstErr = c.Idempotency.Close()
	}
	if c.client != nil {
		if err := c.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CoordinationFactory builds a Coordination from configuration
type CoordinationFactory struct {
	redisConfig           config.RedisConfig
	lockTTL               time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CoordinationFactoryOption is a functional option for configuring the factory
type CoordinationFactoryOption func(*CoordinationFactory)

// WithLogger sets the logger for the factory and the Redis locker
func WithLogger(logger *zap.Logger) CoordinationFactoryOption {
	return func(f *CoordinationFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-process primitives instead of failing. Default is true.
func WithInMemoryFallback(allow bool) CoordinationFactoryOption {
	return func(f *CoordinationFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCoordinationFactory creates a new factory
func NewCoordinationFactory(cfg config.RedisConfig, lockTTL time.Duration, opts ...CoordinationFactoryOption) *CoordinationFactory {
	f := &CoordinationFactory{
		redisConfig:           cfg,
		lockTTL:               lockTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// InMemory builds process-local primitives
func (f *CoordinationFactory) InMemory() *Coordination {
	return &Coordination{
		Locker:      NewKeyedMutexLocker(),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}

// Create uses Redis when enabled and reachable, otherwise falls back to in-process primitives
func (f *CoordinationFactory) Create(ctx context.Context) (*Coordination, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-process tenant locks")
		return f.InMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis tenant locks and idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return &Coordination{
			Locker:      NewRedisLocker(client, f.lockTTL, WithLockLogger(f.logger)),
			Idempotency: NewRedisIdempotencyStore(client, ""),
			Distributed: true,
			client:      client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for tenant locks but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process tenant locks. "+
		"Payments for one tenant are only serialized within this instance.",
		zap.Error(err),
	)
	return f.InMemory(), nil
}
