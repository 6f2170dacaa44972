package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (event IDs) so a handler runs once per key
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was already present
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}

// Locker serializes work on a key across goroutines and, when backed by
// Redis, across processes.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
