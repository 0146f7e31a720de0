package interfaces

import (
	"context"
	"time"
)

// SessionLock serializes payment sessions on one wallet across processes
type SessionLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
