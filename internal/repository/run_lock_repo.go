package repository

import (
	"context"
	"time"
)

// RunLock guards against two replicas running the pipeline at the same time.
type RunLock interface {
	// Acquire takes the lock for at most ttl. It reports false when another
	// holder owns it.
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	// Release frees the lock if this holder still owns it.
	Release(ctx context.Context) error
}
