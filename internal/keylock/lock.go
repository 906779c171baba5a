package keylock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotAcquired = errors.New("lock_not_acquired")
	ErrEmptyKey    = errors.New("lock key is empty")
	ErrInvalidTTL  = errors.New("lock ttl must be positive")
)

// Locker hands out exclusive, expiring leases on string keys.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

const retryInterval = 25 * time.Millisecond

// WithLock runs fn while holding key. It retries until wait elapses or ctx
// is done and returns ErrNotAcquired when the lease could not be taken.
func WithLock(ctx context.Context, l Locker, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(wait)
	for {
		token, ok, err := l.TryLock(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			defer func() {
				// Release on a fresh context so a cancelled caller still frees the key.
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				_ = l.Release(releaseCtx, key, token)
			}()
			return fn(ctx)
		}
		if !time.Now().Before(deadline) {
			return ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
