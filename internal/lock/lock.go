package lock

import (
	"context"
	"errors"
)

// ErrLocked is returned when another invocation holds the site lock
var ErrLocked = errors.New("site is locked by another operation")

// Locker grants per-site mutual exclusion across processes
type Locker interface {
	// Acquire takes the lock for key without blocking. The returned
	// function releases it and is safe to call once.
	Acquire(ctx context.Context, key string) (func() error, error)
}
