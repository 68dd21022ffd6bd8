package lock

import (
	"context"
	"time"
)

// Store is the durable lock table. Implementations must make Acquire atomic:
// two concurrent callers for the same key can never both insert an active row.
type Store interface {
	// Acquire looks up a live lock for e's key, reclaims expired active rows and
	// inserts e as the new active row, all as one atomic unit. When a live lock
	// blocks the insert it is returned and e is left unsaved.
	Acquire(ctx context.Context, e *Entry, now time.Time) (blocking *Entry, reclaimed int64, err error)

	Get(ctx context.Context, id uint64) (*Entry, error)

	// Active returns the live lock for key or ErrNotFound.
	Active(ctx context.Context, key Key, now time.Time) (*Entry, error)

	// Release flips one active row to inactive; false when it was not active.
	Release(ctx context.Context, id uint64, now time.Time) (bool, error)

	ReleaseAll(ctx context.Context, key Key, now time.Time) (int64, error)

	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	// History lists every entry for key, newest first.
	History(ctx context.Context, key Key, limit int) ([]Entry, error)
}
