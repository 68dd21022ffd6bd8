package lockmock

import (
	"context"
	"errors"
	"time"

	domain "collections-backend/internal/domain/lock"
)

var _ domain.Store = (*Store)(nil)

var errUnimplemented = errors.New("lockmock: method not implemented")

// Store is a function-backed mock that satisfies domain.Store.
// Unfilled methods return errUnimplemented.
type Store struct {
	AcquireFn      func(ctx context.Context, e *domain.Entry, now time.Time) (*domain.Entry, int64, error)
	GetFn          func(ctx context.Context, id uint64) (*domain.Entry, error)
	ActiveFn       func(ctx context.Context, key domain.Key, now time.Time) (*domain.Entry, error)
	ReleaseFn      func(ctx context.Context, id uint64, now time.Time) (bool, error)
	ReleaseAllFn   func(ctx context.Context, key domain.Key, now time.Time) (int64, error)
	SweepExpiredFn func(ctx context.Context, now time.Time) (int64, error)
	HistoryFn      func(ctx context.Context, key domain.Key, limit int) ([]domain.Entry, error)
}

func (m *Store) Acquire(ctx context.Context, e *domain.Entry, now time.Time) (*domain.Entry, int64, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(ctx, e, now)
	}
	return nil, 0, errUnimplemented
}

func (m *Store) Get(ctx context.Context, id uint64) (*domain.Entry, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *Store) Active(ctx context.Context, key domain.Key, now time.Time) (*domain.Entry, error) {
	if m.ActiveFn != nil {
		return m.ActiveFn(ctx, key, now)
	}
	return nil, errUnimplemented
}

func (m *Store) Release(ctx context.Context, id uint64, now time.Time) (bool, error) {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(ctx, id, now)
	}
	return false, errUnimplemented
}

func (m *Store) ReleaseAll(ctx context.Context, key domain.Key, now time.Time) (int64, error) {
	if m.ReleaseAllFn != nil {
		return m.ReleaseAllFn(ctx, key, now)
	}
	return 0, errUnimplemented
}

func (m *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.SweepExpiredFn != nil {
		return m.SweepExpiredFn(ctx, now)
	}
	return 0, errUnimplemented
}

func (m *Store) History(ctx context.Context, key domain.Key, limit int) ([]domain.Entry, error) {
	if m.HistoryFn != nil {
		return m.HistoryFn(ctx, key, limit)
	}
	return nil, errUnimplemented
}
