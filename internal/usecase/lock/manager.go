package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	lockDomain "collections-backend/internal/domain/lock"
	"collections-backend/internal/logger"
	"collections-backend/internal/metrics"

	"go.uber.org/zap"
)

// Manager hands out logical locks on financial resources. Contention is a normal
// outcome reported through AcquireResult; only store failures come back as errors.
type Manager struct {
	store          lockDomain.Store
	log            *zap.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	defaultTimeout time.Duration
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// WithDefaultTimeout sets the lifetime used when AcquireOptions.Timeout is zero.
func WithDefaultTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.defaultTimeout = d
		}
	}
}

func NewManager(store lockDomain.Store, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		log:            logger.OrNop(log),
		now:            func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		defaultTimeout: lockDomain.DefaultTimeout,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// WithStore returns a copy of m writing through s, typically a store bound to the
// caller's transaction.
func (m *Manager) WithStore(s lockDomain.Store) *Manager {
	cp := *m
	cp.store = s
	return &cp
}

func (m *Manager) DefaultTimeout() time.Duration { return m.defaultTimeout }

func (m *Manager) Acquire(ctx context.Context, key lockDomain.Key, opts lockDomain.AcquireOptions) (*lockDomain.AcquireResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = m.defaultTimeout
	}
	if timeout < 0 {
		return nil, fmt.Errorf("%w: %s", lockDomain.ErrInvalidTimeout, opts.Timeout)
	}

	now := m.now()
	e := &lockDomain.Entry{
		ResourceType: key.Type,
		ResourceID:   key.ID,
		HolderID:     opts.Holder,
		Description:  opts.Description,
		ExpiresAt:    now.Add(timeout),
	}
	blocking, reclaimed, err := m.store.Acquire(ctx, e, now)
	if err != nil {
		m.metrics.LockOperation(metrics.OpAcquire, metrics.StatusError)
		m.log.Error("lock acquire failed", zap.Stringer("resource", key), zap.Error(err))
		return nil, lockDomain.StoreError("acquire", err)
	}
	if reclaimed > 0 {
		m.metrics.Reclaimed(metrics.OpAcquire, reclaimed)
		m.log.Warn("reclaimed expired lock",
			zap.Stringer("resource", key),
			zap.Int64("count", reclaimed),
		)
	}

	if blocking != nil {
		busy := &lockDomain.BusyError{Key: key, LockID: blocking.ID, Holder: blocking.HolderID}
		if blocking.ID != 0 {
			busy.Remaining = blocking.ExpiresAt.Sub(now)
		}
		m.metrics.LockOperation(metrics.OpAcquire, metrics.StatusBusy)
		m.log.Info("lock busy",
			zap.Stringer("resource", key),
			zap.Uint64("lock_id", blocking.ID),
			holderField(blocking.HolderID),
			zap.Duration("remaining", busy.Remaining),
		)
		return &lockDomain.AcquireResult{
			LockID:    blocking.ID,
			ExpiresAt: blocking.ExpiresAt,
			Message:   busy.Error(),
			Busy:      busy,
		}, nil
	}

	m.metrics.LockOperation(metrics.OpAcquire, metrics.StatusAcquired)
	m.log.Debug("lock acquired",
		zap.Stringer("resource", key),
		zap.Uint64("lock_id", e.ID),
		holderField(opts.Holder),
		zap.Time("expires_at", e.ExpiresAt),
	)
	return &lockDomain.AcquireResult{
		Acquired:  true,
		LockID:    e.ID,
		ExpiresAt: e.ExpiresAt,
		Token:     lockDomain.TokenFor(e),
	}, nil
}

// Release flips the lock inactive. Unknown or already inactive locks report false.
// A non-nil holder must match the acquiring holder; nil skips the check.
func (m *Manager) Release(ctx context.Context, lockID uint64, holder *uint64) (bool, error) {
	e, err := m.store.Get(ctx, lockID)
	if errors.Is(err, lockDomain.ErrNotFound) {
		m.metrics.LockOperation(metrics.OpRelease, metrics.StatusNoop)
		return false, nil
	}
	if err != nil {
		m.metrics.LockOperation(metrics.OpRelease, metrics.StatusError)
		return false, lockDomain.StoreError("release", err)
	}
	if !e.Active {
		m.metrics.LockOperation(metrics.OpRelease, metrics.StatusNoop)
		return false, nil
	}
	if holder != nil && e.HolderID != nil && *holder != *e.HolderID {
		m.metrics.LockOperation(metrics.OpRelease, metrics.StatusDenied)
		m.log.Warn("lock release denied",
			zap.Stringer("resource", e.Key()),
			zap.Uint64("lock_id", lockID),
			holderField(e.HolderID),
			zap.Uint64("requested_by", *holder),
		)
		return false, fmt.Errorf("%w: lock %d on %s is held by user %d, not %d",
			lockDomain.ErrOwnershipViolation, lockID, e.Key(), *e.HolderID, *holder)
	}

	ok, err := m.store.Release(ctx, lockID, m.now())
	if err != nil {
		m.metrics.LockOperation(metrics.OpRelease, metrics.StatusError)
		return false, lockDomain.StoreError("release", err)
	}
	if !ok {
		// lost to a concurrent release or sweep
		m.metrics.LockOperation(metrics.OpRelease, metrics.StatusNoop)
		return false, nil
	}
	m.metrics.LockOperation(metrics.OpRelease, metrics.StatusReleased)
	m.log.Debug("lock released", zap.Stringer("resource", e.Key()), zap.Uint64("lock_id", lockID))
	return true, nil
}

func (m *Manager) Status(ctx context.Context, key lockDomain.Key) (*lockDomain.Status, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	e, err := m.store.Active(ctx, key, m.now())
	if errors.Is(err, lockDomain.ErrNotFound) {
		return &lockDomain.Status{Locked: false}, nil
	}
	if err != nil {
		return nil, lockDomain.StoreError("status", err)
	}
	expires := e.ExpiresAt
	return &lockDomain.Status{
		Locked:      true,
		LockID:      e.ID,
		Holder:      e.HolderID,
		ExpiresAt:   &expires,
		Description: e.Description,
	}, nil
}

// ReleaseAllForResource force-releases every active lock on key, returning how
// many were flipped.
func (m *Manager) ReleaseAllForResource(ctx context.Context, key lockDomain.Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	n, err := m.store.ReleaseAll(ctx, key, m.now())
	if err != nil {
		m.metrics.LockOperation(metrics.OpReleaseAll, metrics.StatusError)
		return 0, lockDomain.StoreError("release all", err)
	}
	m.metrics.LockOperation(metrics.OpReleaseAll, metrics.StatusOK)
	m.metrics.Reclaimed(metrics.OpReleaseAll, n)
	if n > 0 {
		m.log.Info("released all locks for resource", zap.Stringer("resource", key), zap.Int64("count", n))
	}
	return n, nil
}

func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.store.SweepExpired(ctx, m.now())
	if err != nil {
		m.metrics.LockOperation(metrics.OpSweep, metrics.StatusError)
		return 0, lockDomain.StoreError("sweep", err)
	}
	m.metrics.LockOperation(metrics.OpSweep, metrics.StatusOK)
	m.metrics.Reclaimed(metrics.OpSweep, n)
	return n, nil
}

// History lists the newest lock entries of key, released ones included.
func (m *Manager) History(ctx context.Context, key lockDomain.Key, limit int) ([]lockDomain.Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	out, err := m.store.History(ctx, key, limit)
	if err != nil {
		return nil, lockDomain.StoreError("history", err)
	}
	return out, nil
}

func holderField(h *uint64) zap.Field {
	if h == nil {
		return zap.String("holder", "system")
	}
	return zap.Uint64("holder", *h)
}
