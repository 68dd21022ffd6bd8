package lock

import (
	"context"
	"time"

	lockDomain "collections-backend/internal/domain/lock"
	"collections-backend/internal/logger"
	"collections-backend/internal/metrics"

	"go.uber.org/zap"
)

// GuardedFunc runs while the lock is held. tok authorises writes to the locked
// aggregate.
type GuardedFunc func(ctx context.Context, tok lockDomain.Token) error

// Runner wraps units of work in acquire, run, release.
type Runner struct {
	locks   *Manager
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewRunner(locks *Manager, log *zap.Logger, mt *metrics.Metrics) *Runner {
	return &Runner{locks: locks, log: logger.OrNop(log), metrics: mt}
}

func (r *Runner) Manager() *Manager { return r.locks }

// WithLock acquires key, runs fn and releases the lock however fn ends. A held
// lock surfaces as *lock.BusyError; fn's error is returned unchanged.
func (r *Runner) WithLock(ctx context.Context, key lockDomain.Key, opts lockDomain.AcquireOptions, fn GuardedFunc) error {
	return r.run(ctx, r.locks, key, opts, fn)
}

// WithLockInTransaction is WithLock with the lock rows written through locks, a
// store bound to the caller's open transaction. When fn fails the lock is still
// released inside that transaction before the error propagates, so the row is
// inactive whether the caller later commits or rolls back.
func (r *Runner) WithLockInTransaction(ctx context.Context, locks lockDomain.Store, key lockDomain.Key, opts lockDomain.AcquireOptions, fn GuardedFunc) error {
	return r.run(ctx, r.locks.WithStore(locks), key, opts, fn)
}

func (r *Runner) run(ctx context.Context, m *Manager, key lockDomain.Key, opts lockDomain.AcquireOptions, fn GuardedFunc) (err error) {
	res, err := m.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	if !res.Acquired {
		return res.Busy
	}

	start := time.Now()
	finished := false
	defer func() {
		outcome := metrics.OutcomeSuccess
		switch {
		case !finished:
			outcome = metrics.OutcomePanic
		case err != nil:
			outcome = metrics.OutcomeError
		}
		r.metrics.ObserveGuarded(string(key.Type), outcome, time.Since(start))

		// release must not be skipped because the request context was cancelled
		if _, rerr := m.Release(context.WithoutCancel(ctx), res.LockID, opts.Holder); rerr != nil {
			r.log.Error("release after guarded operation failed",
				zap.Stringer("resource", key),
				zap.Uint64("lock_id", res.LockID),
				zap.Error(rerr),
			)
		}
	}()

	err = fn(ctx, res.Token)
	finished = true
	return err
}
