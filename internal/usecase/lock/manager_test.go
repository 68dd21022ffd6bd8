package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	lockDomain "collections-backend/internal/domain/lock"
	"collections-backend/internal/metrics"
	"collections-backend/internal/testutil/lockmock"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_MutualExclusion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := lockDomain.LoanKey(123)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
		busy     int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(holder uint64) {
			defer wg.Done()
			<-start
			res, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Holder: &holder})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Acquired {
				acquired++
			} else {
				busy++
				assert.ErrorIs(t, res.Busy, lockDomain.ErrBusy)
			}
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, acquired, "exactly one caller may win")
	assert.Equal(t, callers-1, busy)
	assert.EqualValues(t, callers-1,
		testutil.ToFloat64(f.metrics.LockOperationsTotal.WithLabelValues(metrics.OpAcquire, metrics.StatusBusy)))
}

func TestManager_ExpiryReclamation(t *testing.T) {
	// real clock: acquire for 1s, wait past it, acquire again as someone else
	f := newFixture(t)
	ctx := context.Background()
	key := lockDomain.LoanKey(8)

	first, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Timeout: time.Second, Holder: u64(1)})
	require.NoError(t, err)
	require.True(t, first.Acquired)

	time.Sleep(1100 * time.Millisecond)

	second, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Holder: u64(2)})
	require.NoError(t, err)
	assert.True(t, second.Acquired, "expired lock must not block: %s", second.Message)
	assert.NotEqual(t, first.LockID, second.LockID, "a new row is created, never reused")
	assert.EqualValues(t, 1, testutil.ToFloat64(f.metrics.LocksReclaimedTotal.WithLabelValues("acquire")))
}

func TestManager_BusyCarriesRemainingTTL(t *testing.T) {
	clk := newFakeClock()
	f := newFixture(t, WithClock(clk.Now))
	ctx := context.Background()
	key := lockDomain.LoanKey(500)

	held, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Holder: u64(42)})
	require.NoError(t, err)
	require.True(t, held.Acquired)
	assert.Equal(t, clk.Now().Add(lockDomain.DefaultTimeout), held.ExpiresAt)
	assert.Equal(t, key, held.Token.Key())

	clk.Advance(60 * time.Second)
	res, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Holder: u64(7)})
	require.NoError(t, err, "contention is not an error")
	require.False(t, res.Acquired)
	require.NotNil(t, res.Busy)

	assert.Equal(t, held.LockID, res.LockID)
	assert.EqualValues(t, 240, res.Busy.RemainingSeconds())
	assert.Equal(t, "LOAN#500 is being modified by user 42, please try again in 240s", res.Message)
	assert.Equal(t, lockDomain.Token{}, res.Token)

	// past expiry the same key is free again without any release
	clk.Advance(lockDomain.DefaultTimeout)
	res, err = f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{})
	require.NoError(t, err)
	assert.True(t, res.Acquired)
}

func TestManager_BusyWhenWinnerNotYetVisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := lockDomain.LoanKey(5)

	// a row that owns the slot but is not a live lock to readers yet
	slot := key.String()
	require.NoError(t, f.db.Create(&lockDomain.Entry{
		ResourceType: key.Type, ResourceID: key.ID, ActiveSlot: &slot, ExpiresAt: time.Now().Add(time.Minute),
	}).Error)

	res, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Holder: u64(3)})
	require.NoError(t, err)
	require.False(t, res.Acquired)
	require.NotNil(t, res.Busy)
	assert.Zero(t, res.LockID)
	assert.Zero(t, res.Busy.LockID)
	assert.ErrorIs(t, res.Busy, lockDomain.ErrBusy)
	assert.Equal(t, "LOAN#5 is being modified by another request, please try again shortly", res.Message)
}

func TestManager_AcquireValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, lockDomain.LoanKey(0), lockDomain.AcquireOptions{})
	assert.ErrorIs(t, err, lockDomain.ErrInvalidResource)

	_, err = f.manager.Acquire(ctx, lockDomain.Key{Type: "CUSTOMER", ID: 1}, lockDomain.AcquireOptions{})
	assert.ErrorIs(t, err, lockDomain.ErrInvalidResource)

	_, err = f.manager.Acquire(ctx, lockDomain.LoanKey(1), lockDomain.AcquireOptions{Timeout: -time.Second})
	assert.ErrorIs(t, err, lockDomain.ErrInvalidTimeout)
}

func TestManager_ConfiguredDefaultTimeout(t *testing.T) {
	clk := newFakeClock()
	f := newFixture(t, WithClock(clk.Now), WithDefaultTimeout(90*time.Second))

	res, err := f.manager.Acquire(context.Background(), lockDomain.LoanKey(1), lockDomain.AcquireOptions{})
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(90*time.Second), res.ExpiresAt)
	assert.Equal(t, 90*time.Second, f.manager.DefaultTimeout())
}

func TestManager_ReleaseIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.manager.Acquire(ctx, lockDomain.LoanKey(3), lockDomain.AcquireOptions{})
	require.NoError(t, err)

	ok, err := f.manager.Release(ctx, res.LockID, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.manager.Release(ctx, res.LockID, nil)
	require.NoError(t, err)
	assert.False(t, ok, "second release is a no-op")

	ok, err = f.manager.Release(ctx, 987654, nil)
	require.NoError(t, err)
	assert.False(t, ok, "unknown lock is a no-op")
}

func TestManager_OwnershipCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := lockDomain.LoanKey(4)

	res, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Holder: u64(42)})
	require.NoError(t, err)

	ok, err := f.manager.Release(ctx, res.LockID, u64(7))
	assert.ErrorIs(t, err, lockDomain.ErrOwnershipViolation)
	assert.False(t, ok)

	st, err := f.manager.Status(ctx, key)
	require.NoError(t, err)
	assert.True(t, st.Locked, "denied release leaves the lock held")

	ok, err = f.manager.Release(ctx, res.LockID, u64(42))
	require.NoError(t, err)
	assert.True(t, ok)

	// holder omitted: forced release, no ownership check
	res, err = f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{Holder: u64(42)})
	require.NoError(t, err)
	ok, err = f.manager.Release(ctx, res.LockID, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// system-held lock: any asserted holder may release
	res, err = f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{})
	require.NoError(t, err)
	ok, err = f.manager.Release(ctx, res.LockID, u64(9))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManager_Status(t *testing.T) {
	clk := newFakeClock()
	f := newFixture(t, WithClock(clk.Now))
	ctx := context.Background()
	key := lockDomain.LoanKey(5)

	st, err := f.manager.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, &lockDomain.Status{Locked: false}, st)

	res, err := f.manager.Acquire(ctx, key, lockDomain.AcquireOptions{
		Timeout: 30 * time.Second, Holder: u64(11), Description: "payment registration",
	})
	require.NoError(t, err)

	st, err = f.manager.Status(ctx, key)
	require.NoError(t, err)
	assert.True(t, st.Locked)
	assert.Equal(t, res.LockID, st.LockID)
	require.NotNil(t, st.Holder)
	assert.EqualValues(t, 11, *st.Holder)
	require.NotNil(t, st.ExpiresAt)
	assert.True(t, res.ExpiresAt.Equal(*st.ExpiresAt))
	assert.Equal(t, "payment registration", st.Description)

	// expired but not yet swept: status already reports it free
	clk.Advance(31 * time.Second)
	st, err = f.manager.Status(ctx, key)
	require.NoError(t, err)
	assert.False(t, st.Locked)
}

func TestManager_ReleaseAllAndSweep(t *testing.T) {
	clk := newFakeClock()
	f := newFixture(t, WithClock(clk.Now))
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		_, err := f.manager.Acquire(ctx, lockDomain.LoanKey(i), lockDomain.AcquireOptions{Timeout: time.Duration(i) * time.Minute})
		require.NoError(t, err)
	}

	n, err := f.manager.ReleaseAllForResource(ctx, lockDomain.LoanKey(3))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = f.manager.ReleaseAllForResource(ctx, lockDomain.LoanKey(3))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	clk.Advance(90 * time.Second)
	n, err = f.manager.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "only LOAN#1 expired")

	hist, err := f.manager.History(ctx, lockDomain.LoanKey(1), 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.False(t, hist[0].Active)
	require.NotNil(t, hist[0].ReleasedAt)

	st, err := f.manager.Status(ctx, lockDomain.LoanKey(2))
	require.NoError(t, err)
	assert.True(t, st.Locked)
}

func TestManager_StoreFailures(t *testing.T) {
	down := errors.New("connection refused")
	store := &lockmock.Store{
		AcquireFn: func(context.Context, *lockDomain.Entry, time.Time) (*lockDomain.Entry, int64, error) {
			return nil, 0, down
		},
		GetFn: func(context.Context, uint64) (*lockDomain.Entry, error) { return nil, down },
		ActiveFn: func(context.Context, lockDomain.Key, time.Time) (*lockDomain.Entry, error) {
			return nil, down
		},
		SweepExpiredFn: func(context.Context, time.Time) (int64, error) { return 0, down },
		ReleaseAllFn:   func(context.Context, lockDomain.Key, time.Time) (int64, error) { return 0, down },
	}
	m := NewManager(store, nil)
	ctx := context.Background()

	_, err := m.Acquire(ctx, lockDomain.LoanKey(1), lockDomain.AcquireOptions{})
	assert.ErrorIs(t, err, lockDomain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, down)

	_, err = m.Release(ctx, 1, nil)
	assert.ErrorIs(t, err, lockDomain.ErrStoreUnavailable)

	_, err = m.Status(ctx, lockDomain.LoanKey(1))
	assert.ErrorIs(t, err, lockDomain.ErrStoreUnavailable)

	_, err = m.SweepExpired(ctx)
	assert.ErrorIs(t, err, lockDomain.ErrStoreUnavailable)

	_, err = m.ReleaseAllForResource(ctx, lockDomain.LoanKey(1))
	assert.ErrorIs(t, err, lockDomain.ErrStoreUnavailable)
}

func TestManager_ReleaseLosesRace(t *testing.T) {
	store := &lockmock.Store{
		GetFn: func(_ context.Context, id uint64) (*lockDomain.Entry, error) {
			return &lockDomain.Entry{ID: id, ResourceType: lockDomain.ResourceLoan, ResourceID: 1, Active: true}, nil
		},
		ReleaseFn: func(context.Context, uint64, time.Time) (bool, error) { return false, nil },
	}
	ok, err := NewManager(store, nil).Release(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
