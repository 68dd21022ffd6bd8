package lock

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrBusy is the retryable "resource currently held by someone else" condition.
	ErrBusy = errors.New("resource busy")

	// ErrOwnershipViolation is returned when a release asserts a holder that differs
	// from the one that acquired the lock.
	ErrOwnershipViolation = errors.New("lock held by a different holder")

	// ErrStoreUnavailable wraps infrastructure failures reaching the lock table.
	ErrStoreUnavailable = errors.New("lock store unavailable")

	ErrInvalidResource = errors.New("invalid lock resource")
	ErrInvalidTimeout  = errors.New("invalid lock timeout")

	// ErrLockRequired is returned by aggregate writers handed a token for another resource.
	ErrLockRequired = errors.New("write requires the resource lock")

	// ErrNotFound is internal to the store boundary; Release reports it as false.
	ErrNotFound = errors.New("lock entry not found")
)

// BusyError describes the lock that blocked an acquisition.
type BusyError struct {
	Key       Key
	LockID    uint64
	Holder    *uint64
	Remaining time.Duration
}

func (e *BusyError) Error() string {
	if e.LockID == 0 {
		// holder's row not yet visible (still inside its transaction)
		return fmt.Sprintf("%s is being modified by another request, please try again shortly", e.Key)
	}
	who := "the system"
	if e.Holder != nil {
		who = fmt.Sprintf("user %d", *e.Holder)
	}
	return fmt.Sprintf("%s is being modified by %s, please try again in %ds",
		e.Key, who, e.RemainingSeconds())
}

func (e *BusyError) Unwrap() error { return ErrBusy }

// RemainingSeconds rounds up so a lock with 300ms left still reports 1s.
func (e *BusyError) RemainingSeconds() int64 {
	if e.Remaining <= 0 {
		return 0
	}
	return int64(math.Ceil(e.Remaining.Seconds()))
}

// StoreError tags err as a store infrastructure failure. Errors that already carry
// ErrStoreUnavailable are returned unchanged.
func StoreError(op string, err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
