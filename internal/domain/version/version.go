// Package version implements the optimistic check of an aggregate's updated_at
// stamp against the stamp a client last observed.
package version

import (
	"errors"
	"fmt"
	"time"
)

var ErrStaleWrite = errors.New("the data has changed, please refresh")

type StaleWriteError struct {
	Expected time.Time
	Current  time.Time
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("%s (loaded as of %s, now %s)",
		ErrStaleWrite.Error(),
		e.Expected.UTC().Format(time.RFC3339Nano),
		e.Current.UTC().Format(time.RFC3339Nano))
}

func (e *StaleWriteError) Unwrap() error { return ErrStaleWrite }

// Check requires the stamps to denote the same instant; the zone may differ.
// current must be read inside the transaction that performs the write.
// Stamps have microsecond precision, so two saves within the same microsecond
// look identical here; writers serialised by the resource lock never get that close.
func Check(expected, current time.Time) error {
	if !expected.Equal(current) {
		return &StaleWriteError{Expected: expected, Current: current}
	}
	return nil
}

// CheckOptional skips the comparison when the caller supplied no stamp.
func CheckOptional(expected *time.Time, current time.Time) error {
	if expected == nil {
		return nil
	}
	return Check(*expected, current)
}
