package version

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	t1 := time.Date(2025, 9, 6, 10, 0, 0, 123456000, time.UTC)
	t2 := t1.Add(time.Microsecond)
	jakarta := time.FixedZone("WIB", 7*3600)

	tests := []struct {
		name     string
		expected time.Time
		current  time.Time
		stale    bool
	}{
		{name: "same instant", expected: t1, current: t1},
		{name: "same instant different zone", expected: t1.In(jakarta), current: t1},
		{name: "aggregate moved on", expected: t1, current: t2, stale: true},
		{name: "client ahead of store", expected: t2, current: t1, stale: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.expected, tt.current)
			if !tt.stale {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrStaleWrite) {
				t.Fatalf("want ErrStaleWrite, got %v", err)
			}
			var se *StaleWriteError
			if !errors.As(err, &se) {
				t.Fatalf("want *StaleWriteError, got %T", err)
			}
			if !se.Current.Equal(tt.current) {
				t.Fatalf("Current = %v, want %v", se.Current, tt.current)
			}
			if !strings.Contains(err.Error(), "please refresh") {
				t.Fatalf("message %q lacks refresh hint", err.Error())
			}
		})
	}
}

func TestCheckOptional_NilSkips(t *testing.T) {
	if err := CheckOptional(nil, time.Now()); err != nil {
		t.Fatalf("nil stamp should skip, got %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := CheckOptional(&old, time.Now()); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("want stale, got %v", err)
	}
}
