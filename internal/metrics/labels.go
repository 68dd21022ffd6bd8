package metrics

import "strconv"

// Lock operation labels.
const (
	OpAcquire    = "acquire"
	OpRelease    = "release"
	OpReleaseAll = "release_all"
	OpSweep      = "sweep"
	OpStatus     = "status"

	StatusAcquired = "acquired"
	StatusBusy     = "busy"
	StatusReleased = "released"
	StatusNoop     = "noop"
	StatusDenied   = "denied"
	StatusOK       = "ok"
	StatusError    = "error"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
)

func statusLabel(code int) string { return strconv.Itoa(code) }
