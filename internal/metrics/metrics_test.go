package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New("test")
	m.LockOperation(OpAcquire, StatusAcquired)
	m.Reclaimed("sweep", 2)
	m.ObserveGuarded("LOAN", OutcomeSuccess, 10*time.Millisecond)
	m.HTTPRequest(http.MethodGet, "/health", 200, time.Millisecond)

	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	for _, want := range []string{
		"test_lock_operations_total",
		"test_locks_reclaimed_total",
		"test_guarded_operation_duration_seconds",
		"test_http_requests_total",
		"test_http_request_duration_seconds",
	} {
		if !found[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestCounters(t *testing.T) {
	m := New("test")
	m.LockOperation(OpAcquire, StatusBusy)
	m.LockOperation(OpAcquire, StatusBusy)
	m.Reclaimed("acquire", 3)
	m.Reclaimed("acquire", 0)
	m.HTTPRequest(http.MethodPost, "/loans/:id/payments", 409, time.Millisecond)

	if got := testutil.ToFloat64(m.LockOperationsTotal.WithLabelValues(OpAcquire, StatusBusy)); got != 2 {
		t.Errorf("busy acquisitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LocksReclaimedTotal.WithLabelValues("acquire")); got != 3 {
		t.Errorf("reclaimed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/loans/:id/payments", "409")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.LockOperation(OpRelease, StatusReleased)
	m.Reclaimed("sweep", 1)
	m.ObserveGuarded("LOAN", OutcomeError, time.Second)
	m.HTTPRequest(http.MethodGet, "/", 200, time.Second)
}

func TestHandler(t *testing.T) {
	m := New("test")
	m.LockOperation(OpSweep, StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_lock_operations_total{operation="sweep",status="ok"} 1`) {
		t.Errorf("exposition missing lock counter:\n%s", rec.Body.String())
	}
}
