package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mysqlrepo "collections-backend/internal/adapter/repository/mysql"
	"collections-backend/internal/metrics"
	"collections-backend/internal/testutil/sqlitedb"
	loanuc "collections-backend/internal/usecase/loan"
	lockuc "collections-backend/internal/usecase/lock"
	paymentuc "collections-backend/internal/usecase/payment"

	"github.com/labstack/echo/v4"
)

// ---- helpers ----

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

type testServer struct {
	e       *echo.Echo
	manager *lockuc.Manager
}

// newTestServer wires the full route table over an in-memory database.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := sqlitedb.Open(t)
	mt := metrics.New("test")
	manager := lockuc.NewManager(mysqlrepo.NewLockStore(db), nil, lockuc.WithMetrics(mt))
	runner := lockuc.NewRunner(manager, nil, mt)
	tx := mysqlrepo.NewGormUoW(db)

	e := echo.New()
	e.Validator = NewValidator()
	RegisterRoutes(e, Routes{
		Health:   NewHandler(nil),
		Loans:    NewLoanHandler(loanuc.NewUsecase(mysqlrepo.NewLoanRepository(db), tx, runner), nil),
		Payments: NewPaymentHandler(paymentuc.NewUsecase(mysqlrepo.NewPaymentRepository(db), tx, runner, nil), nil),
		Locks:    NewLockHandler(manager, nil),
		Metrics:  mt.Handler(),
	})
	return &testServer{e: e, manager: manager}
}

func (s *testServer) do(t *testing.T, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = mustJSON(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return out
}

// createLoan books 1000 at 10% over two months and returns it.
func (s *testServer) createLoan(t *testing.T) loanuc.LoanDTO {
	t.Helper()
	rec := s.do(t, "POST", "/loans", map[string]any{
		"borrower_id": "b-1", "principal": "1000", "rate": "0.1", "term_months": 2,
	}, nil)
	if rec.Code != 201 {
		t.Fatalf("create loan: status %d body=%s", rec.Code, rec.Body.String())
	}
	return decode[loanuc.LoanDTO](t, rec)
}

func rfc3339(ts time.Time) string { return ts.UTC().Format(time.RFC3339Nano) }
