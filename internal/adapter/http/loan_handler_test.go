package http

import (
	"fmt"
	"net/http"
	"testing"

	loanuc "collections-backend/internal/usecase/loan"
)

func TestCreateLoan_Success(t *testing.T) {
	s := newTestServer(t)
	got := s.createLoan(t)

	if got.ID == 0 || got.BorrowerID != "b-1" || got.State != "active" {
		t.Fatalf("unexpected dto: %+v", got)
	}
	if got.Balance.String() != "1100" {
		t.Fatalf("balance = %s, want 1100", got.Balance)
	}
	if len(got.Installments) != 2 {
		t.Fatalf("installments = %d, want 2", len(got.Installments))
	}
}

func TestCreateLoan_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/loans", map[string]any{
		"borrower_id": "", "principal": "10.555", "rate": "-1", "term_months": 0,
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[ErrorResponse](t, rec)
	for _, f := range []string{"BorrowerID", "Principal", "Rate", "TermMonths"} {
		found := false
		for _, d := range resp.Details {
			if d.Field == f {
				found = true
			}
		}
		if !found {
			t.Fatalf("no detail for %s: %+v", f, resp.Details)
		}
	}
}

func TestCreateLoan_BadBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/loans", "not an object", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetLoan(t *testing.T) {
	s := newTestServer(t)
	l := s.createLoan(t)

	cases := []struct {
		path string
		want int
	}{
		{fmt.Sprintf("/loans/%d", l.ID), http.StatusOK},
		{"/loans/9999", http.StatusNotFound},
		{"/loans/abc", http.StatusBadRequest},
		{"/loans/0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := s.do(t, http.MethodGet, tc.path, nil, nil); rec.Code != tc.want {
			t.Fatalf("GET %s = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestRefinance_MoraOutstanding_Is422(t *testing.T) {
	s := newTestServer(t)
	l := s.createLoan(t)

	asOf := l.Installments[0].DueDate.AddDate(0, 0, 5)
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/loans/%d/mora", l.ID), map[string]any{"as_of": rfc3339(asOf)}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mora: %d %s", rec.Code, rec.Body.String())
	}
	mora := decode[loanuc.MoraDTO](t, rec)
	if !mora.Charged.IsPositive() {
		t.Fatalf("expected a mora charge, got %s", mora.Charged)
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/loans/%d/refinance", l.ID), map[string]any{"rate": "0.05", "term_months": 3}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("refinance with mora: %d, want 422", rec.Code)
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/loans/%d/restructure", l.ID), map[string]any{"rate": "0", "term_months": 3}, map[string]string{HeaderUserID: "4"})
	if rec.Code != http.StatusOK {
		t.Fatalf("restructure: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[loanuc.LoanDTO](t, rec)
	if !got.MoraBalance.IsZero() || got.Restructures != 1 {
		t.Fatalf("unexpected restructure result: %+v", got)
	}
}

func TestWriteOff_StaleVersion(t *testing.T) {
	s := newTestServer(t)
	l := s.createLoan(t)
	stale := rfc3339(l.UpdatedAt.Add(-1))

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/loans/%d/write-off", l.ID), map[string]any{"expected_version": stale}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale write-off: %d, want 409", rec.Code)
	}
	if msg := decode[ErrorResponse](t, rec).Error; msg != "the data has changed, please refresh" {
		t.Fatalf("message = %q", msg)
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/loans/%d/write-off", l.ID), map[string]any{
		"reason": "uncollectable", "expected_version": rfc3339(l.UpdatedAt),
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("write-off: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[loanuc.LoanDTO](t, rec); got.State != "written_off" {
		t.Fatalf("state = %s", got.State)
	}
}

func TestMutation_BadUserHeader(t *testing.T) {
	s := newTestServer(t)
	l := s.createLoan(t)
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/loans/%d/write-off", l.ID), nil, map[string]string{HeaderUserID: "-1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
