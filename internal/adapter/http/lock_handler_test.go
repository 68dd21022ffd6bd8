package http

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	lockDomain "collections-backend/internal/domain/lock"
)

func TestLockEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	holder := uint64(3)
	res, err := s.manager.Acquire(ctx, lockDomain.LoanKey(77), lockDomain.AcquireOptions{Holder: &holder, Description: "manual"})
	if err != nil || !res.Acquired {
		t.Fatalf("acquire: %+v %v", res, err)
	}

	rec := s.do(t, http.MethodGet, "/locks/loan/77", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if st := decode[lockDomain.Status](t, rec); !st.Locked || st.LockID != res.LockID || st.Description != "manual" {
		t.Fatalf("unexpected status: %+v", st)
	}

	// wrong holder may not release
	release := fmt.Sprintf("/locks/entries/%d", res.LockID)
	if rec := s.do(t, http.MethodDelete, release, nil, map[string]string{HeaderUserID: "4"}); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign release: %d, want 403", rec.Code)
	}
	rec = s.do(t, http.MethodDelete, release, nil, map[string]string{HeaderUserID: "3"})
	if rec.Code != http.StatusOK {
		t.Fatalf("release: %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["released"] != true {
		t.Fatalf("release body: %+v", got)
	}
	// second release is a no-op, not an error
	rec = s.do(t, http.MethodDelete, release, nil, nil)
	if got := decode[map[string]any](t, rec); rec.Code != http.StatusOK || got["released"] != false {
		t.Fatalf("repeat release: %d %+v", rec.Code, got)
	}

	rec = s.do(t, http.MethodGet, "/locks/LOAN/77/history?limit=10", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
	hist := decode[struct {
		Resource string             `json:"resource"`
		Entries  []lockDomain.Entry `json:"entries"`
	}](t, rec)
	if hist.Resource != "LOAN#77" || len(hist.Entries) != 1 || hist.Entries[0].Active {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestLockEndpoints_ForceReleaseAndSweep(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.manager.Acquire(context.Background(), lockDomain.Key{Type: lockDomain.ResourcePayment, ID: 5}, lockDomain.AcquireOptions{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	rec := s.do(t, http.MethodDelete, "/locks/PAYMENT/5", nil, nil)
	if got := decode[map[string]any](t, rec); rec.Code != http.StatusOK || got["released"] != float64(1) {
		t.Fatalf("release all: %d %+v", rec.Code, got)
	}

	rec = s.do(t, http.MethodPost, "/locks/sweep", nil, nil)
	if got := decode[map[string]any](t, rec); rec.Code != http.StatusOK || got["reclaimed"] != float64(0) {
		t.Fatalf("sweep: %d %+v", rec.Code, got)
	}
}

func TestLockEndpoints_BadInput(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/locks/invoice/1", http.StatusUnprocessableEntity},
		{http.MethodGet, "/locks/LOAN/0", http.StatusUnprocessableEntity},
		{http.MethodGet, "/locks/LOAN/1/history?limit=-1", http.StatusBadRequest},
		{http.MethodDelete, "/locks/entries/abc", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := s.do(t, tc.method, tc.path, nil, nil); rec.Code != tc.want {
			t.Fatalf("%s %s = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}
