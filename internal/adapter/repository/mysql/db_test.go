package mysql

import (
	"context"
	"testing"
	"time"

	loanDomain "collections-backend/internal/domain/loan"
	"collections-backend/internal/testutil/sqlitedb"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB { return sqlitedb.Open(t) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func makeLoan(borrowerID string) *loanDomain.Loan {
	return &loanDomain.Loan{
		BorrowerID:  borrowerID,
		Principal:   dec("1000000"),
		Rate:        dec("0.1"),
		TermMonths:  2,
		Balance:     dec("1100000"),
		MoraBalance: decimal.Zero,
		State:       loanDomain.StateActive,
	}
}

func makeSchedule(t *testing.T) []loanDomain.Installment {
	t.Helper()
	s, err := loanDomain.BuildSchedule(0, dec("1000000"), dec("0.1"), 2, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 1)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return s
}

// seedLoan creates a loan with a two-installment schedule and returns its id.
func seedLoan(t *testing.T, db *gorm.DB) *loanDomain.Loan {
	t.Helper()
	l := makeLoan("b1")
	if err := NewLoanRepository(db).Create(context.Background(), l, makeSchedule(t)); err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return l
}
