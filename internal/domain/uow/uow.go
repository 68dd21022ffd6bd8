package uow

import (
	"context"

	"collections-backend/internal/domain/loan"
	"collections-backend/internal/domain/lock"
	"collections-backend/internal/domain/payment"
)

// Repos are bound to one transaction; lock writes made through Locks commit or
// roll back together with the loan and payment writes.
type Repos struct {
	Loans    loan.Repository
	Payments payment.Repository
	Locks    lock.Store
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: row-lock the loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID uint64, fn func(r Repos, l *loan.Loan) error) error
}
