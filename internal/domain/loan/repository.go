package loan

import (
	"context"

	"collections-backend/internal/domain/lock"
)

type Repository interface {
	// Create inserts a new loan and its schedule; no lock exists for it yet.
	Create(ctx context.Context, l *Loan, schedule []Installment) error
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// GetByIDForUpdate row-locks the loan until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	ListInstallments(ctx context.Context, loanID uint64) ([]Installment, error)

	// Writes below require a token for LOAN#<loan id>.
	Save(ctx context.Context, tok lock.Token, l *Loan) error
	SaveInstallment(ctx context.Context, tok lock.Token, inst *Installment) error
	// ReplaceSchedule cancels every pending installment and appends schedule.
	ReplaceSchedule(ctx context.Context, tok lock.Token, loanID uint64, schedule []Installment) error
}
