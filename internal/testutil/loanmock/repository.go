package loanmock

import (
	"context"

	domain "collections-backend/internal/domain/loan"
	"collections-backend/internal/domain/lock"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Reads default to domain.ErrNotFound, writes to a no-op.
type Repo struct {
	CreateFn           func(ctx context.Context, l *domain.Loan, schedule []domain.Installment) error
	GetByIDFn          func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByIDForUpdateFn func(ctx context.Context, id uint64) (*domain.Loan, error)
	ListInstallmentsFn func(ctx context.Context, loanID uint64) ([]domain.Installment, error)
	SaveFn             func(ctx context.Context, tok lock.Token, l *domain.Loan) error
	SaveInstallmentFn  func(ctx context.Context, tok lock.Token, inst *domain.Installment) error
	ReplaceScheduleFn  func(ctx context.Context, tok lock.Token, loanID uint64, schedule []domain.Installment) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan, schedule []domain.Installment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l, schedule)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListInstallments(ctx context.Context, loanID uint64) ([]domain.Installment, error) {
	if m.ListInstallmentsFn != nil {
		return m.ListInstallmentsFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) Save(ctx context.Context, tok lock.Token, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, tok, l)
	}
	return nil
}

func (m *Repo) SaveInstallment(ctx context.Context, tok lock.Token, inst *domain.Installment) error {
	if m.SaveInstallmentFn != nil {
		return m.SaveInstallmentFn(ctx, tok, inst)
	}
	return nil
}

func (m *Repo) ReplaceSchedule(ctx context.Context, tok lock.Token, loanID uint64, schedule []domain.Installment) error {
	if m.ReplaceScheduleFn != nil {
		return m.ReplaceScheduleFn(ctx, tok, loanID, schedule)
	}
	return nil
}
