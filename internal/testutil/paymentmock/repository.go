package paymentmock

import (
	"context"

	domain "collections-backend/internal/domain/payment"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn         func(ctx context.Context, p *domain.Payment) error
	GetByReferenceFn func(ctx context.Context, reference string) (*domain.Payment, error)
	ListByLoanIDFn   func(ctx context.Context, loanID uint64) ([]domain.Payment, error)

	// Created records every payment passed to Create.
	Created []*domain.Payment
}

func (m *Repo) Create(ctx context.Context, p *domain.Payment) error {
	m.Created = append(m.Created, p)
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	if m.GetByReferenceFn != nil {
		return m.GetByReferenceFn(ctx, reference)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID uint64) ([]domain.Payment, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, nil
}
