package mysql

import (
	"context"
	"errors"

	loanDomain "collections-backend/internal/domain/loan"
	"collections-backend/internal/domain/lock"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

var _ loanDomain.Repository = (*LoanRepository)(nil)

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo loanDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan, schedule []loanDomain.Installment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(l).Error; err != nil {
			return err
		}
		if len(schedule) == 0 {
			return nil
		}
		for i := range schedule {
			schedule[i].LoanID = l.ID
		}
		return tx.Create(&schedule).Error
	})
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *LoanRepository) get(q *gorm.DB, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	if err := q.First(&out, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loanDomain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// ListInstallments returns every installment of the loan, cancelled ones included,
// ordered by number.
func (r *LoanRepository) ListInstallments(ctx context.Context, loanID uint64) ([]loanDomain.Installment, error) {
	var out []loanDomain.Installment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("number ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *LoanRepository) Save(ctx context.Context, tok lock.Token, l *loanDomain.Loan) error {
	if err := tok.Covers(lock.LoanKey(l.ID)); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) SaveInstallment(ctx context.Context, tok lock.Token, inst *loanDomain.Installment) error {
	if err := tok.Covers(lock.LoanKey(inst.LoanID)); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(inst).Error
}

func (r *LoanRepository) ReplaceSchedule(ctx context.Context, tok lock.Token, loanID uint64, schedule []loanDomain.Installment) error {
	if err := tok.Covers(lock.LoanKey(loanID)); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&loanDomain.Installment{}).
			Where("loan_id = ? AND status = ?", loanID, loanDomain.InstallmentPending).
			Update("status", loanDomain.InstallmentCancelled).Error
		if err != nil {
			return err
		}
		if len(schedule) == 0 {
			return nil
		}
		for i := range schedule {
			schedule[i].LoanID = loanID
		}
		return tx.Create(&schedule).Error
	})
}
