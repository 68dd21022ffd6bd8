package payment

import (
	"context"
	"fmt"
	"time"

	loanDomain "collections-backend/internal/domain/loan"
	lockDomain "collections-backend/internal/domain/lock"
	paymentDomain "collections-backend/internal/domain/payment"
	"collections-backend/internal/domain/uow"
	"collections-backend/internal/domain/version"
	"collections-backend/internal/logger"
	lockuc "collections-backend/internal/usecase/lock"
	"collections-backend/pkg/id"

	"go.uber.org/zap"
)

type Usecase struct {
	repo   paymentDomain.Repository
	uow    uow.UnitOfWork
	runner *lockuc.Runner
	now    func() time.Time
	log    *zap.Logger
}

func NewUsecase(repo paymentDomain.Repository, tx uow.UnitOfWork, runner *lockuc.Runner, log *zap.Logger) *Usecase {
	return &Usecase{
		repo:   repo,
		uow:    tx,
		runner: runner,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		log:    logger.OrNop(log),
	}
}

// Register applies a payment to a loan under its LOAN lock. A concurrent
// operation on the same loan surfaces as *lock.BusyError; nothing is written.
func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*PaymentDTO, error) {
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, fmt.Errorf("%w: %s", paymentDomain.ErrInvalidAmount, in.Amount)
	}

	var out *PaymentDTO
	opts := lockDomain.AcquireOptions{Holder: in.Holder, Description: "payment registration"}
	err := u.runner.WithLock(ctx, lockDomain.LoanKey(in.LoanID), opts, func(ctx context.Context, tok lockDomain.Token) error {
		return u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loanDomain.Loan) error {
			if err := version.CheckOptional(in.ExpectedVersion, l.UpdatedAt); err != nil {
				return err
			}
			if l.State != loanDomain.StateActive {
				return fmt.Errorf("%w: loan %d is %s", loanDomain.ErrNotActive, l.ID, l.State)
			}
			insts, err := r.Loans.ListInstallments(ctx, l.ID)
			if err != nil {
				return err
			}

			now := u.now()
			alloc, err := loanDomain.AllocatePayment(l, insts, in.Amount, now)
			if err != nil {
				return err
			}
			for _, inst := range alloc.Touched {
				if err := r.Loans.SaveInstallment(ctx, tok, inst); err != nil {
					return err
				}
			}
			if err := r.Loans.Save(ctx, tok, l); err != nil {
				return err
			}

			p := &paymentDomain.Payment{
				Reference:     id.NewID32(),
				LoanID:        l.ID,
				Amount:        in.Amount,
				AppliedMora:   alloc.ToMora,
				AppliedAmount: alloc.ToAmount,
				ReceivedBy:    in.Holder,
				LockID:        tok.LockID(),
			}
			if err := r.Payments.Create(ctx, p); err != nil {
				return err
			}
			out = &PaymentDTO{
				Reference:       p.Reference,
				LoanID:          p.LoanID,
				Amount:          p.Amount,
				AppliedMora:     p.AppliedMora,
				AppliedAmount:   p.AppliedAmount,
				ReceivedBy:      p.ReceivedBy,
				LockID:          p.LockID,
				CreatedAt:       p.CreatedAt,
				LoanState:       string(l.State),
				LoanOutstanding: l.Outstanding(),
				LoanVersion:     l.UpdatedAt,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("payment registered",
		zap.Uint64("loan_id", out.LoanID),
		zap.String("reference", out.Reference),
		zap.Stringer("amount", out.Amount),
	)
	return out, nil
}

func (u *Usecase) GetByReference(ctx context.Context, reference string) (*paymentDomain.Payment, error) {
	if !id.IsID32(reference) {
		return nil, paymentDomain.ErrNotFound
	}
	return u.repo.GetByReference(ctx, reference)
}

func (u *Usecase) ListByLoan(ctx context.Context, loanID uint64) ([]paymentDomain.Payment, error) {
	return u.repo.ListByLoanID(ctx, loanID)
}
