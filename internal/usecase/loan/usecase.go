package loan

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	loanDomain "collections-backend/internal/domain/loan"
	lockDomain "collections-backend/internal/domain/lock"
	"collections-backend/internal/domain/uow"
	"collections-backend/internal/domain/version"
	"collections-backend/internal/logger"
	lockuc "collections-backend/internal/usecase/lock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Usecase struct {
	repo           loanDomain.Repository
	uow            uow.UnitOfWork
	runner         *lockuc.Runner
	mora           loanDomain.MoraFunc
	complexTimeout time.Duration
	now            func() time.Time
	log            *zap.Logger
}

type Option func(*Usecase)

func WithMora(fn loanDomain.MoraFunc) Option    { return func(u *Usecase) { u.mora = fn } }
func WithClock(now func() time.Time) Option     { return func(u *Usecase) { u.now = now } }
func WithLogger(l *zap.Logger) Option           { return func(u *Usecase) { u.log = logger.OrNop(l) } }
func WithComplexTimeout(d time.Duration) Option { return func(u *Usecase) { u.complexTimeout = d } }

// NewUsecase: repo serves unguarded reads and creation; mutations go through the
// runner and the unit of work.
func NewUsecase(repo loanDomain.Repository, tx uow.UnitOfWork, runner *lockuc.Runner, opts ...Option) *Usecase {
	u := &Usecase{
		repo:           repo,
		uow:            tx,
		runner:         runner,
		mora:           loanDomain.DailyRateMora(decimal.RequireFromString("0.001")),
		complexTimeout: lockDomain.ComplexTimeout,
		now:            func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		log:            zap.NewNop(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Create books a new loan with its schedule. No lock: nobody can reference the
// loan before it exists.
func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if in.BorrowerID == "" || len(in.BorrowerID) > 32 {
		return nil, fmt.Errorf("%w: borrower_id must be 1-32 characters", loanDomain.ErrInvalidTerms)
	}
	schedule, err := loanDomain.BuildSchedule(0, in.Principal, in.Rate, in.TermMonths, u.now(), 1)
	if err != nil {
		return nil, err
	}
	l := &loanDomain.Loan{
		BorrowerID:  in.BorrowerID,
		Principal:   in.Principal,
		Rate:        in.Rate,
		TermMonths:  in.TermMonths,
		Balance:     loanDomain.ScheduleTotal(schedule),
		MoraBalance: decimal.Zero,
		State:       loanDomain.StateActive,
	}
	if err := u.repo.Create(ctx, l, schedule); err != nil {
		return nil, err
	}
	u.log.Info("loan created", zap.Uint64("loan_id", l.ID), zap.String("borrower_id", l.BorrowerID))
	return toDTO(l, schedule), nil
}

func (u *Usecase) Get(ctx context.Context, id uint64) (*LoanDTO, error) {
	l, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	insts, err := u.repo.ListInstallments(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(l, insts), nil
}

// ApplyMora charges late interest up to in.AsOf. Re-running it for the same date
// charges nothing and leaves the version untouched.
func (u *Usecase) ApplyMora(ctx context.Context, in ApplyMoraInput) (*MoraDTO, error) {
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = u.now()
	}
	var out *MoraDTO
	opts := lockDomain.AcquireOptions{Holder: in.Holder, Description: "mora application"}
	err := u.runner.WithLock(ctx, lockDomain.LoanKey(in.LoanID), opts, func(ctx context.Context, tok lockDomain.Token) error {
		return u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loanDomain.Loan) error {
			if err := checkMutable(l, in.Guard); err != nil {
				return err
			}
			insts, err := r.Loans.ListInstallments(ctx, l.ID)
			if err != nil {
				return err
			}
			charged, touched := loanDomain.ApplyMora(l, insts, asOf, u.mora)
			for _, inst := range touched {
				if err := r.Loans.SaveInstallment(ctx, tok, inst); err != nil {
					return err
				}
			}
			if charged.IsPositive() {
				if err := r.Loans.Save(ctx, tok, l); err != nil {
					return err
				}
			}
			out = &MoraDTO{Charged: charged, Loan: toDTO(l, insts)}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if out.Charged.IsPositive() {
		u.log.Info("mora applied", zap.Uint64("loan_id", in.LoanID), zap.Stringer("charged", out.Charged))
	}
	return out, nil
}

// Refinance re-amortises the unpaid balance at new terms. The lock rows are
// written in the same transaction as the schedule swap.
func (u *Usecase) Refinance(ctx context.Context, in RescheduleInput) (*LoanDTO, error) {
	var out *LoanDTO
	opts := lockDomain.AcquireOptions{Holder: in.Holder, Description: "refinance"}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return u.runner.WithLockInTransaction(ctx, r.Locks, lockDomain.LoanKey(in.LoanID), opts, func(ctx context.Context, tok lockDomain.Token) error {
			l, err := r.Loans.GetByIDForUpdate(ctx, in.LoanID)
			if err != nil {
				return err
			}
			if err := checkMutable(l, in.Guard); err != nil {
				return err
			}
			if l.MoraBalance.IsPositive() {
				return fmt.Errorf("%w: %s unpaid", loanDomain.ErrMoraOutstanding, l.MoraBalance)
			}
			insts, err := u.reschedule(ctx, r, tok, l, l.Balance, in)
			if err != nil {
				return err
			}
			l.Refinances++
			if err := r.Loans.Save(ctx, tok, l); err != nil {
				return err
			}
			out = toDTO(l, insts)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("loan refinanced", zap.Uint64("loan_id", in.LoanID), zap.Int("term_months", in.TermMonths))
	return out, nil
}

// Restructure folds unpaid mora into the balance and reschedules it. It holds the
// lock for the complex timeout.
func (u *Usecase) Restructure(ctx context.Context, in RescheduleInput) (*LoanDTO, error) {
	var out *LoanDTO
	opts := lockDomain.AcquireOptions{Holder: in.Holder, Timeout: u.complexTimeout, Description: "restructure"}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return u.runner.WithLockInTransaction(ctx, r.Locks, lockDomain.LoanKey(in.LoanID), opts, func(ctx context.Context, tok lockDomain.Token) error {
			l, err := r.Loans.GetByIDForUpdate(ctx, in.LoanID)
			if err != nil {
				return err
			}
			if err := checkMutable(l, in.Guard); err != nil {
				return err
			}
			insts, err := u.reschedule(ctx, r, tok, l, l.Outstanding(), in)
			if err != nil {
				return err
			}
			l.MoraBalance = decimal.Zero
			l.Restructures++
			if err := r.Loans.Save(ctx, tok, l); err != nil {
				return err
			}
			out = toDTO(l, insts)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("loan restructured", zap.Uint64("loan_id", in.LoanID), zap.Int("term_months", in.TermMonths))
	return out, nil
}

// reschedule cancels open installments and books base over the new terms,
// numbering after the existing schedule. It updates l's terms and balance.
func (u *Usecase) reschedule(ctx context.Context, r uow.Repos, tok lockDomain.Token, l *loanDomain.Loan, base decimal.Decimal, in RescheduleInput) ([]loanDomain.Installment, error) {
	current, err := r.Loans.ListInstallments(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	next := 1
	for _, inst := range current {
		if inst.Number >= next {
			next = inst.Number + 1
		}
	}
	schedule, err := loanDomain.BuildSchedule(l.ID, base, in.Rate, in.TermMonths, u.now(), next)
	if err != nil {
		return nil, err
	}
	if err := r.Loans.ReplaceSchedule(ctx, tok, l.ID, schedule); err != nil {
		return nil, err
	}
	l.Rate = in.Rate
	l.TermMonths = in.TermMonths
	l.Balance = loanDomain.ScheduleTotal(schedule)
	return schedule, nil
}

// WriteOff closes an uncollectable loan: open installments are cancelled and both
// balances zeroed.
func (u *Usecase) WriteOff(ctx context.Context, in WriteOffInput) (*LoanDTO, error) {
	var out *LoanDTO
	desc := "write-off"
	if in.Reason != "" {
		desc += ": " + in.Reason
	}
	opts := lockDomain.AcquireOptions{Holder: in.Holder, Description: truncate(desc, 255)}
	err := u.runner.WithLock(ctx, lockDomain.LoanKey(in.LoanID), opts, func(ctx context.Context, tok lockDomain.Token) error {
		return u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loanDomain.Loan) error {
			if err := checkMutable(l, in.Guard); err != nil {
				return err
			}
			if err := r.Loans.ReplaceSchedule(ctx, tok, l.ID, nil); err != nil {
				return err
			}
			now := u.now()
			l.Balance = decimal.Zero
			l.MoraBalance = decimal.Zero
			l.State = loanDomain.StateWrittenOff
			l.WrittenOffAt = &now
			if err := r.Loans.Save(ctx, tok, l); err != nil {
				return err
			}
			out = toDTO(l, nil)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.log.Warn("loan written off", zap.Uint64("loan_id", in.LoanID), zap.String("reason", in.Reason))
	return out, nil
}

// checkMutable runs the optimistic version check, then the state guard.
func checkMutable(l *loanDomain.Loan, g Guard) error {
	if err := version.CheckOptional(g.ExpectedVersion, l.UpdatedAt); err != nil {
		return err
	}
	if l.State != loanDomain.StateActive {
		return fmt.Errorf("%w: loan %d is %s", loanDomain.ErrNotActive, l.ID, l.State)
	}
	return nil
}

// truncate caps s at n characters, matching how varchar lengths are counted, and
// never splits a multi-byte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
