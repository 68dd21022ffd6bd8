package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// The functions in this file are the business formulas the guarded operations
// call while holding the loan lock. They are pure: they mutate only the values
// handed to them and never touch storage.

// BuildSchedule splits amount*(1+rate) into term monthly installments starting one
// month after start. The last installment absorbs rounding.
func BuildSchedule(loanID uint64, amount, rate decimal.Decimal, term int, start time.Time, firstNumber int) ([]Installment, error) {
	if term <= 0 || !amount.IsPositive() || rate.IsNegative() {
		return nil, fmt.Errorf("%w: amount=%s rate=%s term=%d", ErrInvalidTerms, amount, rate, term)
	}
	total := amount.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
	each := total.Div(decimal.NewFromInt(int64(term))).RoundDown(2)
	out := make([]Installment, term)
	allocated := decimal.Zero
	for i := 0; i < term; i++ {
		due := each
		if i == term-1 {
			due = total.Sub(allocated)
		}
		allocated = allocated.Add(due)
		out[i] = Installment{
			LoanID:     loanID,
			Number:     firstNumber + i,
			DueDate:    start.AddDate(0, i+1, 0),
			AmountDue:  due,
			AmountPaid: decimal.Zero,
			MoraDue:    decimal.Zero,
			MoraPaid:   decimal.Zero,
			Status:     InstallmentPending,
		}
	}
	return out, nil
}

// ScheduleTotal sums the amounts due of schedule.
func ScheduleTotal(schedule []Installment) decimal.Decimal {
	sum := decimal.Zero
	for i := range schedule {
		sum = sum.Add(schedule[i].AmountDue)
	}
	return sum
}

type Allocation struct {
	ToMora   decimal.Decimal
	ToAmount decimal.Decimal
	// Touched points into the slice passed to AllocatePayment.
	Touched []*Installment
}

// AllocatePayment applies amount oldest installment first, mora before the amount
// due of each installment. It rejects payments above the loan's outstanding total.
func AllocatePayment(l *Loan, pending []Installment, amount decimal.Decimal, now time.Time) (*Allocation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidTerms)
	}
	if amount.GreaterThan(l.Outstanding()) {
		return nil, fmt.Errorf("%w: paying %s, outstanding %s", ErrOverpayment, amount, l.Outstanding())
	}

	alloc := &Allocation{ToMora: decimal.Zero, ToAmount: decimal.Zero}
	left := amount
	for i := range pending {
		if !left.IsPositive() {
			break
		}
		inst := &pending[i]
		if inst.Status != InstallmentPending {
			continue
		}
		mora := decimal.Min(left, inst.UnpaidMora())
		inst.MoraPaid = inst.MoraPaid.Add(mora)
		left = left.Sub(mora)

		part := decimal.Min(left, inst.UnpaidAmount())
		inst.AmountPaid = inst.AmountPaid.Add(part)
		left = left.Sub(part)

		if mora.IsZero() && part.IsZero() {
			continue
		}
		alloc.ToMora = alloc.ToMora.Add(mora)
		alloc.ToAmount = alloc.ToAmount.Add(part)
		if inst.Outstanding().IsZero() {
			inst.Status = InstallmentPaid
			paidAt := now
			inst.PaidAt = &paidAt
		}
		alloc.Touched = append(alloc.Touched, inst)
	}
	if left.IsPositive() {
		// loan totals disagree with the installments; refuse rather than lose money
		return nil, fmt.Errorf("%w: %s could not be allocated to pending installments", ErrOverpayment, left)
	}

	l.MoraBalance = l.MoraBalance.Sub(alloc.ToMora)
	l.Balance = l.Balance.Sub(alloc.ToAmount)
	if l.Outstanding().IsZero() {
		l.State = StatePaid
	}
	return alloc, nil
}

// MoraFunc returns the total mora an installment should carry as of asOf.
type MoraFunc func(inst Installment, asOf time.Time) decimal.Decimal

// DailyRateMora charges dailyRate per whole day overdue on the unpaid amount.
func DailyRateMora(dailyRate decimal.Decimal) MoraFunc {
	return func(inst Installment, asOf time.Time) decimal.Decimal {
		if inst.Status != InstallmentPending || !asOf.After(inst.DueDate) {
			return decimal.Zero
		}
		days := int64(asOf.Sub(inst.DueDate) / (24 * time.Hour))
		if days <= 0 {
			return decimal.Zero
		}
		return inst.UnpaidAmount().Mul(dailyRate).Mul(decimal.NewFromInt(days)).Round(2)
	}
}

// ApplyMora raises each installment's mora to what fn computes, never lowering it.
// Running it twice for the same asOf charges nothing the second time.
func ApplyMora(l *Loan, pending []Installment, asOf time.Time, fn MoraFunc) (decimal.Decimal, []*Installment) {
	total := decimal.Zero
	var touched []*Installment
	for i := range pending {
		inst := &pending[i]
		target := fn(*inst, asOf)
		delta := target.Sub(inst.MoraDue)
		if !delta.IsPositive() {
			continue
		}
		inst.MoraDue = inst.MoraDue.Add(delta)
		total = total.Add(delta)
		touched = append(touched, inst)
	}
	l.MoraBalance = l.MoraBalance.Add(total)
	return total, touched
}
