package loan

import (
	"time"

	loanDomain "collections-backend/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	BorrowerID string          `json:"borrower_id"`
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	TermMonths int             `json:"term_months"`
}

// Guard is carried by every mutating input: the acting user (nil for system jobs)
// and, optionally, the loan's updated_at as the caller last saw it.
type Guard struct {
	Holder          *uint64
	ExpectedVersion *time.Time
}

type ApplyMoraInput struct {
	LoanID uint64
	// zero means now
	AsOf time.Time
	Guard
}

type RescheduleInput struct {
	LoanID     uint64
	Rate       decimal.Decimal
	TermMonths int
	Guard
}

type WriteOffInput struct {
	LoanID uint64
	Reason string
	Guard
}

type LoanDTO struct {
	ID           uint64                   `json:"id"`
	BorrowerID   string                   `json:"borrower_id"`
	Principal    decimal.Decimal          `json:"principal"`
	Rate         decimal.Decimal          `json:"rate"`
	TermMonths   int                      `json:"term_months"`
	Balance      decimal.Decimal          `json:"balance"`
	MoraBalance  decimal.Decimal          `json:"mora_balance"`
	Outstanding  decimal.Decimal          `json:"outstanding"`
	State        string                   `json:"state"`
	Refinances   int                      `json:"refinances"`
	Restructures int                      `json:"restructures"`
	WrittenOffAt *time.Time               `json:"written_off_at,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
	Installments []loanDomain.Installment `json:"installments,omitempty"`
}

type MoraDTO struct {
	Charged decimal.Decimal `json:"charged"`
	Loan    *LoanDTO        `json:"loan"`
}

func toDTO(l *loanDomain.Loan, insts []loanDomain.Installment) *LoanDTO {
	return &LoanDTO{
		ID:           l.ID,
		BorrowerID:   l.BorrowerID,
		Principal:    l.Principal,
		Rate:         l.Rate,
		TermMonths:   l.TermMonths,
		Balance:      l.Balance,
		MoraBalance:  l.MoraBalance,
		Outstanding:  l.Outstanding(),
		State:        string(l.State),
		Refinances:   l.Refinances,
		Restructures: l.Restructures,
		WrittenOffAt: l.WrittenOffAt,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
		Installments: insts,
	}
}
