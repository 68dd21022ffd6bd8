package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegisterInput struct {
	LoanID uint64
	Amount decimal.Decimal
	// acting user; nil for system-registered payments
	Holder          *uint64
	ExpectedVersion *time.Time
}

type PaymentDTO struct {
	Reference     string          `json:"reference"`
	LoanID        uint64          `json:"loan_id"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedMora   decimal.Decimal `json:"applied_mora"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	ReceivedBy    *uint64         `json:"received_by,omitempty"`
	LockID        uint64          `json:"lock_id"`
	CreatedAt     time.Time       `json:"created_at"`

	LoanState       string          `json:"loan_state"`
	LoanOutstanding decimal.Decimal `json:"loan_outstanding"`
	// new updated_at of the loan, for the client's next ExpectedVersion
	LoanVersion time.Time `json:"loan_version"`
}
