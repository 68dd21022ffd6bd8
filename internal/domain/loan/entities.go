package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateActive     State = "active"
	StatePaid       State = "paid"
	StateWrittenOff State = "written_off"
)

type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentCancelled InstallmentStatus = "cancelled"
)

// Loan is the financial aggregate guarded by LOAN#<id> locks. UpdatedAt doubles
// as the optimistic version stamp.
type Loan struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"id"`
	BorrowerID   string          `gorm:"size:32;index:idx_loans_borrower" json:"borrower_id"`
	Principal    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"principal"`
	Rate         decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"rate"`
	TermMonths   int             `gorm:"not null" json:"term_months"`
	Balance      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance"`
	MoraBalance  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"mora_balance"`
	State        State           `gorm:"size:20;not null;default:'active'" json:"state"`
	Refinances   int             `gorm:"not null;default:0" json:"refinances"`
	Restructures int             `gorm:"not null;default:0" json:"restructures"`
	WrittenOffAt *time.Time      `gorm:"precision:6" json:"written_off_at,omitempty"`
	CreatedAt    time.Time       `gorm:"precision:6;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"precision:6;autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Total owed right now: unpaid installment amounts plus unpaid mora.
func (l *Loan) Outstanding() decimal.Decimal { return l.Balance.Add(l.MoraBalance) }

type Installment struct {
	ID         uint64            `gorm:"primaryKey;column:id" json:"id"`
	LoanID     uint64            `gorm:"not null;index:idx_installments_loan_number,priority:1" json:"loan_id"`
	Number     int               `gorm:"not null;index:idx_installments_loan_number,priority:2" json:"number"`
	DueDate    time.Time         `gorm:"precision:6;not null" json:"due_date"`
	AmountDue  decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount_due"`
	AmountPaid decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount_paid"`
	MoraDue    decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"mora_due"`
	MoraPaid   decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"mora_paid"`
	Status     InstallmentStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	PaidAt     *time.Time        `gorm:"precision:6" json:"paid_at,omitempty"`
	UpdatedAt  time.Time         `gorm:"precision:6;autoUpdateTime" json:"updated_at"`
}

func (Installment) TableName() string { return "installments" }

func (i *Installment) UnpaidAmount() decimal.Decimal { return i.AmountDue.Sub(i.AmountPaid) }
func (i *Installment) UnpaidMora() decimal.Decimal   { return i.MoraDue.Sub(i.MoraPaid) }
func (i *Installment) Outstanding() decimal.Decimal  { return i.UnpaidAmount().Add(i.UnpaidMora()) }
