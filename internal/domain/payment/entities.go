package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("payment not found")
	ErrInvalidAmount = errors.New("payment amount must be positive with at most 2 decimals")
)

// Table: payments. One row per registered payment; never updated.
type Payment struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// Public identifier (32-char lowercase hex)
	Reference     string          `gorm:"column:reference;type:char(32);not null;uniqueIndex:ux_payments_reference" json:"reference"`
	LoanID        uint64          `gorm:"column:loan_id;not null;index" json:"loan_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	AppliedMora   decimal.Decimal `gorm:"column:applied_mora;type:decimal(18,2);not null" json:"applied_mora"`
	AppliedAmount decimal.Decimal `gorm:"column:applied_amount;type:decimal(18,2);not null" json:"applied_amount"`
	// acting user; nil for system-registered payments
	ReceivedBy *uint64   `gorm:"column:received_by" json:"received_by,omitempty"`
	LockID     uint64    `gorm:"column:lock_id;not null" json:"lock_id"`
	CreatedAt  time.Time `gorm:"column:created_at;precision:6;autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
