package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	LoanStatusDue    = "due"
	LoanStatusRepaid = "repaid"
)

// Loan represents a credit extension to a user. All amounts are integer
// minor units (cents); OutstandingAmount stays within [0, Amount].
type Loan struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	Amount            int64      `json:"amount" db:"amount"`
	Terms             int        `json:"terms" db:"terms"`
	OutstandingAmount int64      `json:"outstanding_amount" db:"outstanding_amount"`
	CurrencyCode      string     `json:"currency_code" db:"currency_code"`
	ProcessedAt       time.Time  `json:"processed_at" db:"processed_at"`
	Status            string     `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsRepaid reports whether the loan carries no outstanding balance.
func (l *Loan) IsRepaid() bool {
	return l.Status == LoanStatusRepaid
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	CurrencyCode string `json:"currency_code" validate:"required,alpha,len=3"`
	Terms        int    `json:"terms" validate:"required,gt=0"`
	ProcessedAt  string `json:"processed_at" validate:"required"`
}

type RepaymentRequest struct {
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	CurrencyCode string `json:"currency_code" validate:"required,alpha,len=3"`
	ReceivedAt   string `json:"received_at" validate:"required"`
}
