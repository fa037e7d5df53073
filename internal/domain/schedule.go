package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RepaymentStatusDue     = "due"
	RepaymentStatusPartial = "partial"
	RepaymentStatusRepaid  = "repaid"
)

// ScheduledRepayment is a single installment of a loan's repayment plan.
// A loan's installments are created together at origination and always sum
// to the loan principal; OutstandingAmount stays within [0, Amount].
type ScheduledRepayment struct {
	ID                uuid.UUID `json:"id" db:"id"`
	LoanID            uuid.UUID `json:"loan_id" db:"loan_id"`
	Amount            int64     `json:"amount" db:"amount"`
	OutstandingAmount int64     `json:"outstanding_amount" db:"outstanding_amount"`
	CurrencyCode      string    `json:"currency_code" db:"currency_code"`
	DueDate           time.Time `json:"due_date" db:"due_date"`
	Status            string    `json:"status" db:"status"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
