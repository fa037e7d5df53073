package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReceivedRepayment is the immutable ledger entry for a payment event.
// Amount is the full amount received, never clamped to what the loan
// could absorb.
type ReceivedRepayment struct {
	ID           uuid.UUID `json:"id" db:"id"`
	LoanID       uuid.UUID `json:"loan_id" db:"loan_id"`
	Amount       int64     `json:"amount" db:"amount"`
	CurrencyCode string    `json:"currency_code" db:"currency_code"`
	ReceivedAt   time.Time `json:"received_at" db:"received_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
