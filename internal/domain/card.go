package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	CardTypeVisa       = "visa"
	CardTypeMastercard = "mastercard"
)

// DebitCard represents an issued debit card. A nil DisabledAt means the
// card is active and may create transactions.
type DebitCard struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	Number         string     `json:"number" db:"number"`
	Type           string     `json:"type" db:"type"`
	ExpirationDate time.Time  `json:"expiration_date" db:"expiration_date"`
	DisabledAt     *time.Time `json:"disabled_at,omitempty" db:"disabled_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsActive reports whether the card can create transactions.
func (c *DebitCard) IsActive() bool {
	return c.DisabledAt == nil
}

// DebitCardTransaction records a spend against a debit card.
type DebitCardTransaction struct {
	ID           uuid.UUID `json:"id" db:"id"`
	DebitCardID  uuid.UUID `json:"debit_card_id" db:"debit_card_id"`
	Amount       int64     `json:"amount" db:"amount"`
	CurrencyCode string    `json:"currency_code" db:"currency_code"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type IssueCardRequest struct {
	Type string `json:"type" validate:"required,oneof=visa mastercard"`
}

type CardTransactionRequest struct {
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	CurrencyCode string `json:"currency_code" validate:"required,alpha,len=3"`
}
