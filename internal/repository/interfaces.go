package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gimmyalex/lending-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan with a row lock held for the
	// duration of the surrounding transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// ListByUser retrieves all loans owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error)

	// Update persists a loan's mutable fields
	Update(ctx context.Context, loan *domain.Loan) error

	// CreateScheduledRepayments batch-inserts a loan's installments
	CreateScheduledRepayments(ctx context.Context, schedules []*domain.ScheduledRepayment) error

	// GetScheduledRepayments retrieves all installments for a loan in
	// due-date order
	GetScheduledRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error)

	// GetOpenScheduledRepayments retrieves installments with status due or
	// partial in due-date order, earliest first
	GetOpenScheduledRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error)

	// GetScheduledRepaymentsDueWithin retrieves open installments across
	// all loans with due dates in [from, to]
	GetScheduledRepaymentsDueWithin(ctx context.Context, from, to time.Time) ([]*domain.ScheduledRepayment, error)

	// UpdateScheduledRepayment persists an installment's outstanding
	// amount and status
	UpdateScheduledRepayment(ctx context.Context, schedule *domain.ScheduledRepayment) error

	// CreateReceivedRepayment inserts a payment ledger entry
	CreateReceivedRepayment(ctx context.Context, repayment *domain.ReceivedRepayment) error

	// GetReceivedRepayments retrieves a loan's ledger entries, newest first
	GetReceivedRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error)
}

// CardRepository defines the interface for debit card data operations
type CardRepository interface {
	// Create creates a new debit card
	Create(ctx context.Context, card *domain.DebitCard) error

	// GetByID retrieves a card by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebitCard, error)

	// ListByUser retrieves all cards owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.DebitCard, error)

	// Update persists a card's mutable fields
	Update(ctx context.Context, card *domain.DebitCard) error

	// CreateTransaction inserts a card transaction
	CreateTransaction(ctx context.Context, tx *domain.DebitCardTransaction) error

	// GetTransactionsByCardID retrieves a card's transactions, newest first
	GetTransactionsByCardID(ctx context.Context, cardID uuid.UUID) ([]*domain.DebitCardTransaction, error)
}

// Repos bundles the repositories visible inside a unit of work.
type Repos struct {
	Loans LoanRepository
	Cards CardRepository
}

// UnitOfWork runs a group of repository operations as one atomic
// transaction: either every write commits or none do.
type UnitOfWork interface {
	// WithinTx runs fn against transaction-scoped repositories
	WithinTx(ctx context.Context, fn func(r Repos) error) error

	// WithinLoanTx locks the loan row first, then runs fn with the locked
	// loan. Serializes concurrent repayment applications per loan.
	WithinLoanTx(ctx context.Context, loanID uuid.UUID, fn func(r Repos, loan *domain.Loan) error) error
}
