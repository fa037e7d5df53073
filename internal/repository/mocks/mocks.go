package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/gimmyalex/lending-engine/internal/domain"
	"github.com/gimmyalex/lending-engine/internal/repository"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) CreateScheduledRepayments(ctx context.Context, schedules []*domain.ScheduledRepayment) error {
	args := m.Called(ctx, schedules)
	return args.Error(0)
}

func (m *MockLoanRepository) GetScheduledRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledRepayment), args.Error(1)
}

func (m *MockLoanRepository) GetOpenScheduledRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledRepayment), args.Error(1)
}

func (m *MockLoanRepository) GetScheduledRepaymentsDueWithin(ctx context.Context, from, to time.Time) ([]*domain.ScheduledRepayment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledRepayment), args.Error(1)
}

func (m *MockLoanRepository) UpdateScheduledRepayment(ctx context.Context, schedule *domain.ScheduledRepayment) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockLoanRepository) CreateReceivedRepayment(ctx context.Context, repayment *domain.ReceivedRepayment) error {
	args := m.Called(ctx, repayment)
	return args.Error(0)
}

func (m *MockLoanRepository) GetReceivedRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReceivedRepayment), args.Error(1)
}

type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) Create(ctx context.Context, card *domain.DebitCard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebitCard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DebitCard), args.Error(1)
}

func (m *MockCardRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.DebitCard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DebitCard), args.Error(1)
}

func (m *MockCardRepository) Update(ctx context.Context, card *domain.DebitCard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) CreateTransaction(ctx context.Context, tx *domain.DebitCardTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockCardRepository) GetTransactionsByCardID(ctx context.Context, cardID uuid.UUID) ([]*domain.DebitCardTransaction, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DebitCardTransaction), args.Error(1)
}

// MockUnitOfWork executes callbacks against Repos without a real
// transaction. WithinLoanTx expectations return the locked loan as the
// first return value.
type MockUnitOfWork struct {
	mock.Mock
	Repos repository.Repos
}

func (m *MockUnitOfWork) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Repos)
}

func (m *MockUnitOfWork) WithinLoanTx(ctx context.Context, loanID uuid.UUID, fn func(r repository.Repos, loan *domain.Loan) error) error {
	args := m.Called(ctx, loanID)
	if err := args.Error(1); err != nil {
		return err
	}
	return fn(m.Repos, args.Get(0).(*domain.Loan))
}
