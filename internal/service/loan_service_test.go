package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gimmyalex/lending-engine/internal/config"
	"github.com/gimmyalex/lending-engine/internal/domain"
	"github.com/gimmyalex/lending-engine/internal/repository"
	"github.com/gimmyalex/lending-engine/internal/repository/mocks"
	customError "github.com/gimmyalex/lending-engine/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			AllowedTerms:        "3,6",
			AllowedCurrencies:   "IDR,SGD",
			CardValidityYears:   4,
			OutstandingCacheTTL: time.Hour,
		},
		Scheduler: config.SchedulerConfig{
			ReminderWindowDays: 3,
		},
	}
}

type loanServiceFixture struct {
	service  *LoanService
	loanRepo *mocks.MockLoanRepository
	uow      *mocks.MockUnitOfWork
	redis    *miniredis.Miniredis
}

func newLoanServiceFixture(t *testing.T) *loanServiceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	loanRepo := &mocks.MockLoanRepository{}
	uow := &mocks.MockUnitOfWork{
		Repos: repository.Repos{Loans: loanRepo},
	}

	return &loanServiceFixture{
		service:  NewLoanService(loanRepo, uow, client, testConfig()),
		loanRepo: loanRepo,
		uow:      uow,
		redis:    mr,
	}
}

func assertBusinessCode(t *testing.T, err error, code string) {
	t.Helper()

	var busErr *customError.BusinessError
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, code, busErr.Code)
}

func TestCreateLoan_Success(t *testing.T) {
	f := newLoanServiceFixture(t)
	userID := uuid.New()

	f.uow.On("WithinTx", mock.Anything).Return(nil)
	f.loanRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.UserID == userID && loan.Amount == 1000
	})).Return(nil)
	f.loanRepo.On("CreateScheduledRepayments", mock.Anything, mock.MatchedBy(func(schedules []*domain.ScheduledRepayment) bool {
		return len(schedules) == 3
	})).Return(nil)

	loan, schedule, err := f.service.CreateLoan(context.Background(), userID, &domain.CreateLoanRequest{
		Amount:       1000,
		CurrencyCode: "IDR",
		Terms:        3,
		ProcessedAt:  "2024-01-15",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1000), loan.Amount)
	assert.Equal(t, int64(1000), loan.OutstandingAmount)
	assert.Equal(t, domain.LoanStatusDue, loan.Status)

	require.Len(t, schedule, 3)
	assert.Equal(t, int64(333), schedule[0].Amount)
	assert.Equal(t, int64(333), schedule[1].Amount)
	assert.Equal(t, int64(334), schedule[2].Amount)
	assert.Equal(t, "2024-02-15", schedule[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, "2024-03-15", schedule[1].DueDate.Format("2006-01-02"))
	assert.Equal(t, "2024-04-15", schedule[2].DueDate.Format("2006-01-02"))

	for _, s := range schedule {
		assert.Equal(t, s.Amount, s.OutstandingAmount)
		assert.Equal(t, domain.RepaymentStatusDue, s.Status)
		assert.Equal(t, loan.ID, s.LoanID)
		assert.Equal(t, "IDR", s.CurrencyCode)
	}

	f.loanRepo.AssertExpectations(t)
	f.uow.AssertExpectations(t)
}

func TestCreateLoan_InstallmentsPartitionPrincipal(t *testing.T) {
	f := newLoanServiceFixture(t)
	f.uow.On("WithinTx", mock.Anything).Return(nil)
	f.loanRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("CreateScheduledRepayments", mock.Anything, mock.Anything).Return(nil)

	amounts := []int64{1, 5, 1000, 999, 100000007, 333333}
	terms := []int{3, 6}

	for _, amount := range amounts {
		for _, term := range terms {
			_, schedule, err := f.service.CreateLoan(context.Background(), uuid.New(), &domain.CreateLoanRequest{
				Amount:       amount,
				CurrencyCode: "SGD",
				Terms:        term,
				ProcessedAt:  "2024-01-15",
			})
			require.NoError(t, err)
			require.Len(t, schedule, term)

			base := amount / int64(term)
			var sum int64
			for i, s := range schedule {
				sum += s.Amount
				if i < term-1 {
					assert.Equal(t, base, s.Amount)
				}
			}
			assert.Equal(t, amount, sum, "installments must sum to principal for %d/%d", amount, term)

			// Due dates strictly increase one month per installment.
			for i := 1; i < len(schedule); i++ {
				assert.True(t, schedule[i].DueDate.After(schedule[i-1].DueDate))
			}
		}
	}
}

func TestCreateLoan_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request *domain.CreateLoanRequest
	}{
		{
			name: "disallowed term count",
			request: &domain.CreateLoanRequest{
				Amount: 1000, CurrencyCode: "IDR", Terms: 4, ProcessedAt: "2024-01-15",
			},
		},
		{
			name: "zero amount",
			request: &domain.CreateLoanRequest{
				Amount: 0, CurrencyCode: "IDR", Terms: 3, ProcessedAt: "2024-01-15",
			},
		},
		{
			name: "negative amount",
			request: &domain.CreateLoanRequest{
				Amount: -500, CurrencyCode: "IDR", Terms: 3, ProcessedAt: "2024-01-15",
			},
		},
		{
			name: "unsupported currency",
			request: &domain.CreateLoanRequest{
				Amount: 1000, CurrencyCode: "USD", Terms: 3, ProcessedAt: "2024-01-15",
			},
		},
		{
			name: "malformed origination date",
			request: &domain.CreateLoanRequest{
				Amount: 1000, CurrencyCode: "IDR", Terms: 3, ProcessedAt: "15/01/2024",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoanServiceFixture(t)

			loan, schedule, err := f.service.CreateLoan(context.Background(), uuid.New(), tt.request)

			assertBusinessCode(t, err, customError.ErrCodeInvalidArgument)
			assert.Nil(t, loan)
			assert.Nil(t, schedule)
			f.uow.AssertNotCalled(t, "WithinTx", mock.Anything)
		})
	}
}

func TestCreateLoan_TransactionFailure(t *testing.T) {
	f := newLoanServiceFixture(t)
	f.uow.On("WithinTx", mock.Anything).Return(customError.WrapDatabaseError(errors.New("connection reset")))

	loan, schedule, err := f.service.CreateLoan(context.Background(), uuid.New(), &domain.CreateLoanRequest{
		Amount:       1000,
		CurrencyCode: "IDR",
		Terms:        3,
		ProcessedAt:  "2024-01-15",
	})

	assertBusinessCode(t, err, customError.ErrCodeDatabaseError)
	assert.Nil(t, loan)
	assert.Nil(t, schedule)
}

// repaymentFixture builds a due loan of 1000 split 333/333/334.
func repaymentFixture() (*domain.Loan, []*domain.ScheduledRepayment) {
	loanID := uuid.New()
	loan := &domain.Loan{
		ID:                loanID,
		UserID:            uuid.New(),
		Amount:            1000,
		Terms:             3,
		OutstandingAmount: 1000,
		CurrencyCode:      "IDR",
		Status:            domain.LoanStatusDue,
	}

	due := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	schedules := []*domain.ScheduledRepayment{
		{ID: uuid.New(), LoanID: loanID, Amount: 333, OutstandingAmount: 333, CurrencyCode: "IDR", DueDate: due, Status: domain.RepaymentStatusDue},
		{ID: uuid.New(), LoanID: loanID, Amount: 333, OutstandingAmount: 333, CurrencyCode: "IDR", DueDate: due.AddDate(0, 1, 0), Status: domain.RepaymentStatusDue},
		{ID: uuid.New(), LoanID: loanID, Amount: 334, OutstandingAmount: 334, CurrencyCode: "IDR", DueDate: due.AddDate(0, 2, 0), Status: domain.RepaymentStatusDue},
	}

	return loan, schedules
}

func openSchedules(schedules []*domain.ScheduledRepayment) []*domain.ScheduledRepayment {
	var open []*domain.ScheduledRepayment
	for _, s := range schedules {
		if s.Status != domain.RepaymentStatusRepaid {
			open = append(open, s)
		}
	}
	return open
}

func expectAllocation(f *loanServiceFixture, loan *domain.Loan, schedules []*domain.ScheduledRepayment) {
	f.uow.On("WithinLoanTx", mock.Anything, loan.ID).Return(loan, nil)
	f.loanRepo.On("CreateReceivedRepayment", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("GetOpenScheduledRepayments", mock.Anything, loan.ID).Return(openSchedules(schedules), nil)
	f.loanRepo.On("UpdateScheduledRepayment", mock.Anything, mock.Anything).Return(nil)
	f.loanRepo.On("Update", mock.Anything, loan).Return(nil)
}

func TestApplyRepayment_SpansTwoInstallmentsPartially(t *testing.T) {
	f := newLoanServiceFixture(t)
	loan, schedules := repaymentFixture()
	expectAllocation(f, loan, schedules)

	received, err := f.service.ApplyRepayment(context.Background(), loan.ID, &domain.RepaymentRequest{
		Amount:       400,
		CurrencyCode: "IDR",
		ReceivedAt:   "2024-02-20",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(400), received.Amount)
	assert.Equal(t, loan.ID, received.LoanID)

	assert.Equal(t, int64(0), schedules[0].OutstandingAmount)
	assert.Equal(t, domain.RepaymentStatusRepaid, schedules[0].Status)
	assert.Equal(t, int64(266), schedules[1].OutstandingAmount)
	assert.Equal(t, domain.RepaymentStatusPartial, schedules[1].Status)
	assert.Equal(t, int64(334), schedules[2].OutstandingAmount)
	assert.Equal(t, domain.RepaymentStatusDue, schedules[2].Status)

	assert.Equal(t, int64(600), loan.OutstandingAmount)
	assert.Equal(t, domain.LoanStatusDue, loan.Status)

	f.loanRepo.AssertNumberOfCalls(t, "UpdateScheduledRepayment", 2)
}

func TestApplyRepayment_ExactInstallmentAmount(t *testing.T) {
	f := newLoanServiceFixture(t)
	loan, schedules := repaymentFixture()
	expectAllocation(f, loan, schedules)

	_, err := f.service.ApplyRepayment(context.Background(), loan.ID, &domain.RepaymentRequest{
		Amount:       333,
		CurrencyCode: "IDR",
		ReceivedAt:   "2024-02-15",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RepaymentStatusRepaid, schedules[0].Status)
	assert.Equal(t, int64(0), schedules[0].OutstandingAmount)
	// Zero remainder must not touch the next installment.
	assert.Equal(t, domain.RepaymentStatusDue, schedules[1].Status)
	assert.Equal(t, int64(333), schedules[1].OutstandingAmount)

	assert.Equal(t, int64(667), loan.OutstandingAmount)
	f.loanRepo.AssertNumberOfCalls(t, "UpdateScheduledRepayment", 1)
}

func TestApplyRepayment_SpansTwoInstallmentsExactly(t *testing.T) {
	f := newLoanServiceFixture(t)
	loan, schedules := repaymentFixture()
	expectAllocation(f, loan, schedules)

	_, err := f.service.ApplyRepayment(context.Background(), loan.ID, &domain.RepaymentRequest{
		Amount:       666,
		CurrencyCode: "IDR",
		ReceivedAt:   "2024-03-15",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RepaymentStatusRepaid, schedules[0].Status)
	assert.Equal(t, domain.RepaymentStatusRepaid, schedules[1].Status)
	assert.Equal(t, domain.RepaymentStatusDue, schedules[2].Status)
	assert.Equal(t, int64(334), loan.OutstandingAmount)

	f.loanRepo.AssertNumberOfCalls(t, "UpdateScheduledRepayment", 2)
}

func TestApplyRepayment_RepeatedPartialsAgainstSameInstallment(t *testing.T) {
	f := newLoanServiceFixture(t)
	loan, schedules := repaymentFixture()
	expectAllocation(f, loan, schedules)

	_, err := f.service.ApplyRepayment(context.Background(), loan.ID, &domain.RepaymentRequest{
		Amount: 100, CurrencyCode: "IDR", ReceivedAt: "2024-02-10",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(233), schedules[0].OutstandingAmount)
	assert.Equal(t, domain.RepaymentStatusPartial, schedules[0].Status)
	assert.Equal(t, int64(900), loan.OutstandingAmount)

	_, err = f.service.ApplyRepayment(context.Background(), loan.ID, &domain.RepaymentRequest{
		Amount: 233, CurrencyCode: "IDR", ReceivedAt: "2024-02-12",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), schedules[0].OutstandingAmount)
	assert.Equal(t, domain.RepaymentStatusRepaid, schedules[0].Status)
	assert.Equal(t, int64(333), schedules[1].OutstandingAmount)
	assert.Equal(t, domain.RepaymentStatusDue, schedules[1].Status)
	assert.Equal(t, int64(667), loan.OutstandingAmount)
}

func TestApplyRepayment_OverpaymentIsClampedButLedgerKeepsFullAmount(t *testing.T) {
	f := newLoanServiceFixture(t)
	loanID := uuid.New()
	loan := &domain.Loan{
		ID:                loanID,
		Amount:            1000,
		Terms:             3,
		OutstandingAmount: 50,
		CurrencyCode:      "IDR",
		Status:            domain.LoanStatusDue,
	}
	schedules := []*domain.ScheduledRepayment{
		{ID: uuid.New(), LoanID: loanID, Amount: 334, OutstandingAmount: 50, CurrencyCode: "IDR", Status: domain.RepaymentStatusPartial},
	}
	expectAllocation(f, loan, schedules)

	received, err := f.service.ApplyRepayment(context.Background(), loanID, &domain.RepaymentRequest{
		Amount:       200,
		CurrencyCode: "IDR",
		ReceivedAt:   "2024-05-01",
	})

	require.NoError(t, err)
	// Ledger records what was actually received.
	assert.Equal(t, int64(200), received.Amount)

	assert.Equal(t, int64(0), schedules[0].OutstandingAmount)
	assert.Equal(t, domain.RepaymentStatusRepaid, schedules[0].Status)
	assert.Equal(t, int64(0), loan.OutstandingAmount)
	assert.Equal(t, domain.LoanStatusRepaid, loan.Status)
}

func TestApplyRepayment_FullPayoffMarksLoanRepaid(t *testing.T) {
	f := newLoanServiceFixture(t)
	loan, schedules := repaymentFixture()
	expectAllocation(f, loan, schedules)

	_, err := f.service.ApplyRepayment(context.Background(), loan.ID, &domain.RepaymentRequest{
		Amount: 1000, CurrencyCode: "IDR", ReceivedAt: "2024-04-15",
	})

	require.NoError(t, err)
	for _, s := range schedules {
		assert.Equal(t, domain.RepaymentStatusRepaid, s.Status)
		assert.Equal(t, int64(0), s.OutstandingAmount)
	}
	assert.Equal(t, int64(0), loan.OutstandingAmount)
	assert.Equal(t, domain.LoanStatusRepaid, loan.Status)
}

func TestApplyRepayment_Failures(t *testing.T) {
	tests := []struct {
		name         string
		request      *domain.RepaymentRequest
		setupMocks   func(f *loanServiceFixture, loan *domain.Loan)
		expectedCode string
	}{
		{
			name:    "non-positive amount rejected before any work",
			request: &domain.RepaymentRequest{Amount: 0, CurrencyCode: "IDR", ReceivedAt: "2024-02-15"},
			setupMocks: func(f *loanServiceFixture, loan *domain.Loan) {
			},
			expectedCode: customError.ErrCodeInvalidArgument,
		},
		{
			name:    "malformed received date",
			request: &domain.RepaymentRequest{Amount: 100, CurrencyCode: "IDR", ReceivedAt: "yesterday"},
			setupMocks: func(f *loanServiceFixture, loan *domain.Loan) {
			},
			expectedCode: customError.ErrCodeInvalidArgument,
		},
		{
			name:    "currency mismatch writes nothing",
			request: &domain.RepaymentRequest{Amount: 100, CurrencyCode: "SGD", ReceivedAt: "2024-02-15"},
			setupMocks: func(f *loanServiceFixture, loan *domain.Loan) {
				f.uow.On("WithinLoanTx", mock.Anything, loan.ID).Return(loan, nil)
			},
			expectedCode: customError.ErrCodeCurrencyMismatch,
		},
		{
			name:    "already repaid loan writes nothing",
			request: &domain.RepaymentRequest{Amount: 100, CurrencyCode: "IDR", ReceivedAt: "2024-02-15"},
			setupMocks: func(f *loanServiceFixture, loan *domain.Loan) {
				loan.Status = domain.LoanStatusRepaid
				loan.OutstandingAmount = 0
				f.uow.On("WithinLoanTx", mock.Anything, loan.ID).Return(loan, nil)
			},
			expectedCode: customError.ErrCodeAlreadyRepaid,
		},
		{
			name:    "zero outstanding safety net",
			request: &domain.RepaymentRequest{Amount: 100, CurrencyCode: "IDR", ReceivedAt: "2024-02-15"},
			setupMocks: func(f *loanServiceFixture, loan *domain.Loan) {
				// Status still due but nothing left to allocate.
				loan.OutstandingAmount = 0
				f.uow.On("WithinLoanTx", mock.Anything, loan.ID).Return(loan, nil)
			},
			expectedCode: customError.ErrCodeNothingOutstanding,
		},
		{
			name:    "loan not found",
			request: &domain.RepaymentRequest{Amount: 100, CurrencyCode: "IDR", ReceivedAt: "2024-02-15"},
			setupMocks: func(f *loanServiceFixture, loan *domain.Loan) {
				f.uow.On("WithinLoanTx", mock.Anything, loan.ID).
					Return(nil, customError.WrapLoanNotFound(loan.ID.String()))
			},
			expectedCode: customError.ErrCodeLoanNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoanServiceFixture(t)
			loan, _ := repaymentFixture()
			tt.setupMocks(f, loan)

			received, err := f.service.ApplyRepayment(context.Background(), loan.ID, tt.request)

			assert.Nil(t, received)
			assertBusinessCode(t, err, tt.expectedCode)
			f.loanRepo.AssertNotCalled(t, "CreateReceivedRepayment", mock.Anything, mock.Anything)
			f.loanRepo.AssertNotCalled(t, "UpdateScheduledRepayment", mock.Anything, mock.Anything)
			f.loanRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestApplyRepayment_InvalidatesOutstandingCache(t *testing.T) {
	f := newLoanServiceFixture(t)
	loan, schedules := repaymentFixture()
	expectAllocation(f, loan, schedules)

	key := outstandingCacheKey(loan.ID)
	f.redis.Set(key, "1000")

	_, err := f.service.ApplyRepayment(context.Background(), loan.ID, &domain.RepaymentRequest{
		Amount: 400, CurrencyCode: "IDR", ReceivedAt: "2024-02-20",
	})

	require.NoError(t, err)
	assert.False(t, f.redis.Exists(key))
}

func TestGetOutstanding_CacheMissThenHit(t *testing.T) {
	f := newLoanServiceFixture(t)
	loanID := uuid.New()
	loan := &domain.Loan{ID: loanID, OutstandingAmount: 600, Status: domain.LoanStatusDue}

	f.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil).Once()

	outstanding, err := f.service.GetOutstanding(context.Background(), loanID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), outstanding)

	// Second read is served from the cache; the repository mock would
	// panic on an unexpected second GetByID call.
	outstanding, err = f.service.GetOutstanding(context.Background(), loanID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), outstanding)

	f.loanRepo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestGetOutstanding_LoanNotFound(t *testing.T) {
	f := newLoanServiceFixture(t)
	loanID := uuid.New()

	f.loanRepo.On("GetByID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

	_, err := f.service.GetOutstanding(context.Background(), loanID)
	assertBusinessCode(t, err, customError.ErrCodeLoanNotFound)
}

func TestGetLoan_OwnershipEnforced(t *testing.T) {
	f := newLoanServiceFixture(t)
	loanID := uuid.New()
	owner := uuid.New()
	loan := &domain.Loan{ID: loanID, UserID: owner}

	f.loanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)

	got, err := f.service.GetLoan(context.Background(), owner, loanID)
	require.NoError(t, err)
	assert.Equal(t, loan, got)

	_, err = f.service.GetLoan(context.Background(), uuid.New(), loanID)
	assertBusinessCode(t, err, customError.ErrCodeForbidden)
}

func TestPublishDueReminders(t *testing.T) {
	f := newLoanServiceFixture(t)
	loanID := uuid.New()
	schedules := []*domain.ScheduledRepayment{
		{ID: uuid.New(), LoanID: loanID, OutstandingAmount: 333, CurrencyCode: "IDR", DueDate: time.Now().AddDate(0, 0, 1), Status: domain.RepaymentStatusDue},
		{ID: uuid.New(), LoanID: loanID, OutstandingAmount: 100, CurrencyCode: "IDR", DueDate: time.Now().AddDate(0, 0, 2), Status: domain.RepaymentStatusPartial},
	}

	f.loanRepo.On("GetScheduledRepaymentsDueWithin", mock.Anything, mock.Anything, mock.Anything).
		Return(schedules, nil)

	published, err := f.service.PublishDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	entries, err := f.redis.List(reminderQueueKey)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
