package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gimmyalex/lending-engine/internal/config"
	"github.com/gimmyalex/lending-engine/internal/domain"
	"github.com/gimmyalex/lending-engine/internal/repository"
	"github.com/gimmyalex/lending-engine/pkg/dateutil"
	customError "github.com/gimmyalex/lending-engine/pkg/errors"
)

const reminderQueueKey = "repayment:reminders"

type LoanService struct {
	loanRepo repository.LoanRepository
	uow      repository.UnitOfWork
	redis    *redis.Client
	config   *config.Config
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	uow repository.UnitOfWork,
	redisClient *redis.Client,
	config *config.Config,
) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
		uow:      uow,
		redis:    redisClient,
		config:   config,
	}
}

// CreateLoan originates a loan for userID together with its full
// installment schedule, in one transaction.
func (s *LoanService) CreateLoan(ctx context.Context, userID uuid.UUID, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.ScheduledRepayment, error) {
	if request.Amount <= 0 {
		return nil, nil, customError.WrapInvalidArgument("loan amount must be greater than zero")
	}

	if !s.config.TermAllowed(request.Terms) {
		return nil, nil, customError.WrapInvalidArgument(
			fmt.Sprintf("terms must be one of %v", s.config.AllowedTerms()))
	}

	if !s.config.CurrencyAllowed(request.CurrencyCode) {
		return nil, nil, customError.WrapInvalidArgument(
			fmt.Sprintf("currency must be one of %v", s.config.AllowedCurrencies()))
	}

	processedAt, err := dateutil.ParseDate(request.ProcessedAt)
	if err != nil {
		return nil, nil, customError.WrapInvalidArgument("processed_at must be a YYYY-MM-DD date")
	}

	now := time.Now()
	loan := &domain.Loan{
		ID:                uuid.New(),
		UserID:            userID,
		Amount:            request.Amount,
		Terms:             request.Terms,
		OutstandingAmount: request.Amount,
		CurrencyCode:      request.CurrencyCode,
		ProcessedAt:       processedAt,
		Status:            domain.LoanStatusDue,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	schedules := buildSchedule(loan)

	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		if err := r.Loans.Create(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := r.Loans.CreateScheduledRepayments(ctx, schedules); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return loan, schedules, nil
}

// buildSchedule splits the principal into one installment per term. Integer
// division puts the remainder on the final installment so the installments
// always sum to the principal exactly. Due dates advance one calendar month
// per installment from the origination date.
func buildSchedule(loan *domain.Loan) []*domain.ScheduledRepayment {
	base := loan.Amount / int64(loan.Terms)
	remainder := loan.Amount % int64(loan.Terms)

	now := time.Now()
	schedules := make([]*domain.ScheduledRepayment, 0, loan.Terms)
	for i := 1; i <= loan.Terms; i++ {
		amount := base
		if i == loan.Terms {
			amount += remainder
		}

		schedules = append(schedules, &domain.ScheduledRepayment{
			ID:                uuid.New(),
			LoanID:            loan.ID,
			Amount:            amount,
			OutstandingAmount: amount,
			CurrencyCode:      loan.CurrencyCode,
			DueDate:           dateutil.AddMonths(loan.ProcessedAt, i),
			Status:            domain.RepaymentStatusDue,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	return schedules
}

// ApplyRepayment records a payment against a loan and allocates it across
// open installments, earliest due date first, inside a single transaction
// holding the loan's row lock.
//
// The ledger entry always records the full received amount; allocation
// works on the amount clamped to the loan's outstanding balance.
func (s *LoanService) ApplyRepayment(ctx context.Context, loanID uuid.UUID, request *domain.RepaymentRequest) (*domain.ReceivedRepayment, error) {
	if request.Amount <= 0 {
		return nil, customError.WrapInvalidArgument("repayment amount must be greater than zero")
	}

	receivedAt, err := dateutil.ParseDate(request.ReceivedAt)
	if err != nil {
		return nil, customError.WrapInvalidArgument("received_at must be a YYYY-MM-DD date")
	}

	var received *domain.ReceivedRepayment

	err = s.uow.WithinLoanTx(ctx, loanID, func(r repository.Repos, loan *domain.Loan) error {
		if request.CurrencyCode != loan.CurrencyCode {
			return customError.WrapCurrencyMismatch(loan.CurrencyCode, request.CurrencyCode)
		}

		if loan.IsRepaid() {
			return customError.WrapAlreadyRepaid(loan.ID.String())
		}

		clamped := request.Amount
		if clamped > loan.OutstandingAmount {
			clamped = loan.OutstandingAmount
		}
		// Unreachable after the repaid check, verified as a safety net.
		if clamped <= 0 {
			return customError.WrapNothingOutstanding(loan.ID.String())
		}

		received = &domain.ReceivedRepayment{
			ID:           uuid.New(),
			LoanID:       loan.ID,
			Amount:       request.Amount,
			CurrencyCode: request.CurrencyCode,
			ReceivedAt:   receivedAt,
			CreatedAt:    time.Now(),
		}
		if err := r.Loans.CreateReceivedRepayment(ctx, received); err != nil {
			return customError.WrapDatabaseError(err)
		}

		schedules, err := r.Loans.GetOpenScheduledRepayments(ctx, loan.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		remaining := clamped
		for _, schedule := range schedules {
			if remaining <= 0 {
				break
			}

			if remaining >= schedule.OutstandingAmount {
				remaining -= schedule.OutstandingAmount
				schedule.OutstandingAmount = 0
				schedule.Status = domain.RepaymentStatusRepaid
			} else {
				schedule.OutstandingAmount -= remaining
				schedule.Status = domain.RepaymentStatusPartial
				remaining = 0
			}

			if err := r.Loans.UpdateScheduledRepayment(ctx, schedule); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}

		loan.OutstandingAmount -= clamped
		if loan.OutstandingAmount <= 0 {
			loan.OutstandingAmount = 0
			loan.Status = domain.LoanStatusRepaid
		}

		if err := r.Loans.Update(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOutstanding(ctx, loanID)

	return received, nil
}

// GetLoan returns a loan owned by userID.
func (s *LoanService) GetLoan(ctx context.Context, userID, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if loan.UserID != userID {
		return nil, customError.WrapNotOwner()
	}

	return loan, nil
}

// ListLoans returns all loans owned by userID.
func (s *LoanService) ListLoans(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	loans, err := s.loanRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// GetSchedule returns a loan's installments in due-date order.
func (s *LoanService) GetSchedule(ctx context.Context, userID, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	if _, err := s.GetLoan(ctx, userID, loanID); err != nil {
		return nil, err
	}

	schedules, err := s.loanRepo.GetScheduledRepayments(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return schedules, nil
}

// GetReceivedRepayments returns a loan's payment ledger, newest first.
func (s *LoanService) GetReceivedRepayments(ctx context.Context, userID, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error) {
	if _, err := s.GetLoan(ctx, userID, loanID); err != nil {
		return nil, err
	}

	repayments, err := s.loanRepo.GetReceivedRepayments(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return repayments, nil
}

// GetOutstanding returns a loan's outstanding balance, served from the
// Redis cache when warm.
func (s *LoanService) GetOutstanding(ctx context.Context, loanID uuid.UUID) (int64, error) {
	key := outstandingCacheKey(loanID)

	cached, err := s.redis.Get(ctx, key).Result()
	if err == nil {
		if outstanding, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return outstanding, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("outstanding cache read failed", "loan_id", loanID, "error", err)
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, customError.WrapLoanNotFound(loanID.String())
		}
		return 0, customError.WrapDatabaseError(err)
	}

	if err := s.redis.Set(ctx, key, loan.OutstandingAmount, s.config.Business.OutstandingCacheTTL).Err(); err != nil {
		slog.Warn("outstanding cache write failed", "loan_id", loanID, "error", err)
	}

	return loan.OutstandingAmount, nil
}

func (s *LoanService) invalidateOutstanding(ctx context.Context, loanID uuid.UUID) {
	if err := s.redis.Del(ctx, outstandingCacheKey(loanID)).Err(); err != nil {
		slog.Warn("outstanding cache invalidation failed", "loan_id", loanID, "error", err)
	}
}

func outstandingCacheKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan:%s:outstanding", loanID)
}

type reminder struct {
	LoanID            uuid.UUID `json:"loan_id"`
	ScheduleID        uuid.UUID `json:"schedule_id"`
	OutstandingAmount int64     `json:"outstanding_amount"`
	CurrencyCode      string    `json:"currency_code"`
	DueDate           string    `json:"due_date"`
}

// PublishDueReminders pushes a reminder entry onto the Redis queue for
// every open installment due within the configured window. A downstream
// notifier drains the queue. Returns the number of reminders published.
func (s *LoanService) PublishDueReminders(ctx context.Context) (int, error) {
	from := dateutil.TruncateToDay(time.Now())
	to := from.AddDate(0, 0, s.config.Scheduler.ReminderWindowDays)

	schedules, err := s.loanRepo.GetScheduledRepaymentsDueWithin(ctx, from, to)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	published := 0
	for _, schedule := range schedules {
		payload, err := json.Marshal(reminder{
			LoanID:            schedule.LoanID,
			ScheduleID:        schedule.ID,
			OutstandingAmount: schedule.OutstandingAmount,
			CurrencyCode:      schedule.CurrencyCode,
			DueDate:           dateutil.FormatDate(schedule.DueDate),
		})
		if err != nil {
			return published, err
		}

		if err := s.redis.LPush(ctx, reminderQueueKey, payload).Err(); err != nil {
			return published, customError.WrapCacheError(err)
		}
		published++
	}

	return published, nil
}
