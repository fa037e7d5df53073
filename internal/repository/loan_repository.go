package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gimmyalex/lending-engine/internal/domain"
)

type loanRepository struct {
	db sqlx.ExtContext
}

// NewLoanRepository returns a LoanRepository backed by db, which may be a
// *sqlx.DB or a transaction.
func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, amount, terms, outstanding_amount, currency_code, processed_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.UserID,
		loan.Amount,
		loan.Terms,
		loan.OutstandingAmount,
		loan.CurrencyCode,
		loan.ProcessedAt,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

const loanColumns = `id, user_id, amount, terms, outstanding_amount, currency_code, processed_at, status, created_at, updated_at, deleted_at`

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1 AND deleted_at IS NULL
	`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, userID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET outstanding_amount = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.OutstandingAmount,
		loan.Status,
		time.Now(),
	)

	return err
}

func (r *loanRepository) CreateScheduledRepayments(ctx context.Context, schedules []*domain.ScheduledRepayment) error {
	query := `
		INSERT INTO scheduled_repayments (id, loan_id, amount, outstanding_amount, currency_code, due_date, status, created_at, updated_at)
		VALUES (:id, :loan_id, :amount, :outstanding_amount, :currency_code, :due_date, :status, :created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, schedules)
	return err
}

const scheduleColumns = `id, loan_id, amount, outstanding_amount, currency_code, due_date, status, created_at, updated_at`

func (r *loanRepository) GetScheduledRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scheduled_repayments
		WHERE loan_id = $1
		ORDER BY due_date
	`

	var schedules []*domain.ScheduledRepayment
	if err := sqlx.SelectContext(ctx, r.db, &schedules, query, loanID); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) GetOpenScheduledRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scheduled_repayments
		WHERE loan_id = $1 AND status IN ($2, $3)
		ORDER BY due_date
	`

	var schedules []*domain.ScheduledRepayment
	err := sqlx.SelectContext(ctx, r.db, &schedules, query,
		loanID, domain.RepaymentStatusDue, domain.RepaymentStatusPartial)
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) GetScheduledRepaymentsDueWithin(ctx context.Context, from, to time.Time) ([]*domain.ScheduledRepayment, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scheduled_repayments
		WHERE status IN ($1, $2) AND due_date >= $3 AND due_date <= $4
		ORDER BY due_date
	`

	var schedules []*domain.ScheduledRepayment
	err := sqlx.SelectContext(ctx, r.db, &schedules, query,
		domain.RepaymentStatusDue, domain.RepaymentStatusPartial, from, to)
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) UpdateScheduledRepayment(ctx context.Context, schedule *domain.ScheduledRepayment) error {
	query := `
		UPDATE scheduled_repayments
		SET outstanding_amount = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.OutstandingAmount,
		schedule.Status,
		time.Now(),
	)

	return err
}

func (r *loanRepository) CreateReceivedRepayment(ctx context.Context, repayment *domain.ReceivedRepayment) error {
	query := `
		INSERT INTO received_repayments (id, loan_id, amount, currency_code, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		repayment.ID,
		repayment.LoanID,
		repayment.Amount,
		repayment.CurrencyCode,
		repayment.ReceivedAt,
		repayment.CreatedAt,
	)

	return err
}

func (r *loanRepository) GetReceivedRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error) {
	query := `
		SELECT id, loan_id, amount, currency_code, received_at, created_at
		FROM received_repayments
		WHERE loan_id = $1
		ORDER BY received_at DESC, created_at DESC
	`

	var repayments []*domain.ReceivedRepayment
	if err := sqlx.SelectContext(ctx, r.db, &repayments, query, loanID); err != nil {
		return nil, err
	}

	return repayments, nil
}
