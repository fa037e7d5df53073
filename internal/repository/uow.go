package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gimmyalex/lending-engine/internal/domain"
	customError "github.com/gimmyalex/lending-engine/pkg/errors"
)

type sqlUnitOfWork struct {
	db *sqlx.DB
}

// NewUnitOfWork returns a UnitOfWork running callbacks inside database
// transactions.
func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlUnitOfWork{db: db}
}

func (u *sqlUnitOfWork) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := Repos{
		Loans: NewLoanRepository(tx),
		Cards: NewCardRepository(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}

	return tx.Commit()
}

func (u *sqlUnitOfWork) WithinLoanTx(ctx context.Context, loanID uuid.UUID, fn func(r Repos, loan *domain.Loan) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := Repos{
		Loans: NewLoanRepository(tx),
		Cards: NewCardRepository(tx),
	}

	// The row lock serializes repayment applications against the same loan.
	loan, err := repos.Loans.GetByIDForUpdate(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapLoanNotFound(loanID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	if err := fn(repos, loan); err != nil {
		return err
	}

	return tx.Commit()
}
