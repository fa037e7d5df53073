package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gimmyalex/lending-engine/internal/domain"
)

type cardRepository struct {
	db sqlx.ExtContext
}

// NewCardRepository returns a CardRepository backed by db, which may be a
// *sqlx.DB or a transaction.
func NewCardRepository(db sqlx.ExtContext) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *domain.DebitCard) error {
	query := `
		INSERT INTO debit_cards (id, user_id, number, type, expiration_date, disabled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		card.ID,
		card.UserID,
		card.Number,
		card.Type,
		card.ExpirationDate,
		card.DisabledAt,
		card.CreatedAt,
		card.UpdatedAt,
	)

	return err
}

const cardColumns = `id, user_id, number, type, expiration_date, disabled_at, created_at, updated_at, deleted_at`

func (r *cardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebitCard, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM debit_cards
		WHERE id = $1 AND deleted_at IS NULL
	`

	var card domain.DebitCard
	if err := sqlx.GetContext(ctx, r.db, &card, query, id); err != nil {
		return nil, err
	}

	return &card, nil
}

func (r *cardRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.DebitCard, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM debit_cards
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	var cards []*domain.DebitCard
	if err := sqlx.SelectContext(ctx, r.db, &cards, query, userID); err != nil {
		return nil, err
	}

	return cards, nil
}

func (r *cardRepository) Update(ctx context.Context, card *domain.DebitCard) error {
	query := `
		UPDATE debit_cards
		SET disabled_at = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, card.ID, card.DisabledAt, time.Now())
	return err
}

func (r *cardRepository) CreateTransaction(ctx context.Context, tx *domain.DebitCardTransaction) error {
	query := `
		INSERT INTO debit_card_transactions (id, debit_card_id, amount, currency_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.DebitCardID,
		tx.Amount,
		tx.CurrencyCode,
		tx.CreatedAt,
	)

	return err
}

func (r *cardRepository) GetTransactionsByCardID(ctx context.Context, cardID uuid.UUID) ([]*domain.DebitCardTransaction, error) {
	query := `
		SELECT id, debit_card_id, amount, currency_code, created_at
		FROM debit_card_transactions
		WHERE debit_card_id = $1
		ORDER BY created_at DESC
	`

	var txs []*domain.DebitCardTransaction
	if err := sqlx.SelectContext(ctx, r.db, &txs, query, cardID); err != nil {
		return nil, err
	}

	return txs, nil
}
