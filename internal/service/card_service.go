package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/gimmyalex/lending-engine/internal/config"
	"github.com/gimmyalex/lending-engine/internal/domain"
	"github.com/gimmyalex/lending-engine/internal/repository"
	customError "github.com/gimmyalex/lending-engine/pkg/errors"
)

type CardService struct {
	cardRepo repository.CardRepository
	config   *config.Config
}

func NewCardService(cardRepo repository.CardRepository, config *config.Config) *CardService {
	return &CardService{
		cardRepo: cardRepo,
		config:   config,
	}
}

// IssueCard creates an active debit card for userID with a generated
// number and a validity window from config.
func (s *CardService) IssueCard(ctx context.Context, userID uuid.UUID, request *domain.IssueCardRequest) (*domain.DebitCard, error) {
	if request.Type != domain.CardTypeVisa && request.Type != domain.CardTypeMastercard {
		return nil, customError.WrapInvalidArgument("card type must be visa or mastercard")
	}

	number, err := generateCardNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	card := &domain.DebitCard{
		ID:             uuid.New(),
		UserID:         userID,
		Number:         number,
		Type:           request.Type,
		ExpirationDate: now.AddDate(s.config.Business.CardValidityYears, 0, 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return card, nil
}

// GetCard returns a card owned by userID.
func (s *CardService) GetCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.DebitCard, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCardNotFound(cardID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if card.UserID != userID {
		return nil, customError.WrapNotOwner()
	}

	return card, nil
}

// ListCards returns all cards owned by userID.
func (s *CardService) ListCards(ctx context.Context, userID uuid.UUID) ([]*domain.DebitCard, error) {
	cards, err := s.cardRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return cards, nil
}

// ActivateCard clears the card's disabled marker. Activating an already
// active card is a no-op.
func (s *CardService) ActivateCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.DebitCard, error) {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	if card.IsActive() {
		return card, nil
	}

	card.DisabledAt = nil
	if err := s.cardRepo.Update(ctx, card); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return card, nil
}

// DeactivateCard sets the card's disabled marker. Deactivating an already
// disabled card keeps the original disabled timestamp.
func (s *CardService) DeactivateCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.DebitCard, error) {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	if !card.IsActive() {
		return card, nil
	}

	now := time.Now()
	card.DisabledAt = &now
	if err := s.cardRepo.Update(ctx, card); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return card, nil
}

// CreateTransaction records a spend against an active card.
func (s *CardService) CreateTransaction(ctx context.Context, userID, cardID uuid.UUID, request *domain.CardTransactionRequest) (*domain.DebitCardTransaction, error) {
	if request.Amount <= 0 {
		return nil, customError.WrapInvalidArgument("transaction amount must be greater than zero")
	}

	if !s.config.CurrencyAllowed(request.CurrencyCode) {
		return nil, customError.WrapInvalidArgument(
			fmt.Sprintf("currency must be one of %v", s.config.AllowedCurrencies()))
	}

	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	if !card.IsActive() {
		return nil, customError.WrapCardDisabled(card.ID.String())
	}

	tx := &domain.DebitCardTransaction{
		ID:           uuid.New(),
		DebitCardID:  card.ID,
		Amount:       request.Amount,
		CurrencyCode: request.CurrencyCode,
		CreatedAt:    time.Now(),
	}

	if err := s.cardRepo.CreateTransaction(ctx, tx); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return tx, nil
}

// GetTransactions returns a card's transactions, newest first.
func (s *CardService) GetTransactions(ctx context.Context, userID, cardID uuid.UUID) ([]*domain.DebitCardTransaction, error) {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	txs, err := s.cardRepo.GetTransactionsByCardID(ctx, card.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return txs, nil
}

// generateCardNumber produces a 16-digit card number with a fixed issuer
// prefix. Uniqueness is enforced by the database constraint.
func generateCardNumber() (string, error) {
	const prefix = "4539"

	max := big.NewInt(0)
	max.Exp(big.NewInt(10), big.NewInt(12), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate card number: %w", err)
	}

	return prefix + fmt.Sprintf("%012d", n), nil
}
