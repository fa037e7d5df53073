package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gimmyalex/lending-engine/internal/domain"
	"github.com/gimmyalex/lending-engine/internal/service"
	"github.com/gimmyalex/lending-engine/pkg/dateutil"
	"github.com/gimmyalex/lending-engine/pkg/response"
)

type CardHandler struct {
	service   *service.CardService
	validator *validator.Validate
}

func NewCardHandler(service *service.CardService) *CardHandler {
	return &CardHandler{
		service:   service,
		validator: validator.New(),
	}
}

type CardView struct {
	ID             uuid.UUID `json:"id"`
	Number         string    `json:"number"`
	Type           string    `json:"type"`
	ExpirationDate string    `json:"expiration_date"`
	Active         bool      `json:"active"`
}

type CardTransactionView struct {
	ID           uuid.UUID `json:"id"`
	Amount       string    `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
}

func cardView(card *domain.DebitCard) CardView {
	return CardView{
		ID:             card.ID,
		Number:         card.Number,
		Type:           card.Type,
		ExpirationDate: dateutil.FormatDate(card.ExpirationDate),
		Active:         card.IsActive(),
	}
}

// IssueCard handles POST /cards
func (h *CardHandler) IssueCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req domain.IssueCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	card, err := h.service.IssueCard(r.Context(), userID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, cardView(card))
}

// ListCards handles GET /cards
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	cards, err := h.service.ListCards(r.Context(), userID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	views := make([]CardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, cardView(card))
	}

	response.Success(w, views)
}

// ActivateCard handles PATCH /cards/{cardID}/activate
func (h *CardHandler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.ActivateCard)
}

// DeactivateCard handles PATCH /cards/{cardID}/deactivate
func (h *CardHandler) DeactivateCard(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.DeactivateCard)
}

func (h *CardHandler) toggle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, cardID uuid.UUID) (*domain.DebitCard, error)) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}

	card, err := op(r.Context(), userID, cardID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, cardView(card))
}

// CreateTransaction handles POST /cards/{cardID}/transactions
func (h *CardHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}

	var req domain.CardTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	tx, err := h.service.CreateTransaction(r.Context(), userID, cardID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, CardTransactionView{
		ID:           tx.ID,
		Amount:       dateutil.FormatMinorUnits(tx.Amount),
		CurrencyCode: tx.CurrencyCode,
	})
}

// GetTransactions handles GET /cards/{cardID}/transactions
func (h *CardHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	cardID, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}

	txs, err := h.service.GetTransactions(r.Context(), userID, cardID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	views := make([]CardTransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, CardTransactionView{
			ID:           tx.ID,
			Amount:       dateutil.FormatMinorUnits(tx.Amount),
			CurrencyCode: tx.CurrencyCode,
		})
	}

	response.Success(w, views)
}
