package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/gimmyalex/lending-engine/internal/domain"
	"github.com/gimmyalex/lending-engine/internal/service"
	"github.com/gimmyalex/lending-engine/pkg/dateutil"
	"github.com/gimmyalex/lending-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// LoanView renders a loan with amounts formatted in major units.
type LoanView struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Amount            string    `json:"amount"`
	Terms             int       `json:"terms"`
	OutstandingAmount string    `json:"outstanding_amount"`
	CurrencyCode      string    `json:"currency_code"`
	ProcessedAt       string    `json:"processed_at"`
	Status            string    `json:"status"`
}

type ScheduledRepaymentView struct {
	ID                uuid.UUID `json:"id"`
	Amount            string    `json:"amount"`
	OutstandingAmount string    `json:"outstanding_amount"`
	CurrencyCode      string    `json:"currency_code"`
	DueDate           string    `json:"due_date"`
	Status            string    `json:"status"`
}

type ReceivedRepaymentView struct {
	ID           uuid.UUID `json:"id"`
	Amount       string    `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
	ReceivedAt   string    `json:"received_at"`
}

type CreateLoanView struct {
	Loan     LoanView                 `json:"loan"`
	Schedule []ScheduledRepaymentView `json:"schedule"`
}

type OutstandingView struct {
	LoanID      uuid.UUID `json:"loan_id"`
	Outstanding string    `json:"outstanding"`
}

func loanView(loan *domain.Loan) LoanView {
	return LoanView{
		ID:                loan.ID,
		UserID:            loan.UserID,
		Amount:            dateutil.FormatMinorUnits(loan.Amount),
		Terms:             loan.Terms,
		OutstandingAmount: dateutil.FormatMinorUnits(loan.OutstandingAmount),
		CurrencyCode:      loan.CurrencyCode,
		ProcessedAt:       dateutil.FormatDate(loan.ProcessedAt),
		Status:            loan.Status,
	}
}

func scheduleViews(schedules []*domain.ScheduledRepayment) []ScheduledRepaymentView {
	views := make([]ScheduledRepaymentView, 0, len(schedules))
	for _, s := range schedules {
		views = append(views, ScheduledRepaymentView{
			ID:                s.ID,
			Amount:            dateutil.FormatMinorUnits(s.Amount),
			OutstandingAmount: dateutil.FormatMinorUnits(s.OutstandingAmount),
			CurrencyCode:      s.CurrencyCode,
			DueDate:           dateutil.FormatDate(s.DueDate),
			Status:            s.Status,
		})
	}
	return views
}

func receivedViews(repayments []*domain.ReceivedRepayment) []ReceivedRepaymentView {
	views := make([]ReceivedRepaymentView, 0, len(repayments))
	for _, r := range repayments {
		views = append(views, ReceivedRepaymentView{
			ID:           r.ID,
			Amount:       dateutil.FormatMinorUnits(r.Amount),
			CurrencyCode: r.CurrencyCode,
			ReceivedAt:   dateutil.FormatDate(r.ReceivedAt),
		})
	}
	return views
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, schedule, err := h.service.CreateLoan(r.Context(), userID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, CreateLoanView{
		Loan:     loanView(loan),
		Schedule: scheduleViews(schedule),
	})
}

// GetLoan handles GET /loans/{loanID}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r, "loanID")
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), userID, loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loanView(loan))
}

// ListLoans handles GET /loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	loans, err := h.service.ListLoans(r.Context(), userID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	views := make([]LoanView, 0, len(loans))
	for _, loan := range loans {
		views = append(views, loanView(loan))
	}

	response.Success(w, views)
}

// GetSchedule handles GET /loans/{loanID}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r, "loanID")
	if !ok {
		return
	}

	schedules, err := h.service.GetSchedule(r.Context(), userID, loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, scheduleViews(schedules))
}

// GetOutstanding handles GET /loans/{loanID}/outstanding
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r, "loanID")
	if !ok {
		return
	}

	// Ownership check before serving from cache.
	if _, err := h.service.GetLoan(r.Context(), userID, loanID); err != nil {
		response.BusinessError(w, err)
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, OutstandingView{
		LoanID:      loanID,
		Outstanding: dateutil.FormatMinorUnits(outstanding),
	})
}

// ApplyRepayment handles POST /loans/{loanID}/repayments
func (h *LoanHandler) ApplyRepayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}

	loanID, ok := pathID(w, r, "loanID")
	if !ok {
		return
	}

	var req domain.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	received, err := h.service.ApplyRepayment(r.Context(), loanID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, ReceivedRepaymentView{
		ID:           received.ID,
		Amount:       dateutil.FormatMinorUnits(received.Amount),
		CurrencyCode: received.CurrencyCode,
		ReceivedAt:   dateutil.FormatDate(received.ReceivedAt),
	})
}

// GetReceivedRepayments handles GET /loans/{loanID}/repayments
func (h *LoanHandler) GetReceivedRepayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	loanID, ok := pathID(w, r, "loanID")
	if !ok {
		return
	}

	repayments, err := h.service.GetReceivedRepayments(r.Context(), userID, loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, receivedViews(repayments))
}

// actingUser resolves the acting principal from the X-User-ID header. The
// upstream gateway authenticates; this service only needs the identity.
func actingUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		response.Unauthorized(w, "missing X-User-ID header")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		response.Unauthorized(w, "malformed X-User-ID header")
		return uuid.Nil, false
	}

	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, name+" must be a UUID", err)
		return uuid.Nil, false
	}
	return id, true
}
