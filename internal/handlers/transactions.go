package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/backend/internal/models"
	"github.com/corebank/backend/internal/services"
)

const dateLayout = "2006-01-02"

// TransactionHandler exposes the money-moving operations and ledger
// queries.
type TransactionHandler struct {
	engine    *services.LedgerEngine
	validator *services.ValidationHelper
}

func NewTransactionHandler(engine *services.LedgerEngine) *TransactionHandler {
	return &TransactionHandler{
		engine:    engine,
		validator: services.NewValidationHelper(),
	}
}

type moveMoneyRequest struct {
	AccountNumber string `json:"account_number" validate:"required"`
	Amount        string `json:"amount" validate:"required,money"`
	Description   string `json:"description" validate:"max=200"`
}

func (h *TransactionHandler) decodeMoveMoney(w http.ResponseWriter, r *http.Request) (*moveMoneyRequest, decimal.Decimal, bool) {
	var req moveMoneyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return nil, decimal.Decimal{}, false
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return nil, decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return nil, decimal.Decimal{}, false
	}
	return &req, amount, true
}

// Deposit adds money to an account.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := h.decodeMoveMoney(w, r)
	if !ok {
		return
	}
	account, err := h.engine.Deposit(r.Context(), req.AccountNumber, amount, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Withdraw removes money from an account.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := h.decodeMoveMoney(w, r)
	if !ok {
		return
	}
	account, err := h.engine.Withdraw(r.Context(), req.AccountNumber, amount, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Transfer moves money between two accounts as a single unit.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccount string `json:"from_account" validate:"required"`
		ToAccount   string `json:"to_account" validate:"required"`
		Amount      string `json:"amount" validate:"required,money"`
		Description string `json:"description" validate:"max=200"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}

	result, err := h.engine.Transfer(r.Context(), req.FromAccount, req.ToAccount, amount, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListTransactions returns ledger entries, newest first. Supports
// filtering with ?type= or ?from=&to= (dates, inclusive).
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		entries []models.LedgerEntry
		err     error
	)
	switch {
	case q.Get("type") != "":
		t, parseErr := models.ParseTransactionType(q.Get("type"))
		if parseErr != nil {
			services.SendErrorResponse(w, parseErr.Error(), http.StatusBadRequest, nil)
			return
		}
		entries, err = h.engine.ListTransactionsByType(r.Context(), t)
	case q.Get("from") != "" || q.Get("to") != "":
		from, parseErr := time.Parse(dateLayout, q.Get("from"))
		if parseErr != nil {
			services.SendErrorResponse(w, "Invalid from date, want YYYY-MM-DD", http.StatusBadRequest, nil)
			return
		}
		to, parseErr := time.Parse(dateLayout, q.Get("to"))
		if parseErr != nil {
			services.SendErrorResponse(w, "Invalid to date, want YYYY-MM-DD", http.StatusBadRequest, nil)
			return
		}
		// Make the end date inclusive of the whole day.
		entries, err = h.engine.ListTransactionsByDateRange(r.Context(), from, to.Add(24*time.Hour-time.Nanosecond))
	default:
		entries, err = h.engine.ListTransactions(r.Context())
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// RecentTransactions returns the newest entries, default 10.
func (h *TransactionHandler) RecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			services.SendErrorResponse(w, "Invalid limit", http.StatusBadRequest, nil)
			return
		}
		limit = parsed
	}
	entries, err := h.engine.ListRecentTransactions(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
