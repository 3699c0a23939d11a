package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/corebank/backend/internal/models"
	"github.com/corebank/backend/internal/services"
)

// AccountHandler exposes account opening, lookup and PIN operations.
type AccountHandler struct {
	engine    *services.LedgerEngine
	customers *services.CustomerService
	guard     *services.AccessGuard
	validator *services.ValidationHelper
}

func NewAccountHandler(engine *services.LedgerEngine, customers *services.CustomerService, guard *services.AccessGuard) *AccountHandler {
	return &AccountHandler{
		engine:    engine,
		customers: customers,
		guard:     guard,
		validator: services.NewValidationHelper(),
	}
}

// OpenAccount creates an account for an existing customer. A positive
// initial balance shows up in the ledger as an OPENING_BALANCE entry.
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID     int64  `json:"customer_id" validate:"required,gt=0"`
		AccountType    string `json:"account_type" validate:"required"`
		InitialBalance string `json:"initial_balance" validate:"required,money"`
		Pin            string `json:"pin" validate:"required,pin"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	accountType, err := models.ParseAccountType(req.AccountType)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	initialBalance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		services.SendErrorResponse(w, "Invalid initial balance", http.StatusBadRequest, nil)
		return
	}

	if _, err := h.customers.GetCustomer(r.Context(), req.CustomerID); err != nil {
		handleServiceError(w, err)
		return
	}

	account, err := h.engine.OpenAccount(r.Context(), req.CustomerID, accountType, initialBalance, req.Pin)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetAccount returns the account snapshot for {accountNumber}.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "accountNumber")
	account, err := h.engine.GetAccountDetails(r.Context(), number)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GetBalance returns just the balance for {accountNumber}.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "accountNumber")
	balance, err := h.engine.GetBalance(r.Context(), number)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_number": number,
		"balance":        balance,
	})
}

// GetHistory returns the account's ledger entries, newest first.
func (h *AccountHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "accountNumber")
	entries, err := h.engine.GetHistory(r.Context(), number)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListAccounts returns all accounts, or a customer's accounts when the
// customerId query parameter is present.
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	var (
		accounts []models.Account
		err      error
	)
	if raw := r.URL.Query().Get("customerId"); raw != "" {
		customerID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			services.SendErrorResponse(w, "Invalid customerId", http.StatusBadRequest, nil)
			return
		}
		accounts, err = h.engine.ListAccountsByCustomer(r.Context(), customerID)
	} else {
		accounts, err = h.engine.ListAccounts(r.Context())
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// VerifyPin checks a PIN against {accountNumber} without mutating anything.
func (h *AccountHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "accountNumber")
	var req struct {
		Pin string `json:"pin" validate:"required,pin"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	valid, err := h.guard.VerifyPin(r.Context(), number, req.Pin)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// ChangePin rotates the PIN for {accountNumber} after verifying the
// current one.
func (h *AccountHandler) ChangePin(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "accountNumber")
	var req struct {
		CurrentPin string `json:"current_pin" validate:"required,pin"`
		NewPin     string `json:"new_pin" validate:"required,pin"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	changed, err := h.guard.ChangePin(r.Context(), number, req.CurrentPin, req.NewPin)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}
