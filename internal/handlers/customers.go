package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corebank/backend/internal/models"
	"github.com/corebank/backend/internal/services"
)

// CustomerHandler exposes customer record CRUD.
type CustomerHandler struct {
	service   *services.CustomerService
	validator *services.ValidationHelper
}

func NewCustomerHandler(service *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateCustomer registers a new customer.
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName   string `json:"first_name" validate:"required,min=2"`
		LastName    string `json:"last_name" validate:"required,min=2"`
		Email       string `json:"email" validate:"required,email"`
		Phone       string `json:"phone" validate:"required"`
		Address     string `json:"address" validate:"required"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var dateOfBirth *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			services.SendErrorResponse(w, "Invalid date_of_birth, want YYYY-MM-DD", http.StatusBadRequest, nil)
			return
		}
		dateOfBirth = &parsed
	}

	customer, err := h.service.CreateCustomer(r.Context(), req.FirstName, req.LastName,
		req.Email, req.Phone, req.Address, dateOfBirth)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

// GetCustomer returns the customer with id {customerId}.
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customerId"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid customer id", http.StatusBadRequest, nil)
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// ListCustomers returns all customers, or a name search with ?name=.
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	var (
		customers []models.Customer
		err       error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		customers, err = h.service.SearchCustomers(r.Context(), name)
	} else {
		customers, err = h.service.ListCustomers(r.Context())
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}
