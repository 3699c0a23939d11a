package services

import (
	"context"
	"errors"
	"time"

	"github.com/corebank/backend/internal/models"
	"github.com/corebank/backend/internal/store"
)

// CustomerService handles customer record CRUD. It sits outside the
// ledger engine: the engine only ever sees customer ids.
type CustomerService struct {
	customers store.CustomerStore
}

func NewCustomerService(customers store.CustomerStore) *CustomerService {
	return &CustomerService{customers: customers}
}

// CreateCustomer validates and persists a new customer. Email addresses
// are unique across customers.
func (s *CustomerService) CreateCustomer(ctx context.Context, firstName, lastName, email, phone, address string, dateOfBirth *time.Time) (*models.Customer, error) {
	if firstName == "" {
		return nil, newValidationError("first name is required")
	}
	if lastName == "" {
		return nil, newValidationError("last name is required")
	}
	if email == "" {
		return nil, newValidationError("email is required")
	}
	if phone == "" {
		return nil, newValidationError("phone number is required")
	}
	if address == "" {
		return nil, newValidationError("address is required")
	}

	exists, err := s.customers.EmailExists(ctx, email)
	if err != nil {
		return nil, &PersistenceError{Op: "checking email", Err: err}
	}
	if exists {
		return nil, newValidationError("email already exists: %s", email)
	}

	customer := &models.Customer{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Phone:       phone,
		Address:     address,
		DateOfBirth: dateOfBirth,
	}
	created, err := s.customers.Create(ctx, customer)
	if err != nil {
		return nil, &PersistenceError{Op: "creating customer", Err: err}
	}
	return created, nil
}

// GetCustomer returns the customer with the given id.
func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &CustomerNotFoundError{CustomerID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "fetching customer", Err: err}
	}
	return customer, nil
}

// ListCustomers returns every customer.
func (s *CustomerService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	customers, err := s.customers.ListAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "listing customers", Err: err}
	}
	return customers, nil
}

// SearchCustomers returns customers whose first or last name matches
// the given fragment.
func (s *CustomerService) SearchCustomers(ctx context.Context, name string) ([]models.Customer, error) {
	if name == "" {
		return nil, newValidationError("search name is required")
	}
	customers, err := s.customers.SearchByName(ctx, name)
	if err != nil {
		return nil, &PersistenceError{Op: "searching customers", Err: err}
	}
	return customers, nil
}
