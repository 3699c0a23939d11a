package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/corebank/backend/internal/models"
	"github.com/corebank/backend/internal/store"
)

const customerColumns = "customer_id, first_name, last_name, email, phone, address, date_of_birth, created_at, updated_at"

// CustomerStore is the Postgres-backed customer store.
type CustomerStore struct {
	db *sql.DB
}

func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	var dob sql.NullTime
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Address, &dob, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		c.DateOfBirth = &dob.Time
	}
	return &c, nil
}

func (s *CustomerStore) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	now := time.Now()
	var dob sql.NullTime
	if customer.DateOfBirth != nil {
		dob = sql.NullTime{Time: *customer.DateOfBirth, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone, address, date_of_birth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING customer_id`,
		customer.FirstName, customer.LastName, customer.Email, customer.Phone,
		customer.Address, dob, now).
		Scan(&customer.ID)
	if err != nil {
		return nil, fmt.Errorf("creating customer %s: %w", customer.Email, err)
	}
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return customer, nil
}

func (s *CustomerStore) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE customer_id = $1", id)
	customer, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return customer, err
}

func (s *CustomerStore) listQuery(ctx context.Context, query string, args ...any) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	return customers, rows.Err()
}

func (s *CustomerStore) ListAll(ctx context.Context) ([]models.Customer, error) {
	return s.listQuery(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY customer_id")
}

func (s *CustomerStore) SearchByName(ctx context.Context, name string) ([]models.Customer, error) {
	pattern := "%" + name + "%"
	return s.listQuery(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY last_name, first_name`, pattern)
}

func (s *CustomerStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1)", email).Scan(&exists)
	return exists, err
}
