package models

import (
	"time"
)

// Customer is the owner of one or more accounts. The ledger engine
// references customers by id only; customer data itself is plain CRUD.
type Customer struct {
	ID          int64      `json:"customer_id" db:"customer_id"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	Email       string     `json:"email" db:"email"`
	Phone       string     `json:"phone" db:"phone"`
	Address     string     `json:"address" db:"address"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName is the display name used in transaction descriptions and lookups.
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
