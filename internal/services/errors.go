package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The error types below carry enough context (account number, attempted
// amount, available balance) for direct display without further lookups.
// Callers distinguish them with errors.As.

// ValidationError reports malformed input: a non-positive amount, a bad
// PIN format, an unknown enum string, or a missing required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown account. Role names which side of a
// transfer was missing ("source"/"destination"); empty otherwise.
type NotFoundError struct {
	AccountNumber string
	Role          string
}

func (e *NotFoundError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("%s account not found: %s", e.Role, e.AccountNumber)
	}
	return fmt.Sprintf("account not found: %s", e.AccountNumber)
}

// CustomerNotFoundError reports an unknown customer.
type CustomerNotFoundError struct {
	CustomerID int64
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer not found: %d", e.CustomerID)
}

// InactiveAccountError reports an account whose status does not permit
// balance mutations.
type InactiveAccountError struct {
	AccountNumber string
	Role          string
}

func (e *InactiveAccountError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("%s account is not active: %s", e.Role, e.AccountNumber)
	}
	return fmt.Sprintf("account is not active: %s", e.AccountNumber)
}

// InsufficientFundsError reports a withdrawal or transfer exceeding the
// available balance. The balance reported is the committed value read
// under the row lock.
type InsufficientFundsError struct {
	AccountNumber string
	Requested     decimal.Decimal
	Available     decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance in account %s. Available: $%s",
		e.AccountNumber, e.Available.StringFixed(2))
}

// SameAccountError reports a transfer whose source and destination are
// the same account.
type SameAccountError struct {
	AccountNumber string
}

func (e *SameAccountError) Error() string {
	return fmt.Sprintf("cannot transfer to the same account: %s", e.AccountNumber)
}

// AuthError reports a PIN mismatch.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// PersistenceError reports a store failure. Any partial state already
// applied within the failed operation has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
