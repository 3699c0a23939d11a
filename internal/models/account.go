package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account. The set is closed; unknown strings
// are rejected at the boundary rather than stored.
type AccountType string

const (
	AccountTypeSavings      AccountType = "SAVINGS"
	AccountTypeChecking     AccountType = "CHECKING"
	AccountTypeFixedDeposit AccountType = "FIXED_DEPOSIT"
)

// ParseAccountType maps the stored/string form back to an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeFixedDeposit:
		return AccountType(s), nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

func (t AccountType) Valid() bool {
	_, err := ParseAccountType(string(t))
	return err == nil
}

// AccountStatus gates balance-mutating operations: only ACTIVE accounts
// may be deposited to, withdrawn from, or party to a transfer.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// ParseAccountStatus maps the stored/string form back to an AccountStatus.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch AccountStatus(s) {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended:
		return AccountStatus(s), nil
	}
	return "", fmt.Errorf("unknown account status %q", s)
}

func (s AccountStatus) Valid() bool {
	_, err := ParseAccountStatus(string(s))
	return err == nil
}

// Account is a customer account. Balance is decimal-exact and never
// negative; it is only ever changed through the ledger engine.
type Account struct {
	ID            int64           `json:"account_id" db:"account_id"`
	AccountNumber string          `json:"account_number" db:"account_number"`
	CustomerID    int64           `json:"customer_id" db:"customer_id"`
	AccountType   AccountType     `json:"account_type" db:"account_type"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	PinHash       string          `json:"-" db:"pin_hash"`
	Status        AccountStatus   `json:"status" db:"status"`
	Version       int64           `json:"-" db:"version"` // for optimistic locking
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the account accepts balance mutations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
