package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeDeposit        TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal     TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer       TransactionType = "TRANSFER"
	TransactionTypeOpeningBalance TransactionType = "OPENING_BALANCE"
)

// ParseTransactionType maps the stored/string form back to a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeTransfer, TransactionTypeOpeningBalance:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

func (t TransactionType) Valid() bool {
	_, err := ParseTransactionType(string(t))
	return err == nil
}

// LedgerEntry is an immutable record of a single balance-affecting
// event. Entries are append-only: once written they are never mutated
// or deleted.
//
// Which account references are set depends on the type:
//
//	DEPOSIT          to only
//	WITHDRAWAL       from only
//	TRANSFER         from and to, and they differ
//	OPENING_BALANCE  to only
//
// Use the New*Entry constructors; they are the only way to produce a
// well-formed combination.
type LedgerEntry struct {
	ID              int64           `json:"transaction_id" db:"transaction_id"`
	Type            TransactionType `json:"transaction_type" db:"transaction_type"`
	FromAccountID   *int64          `json:"from_account_id,omitempty" db:"from_account_id"`
	ToAccountID     *int64          `json:"to_account_id,omitempty" db:"to_account_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Description     string          `json:"description,omitempty" db:"description"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
}

// NewDepositEntry records money entering toAccountID from outside the system.
func NewDepositEntry(toAccountID int64, amount decimal.Decimal, description string) LedgerEntry {
	return LedgerEntry{
		Type:            TransactionTypeDeposit,
		ToAccountID:     &toAccountID,
		Amount:          amount,
		Description:     description,
		TransactionDate: time.Now(),
	}
}

// NewWithdrawalEntry records money leaving fromAccountID.
func NewWithdrawalEntry(fromAccountID int64, amount decimal.Decimal, description string) LedgerEntry {
	return LedgerEntry{
		Type:            TransactionTypeWithdrawal,
		FromAccountID:   &fromAccountID,
		Amount:          amount,
		Description:     description,
		TransactionDate: time.Now(),
	}
}

// NewTransferEntry records a movement between two accounts under a
// single entry.
func NewTransferEntry(fromAccountID, toAccountID int64, amount decimal.Decimal, description string) LedgerEntry {
	return LedgerEntry{
		Type:            TransactionTypeTransfer,
		FromAccountID:   &fromAccountID,
		ToAccountID:     &toAccountID,
		Amount:          amount,
		Description:     description,
		TransactionDate: time.Now(),
	}
}

// NewOpeningBalanceEntry records an account's initial funding.
func NewOpeningBalanceEntry(toAccountID int64, amount decimal.Decimal, description string) LedgerEntry {
	return LedgerEntry{
		Type:            TransactionTypeOpeningBalance,
		ToAccountID:     &toAccountID,
		Amount:          amount,
		Description:     description,
		TransactionDate: time.Now(),
	}
}

// Validate re-checks the shape invariants, mainly for entries
// reconstructed from storage.
func (e *LedgerEntry) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", e.Type)
	}
	if !e.Amount.IsPositive() {
		return errors.New("entry amount must be positive")
	}
	switch e.Type {
	case TransactionTypeDeposit, TransactionTypeOpeningBalance:
		if e.ToAccountID == nil || e.FromAccountID != nil {
			return fmt.Errorf("%s entry must reference exactly one destination account", e.Type)
		}
	case TransactionTypeWithdrawal:
		if e.FromAccountID == nil || e.ToAccountID != nil {
			return errors.New("WITHDRAWAL entry must reference exactly one source account")
		}
	case TransactionTypeTransfer:
		if e.FromAccountID == nil || e.ToAccountID == nil {
			return errors.New("TRANSFER entry must reference both accounts")
		}
		if *e.FromAccountID == *e.ToAccountID {
			return errors.New("TRANSFER entry accounts must differ")
		}
	}
	return nil
}

// Involves reports whether the entry touches the given account.
func (e *LedgerEntry) Involves(accountID int64) bool {
	if e.FromAccountID != nil && *e.FromAccountID == accountID {
		return true
	}
	return e.ToAccountID != nil && *e.ToAccountID == accountID
}
