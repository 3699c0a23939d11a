package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/backend/internal/models"
	"github.com/corebank/backend/internal/store"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// LedgerEngine is the sole authority for operations that change an
// account balance. Every mutation writes the new balance and appends
// the matching ledger entry inside one database transaction, so the two
// can never diverge. PIN verification is deliberately not performed
// here; interactive callers go through AccessGuard first.
type LedgerEngine struct {
	db       *sql.DB
	accounts store.AccountStore
	ledger   store.LedgerStore
}

func NewLedgerEngine(db *sql.DB, accounts store.AccountStore, ledger store.LedgerStore) *LedgerEngine {
	return &LedgerEngine{
		db:       db,
		accounts: accounts,
		ledger:   ledger,
	}
}

// TransferResult carries both updated account snapshots of a completed
// transfer.
type TransferResult struct {
	FromAccount *models.Account `json:"from_account"`
	ToAccount   *models.Account `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
}

// OpenAccount creates an account with the given opening balance and
// PIN. A positive opening balance produces an OPENING_BALANCE ledger
// entry; a zero balance produces none. The account number is reserved
// atomically from the store.
func (e *LedgerEngine) OpenAccount(ctx context.Context, customerID int64, accountType models.AccountType, initialBalance decimal.Decimal, pin string) (*models.Account, error) {
	if customerID <= 0 {
		return nil, newValidationError("customer id is required")
	}
	if !accountType.Valid() {
		return nil, newValidationError("unknown account type %q", accountType)
	}
	if initialBalance.IsNegative() {
		return nil, newValidationError("initial balance must be non-negative")
	}
	if !pinPattern.MatchString(pin) {
		return nil, newValidationError("PIN must be exactly 4 digits")
	}

	pinHash, err := hashPin(pin)
	if err != nil {
		return nil, &PersistenceError{Op: "hashing pin", Err: err}
	}

	number, err := e.accounts.NextAccountNumber(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "generating account number", Err: err}
	}

	account := &models.Account{
		AccountNumber: number,
		CustomerID:    customerID,
		AccountType:   accountType,
		Balance:       initialBalance,
		PinHash:       pinHash,
		Status:        models.AccountStatusActive,
	}

	err = e.withTx(ctx, nil, "opening account", func(tx *sql.Tx) error {
		created, err := e.accounts.Create(ctx, tx, account)
		if err != nil {
			return err
		}
		account = created
		if initialBalance.IsPositive() {
			description := fmt.Sprintf("Initial deposit for %s account",
				strings.ToLower(string(accountType)))
			entry := models.NewOpeningBalanceEntry(created.ID, initialBalance, description)
			if _, err := e.ledger.Append(ctx, tx, &entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Deposit adds amount to the account's balance and appends a DEPOSIT
// entry. The balance used is re-read under a row lock, so concurrent
// deposits serialize instead of losing updates.
func (e *LedgerEngine) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Account, error) {
	if !amount.IsPositive() {
		return nil, newValidationError("deposit amount must be positive")
	}
	account, err := e.requireActive(ctx, accountNumber, "")
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = "Cash deposit"
	}

	var updated *models.Account
	err = e.withTx(ctx, nil, "deposit", func(tx *sql.Tx) error {
		locked, err := e.accounts.GetForUpdate(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if !locked.IsActive() {
			return &InactiveAccountError{AccountNumber: accountNumber}
		}
		newBalance := locked.Balance.Add(amount)
		if err := e.accounts.UpdateBalance(ctx, tx, locked.ID, newBalance, locked.Version); err != nil {
			return err
		}
		entry := models.NewDepositEntry(locked.ID, amount, description)
		if _, err := e.ledger.Append(ctx, tx, &entry); err != nil {
			return err
		}
		updated = snapshot(locked, newBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Withdraw subtracts amount from the account's balance and appends a
// WITHDRAWAL entry. Insufficient funds is reported (with the available
// balance), never partially honored.
func (e *LedgerEngine) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, description string) (*models.Account, error) {
	if !amount.IsPositive() {
		return nil, newValidationError("withdrawal amount must be positive")
	}
	account, err := e.requireActive(ctx, accountNumber, "")
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = "Cash withdrawal"
	}

	var updated *models.Account
	err = e.withTx(ctx, nil, "withdrawal", func(tx *sql.Tx) error {
		locked, err := e.accounts.GetForUpdate(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if !locked.IsActive() {
			return &InactiveAccountError{AccountNumber: accountNumber}
		}
		if locked.Balance.LessThan(amount) {
			return &InsufficientFundsError{
				AccountNumber: accountNumber,
				Requested:     amount,
				Available:     locked.Balance,
			}
		}
		newBalance := locked.Balance.Sub(amount)
		if err := e.accounts.UpdateBalance(ctx, tx, locked.ID, newBalance, locked.Version); err != nil {
			return err
		}
		entry := models.NewWithdrawalEntry(locked.ID, amount, description)
		if _, err := e.ledger.Append(ctx, tx, &entry); err != nil {
			return err
		}
		updated = snapshot(locked, newBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Transfer debits the source, credits the destination and appends one
// TRANSFER entry referencing both, as a single serializable
// transaction. The two rows are locked in ascending account-id order so
// transfers crossing in opposite directions cannot deadlock.
func (e *LedgerEngine) Transfer(ctx context.Context, fromAccountNumber, toAccountNumber string, amount decimal.Decimal, description string) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, newValidationError("transfer amount must be positive")
	}
	if fromAccountNumber == toAccountNumber {
		return nil, &SameAccountError{AccountNumber: fromAccountNumber}
	}

	from, err := e.requireActive(ctx, fromAccountNumber, "source")
	if err != nil {
		return nil, err
	}
	to, err := e.requireActive(ctx, toAccountNumber, "destination")
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("Transfer from %s to %s", fromAccountNumber, toAccountNumber)
	}

	var result *TransferResult
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	err = e.withTx(ctx, opts, "transfer", func(tx *sql.Tx) error {
		// Lock both rows in ascending id order, then sort out which
		// locked row is the source.
		firstID, secondID := from.ID, to.ID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		first, err := e.accounts.GetForUpdate(ctx, tx, firstID)
		if err != nil {
			return err
		}
		second, err := e.accounts.GetForUpdate(ctx, tx, secondID)
		if err != nil {
			return err
		}
		lockedFrom, lockedTo := first, second
		if first.ID != from.ID {
			lockedFrom, lockedTo = second, first
		}

		if !lockedFrom.IsActive() {
			return &InactiveAccountError{AccountNumber: fromAccountNumber, Role: "source"}
		}
		if !lockedTo.IsActive() {
			return &InactiveAccountError{AccountNumber: toAccountNumber, Role: "destination"}
		}
		if lockedFrom.Balance.LessThan(amount) {
			return &InsufficientFundsError{
				AccountNumber: fromAccountNumber,
				Requested:     amount,
				Available:     lockedFrom.Balance,
			}
		}

		fromBalance := lockedFrom.Balance.Sub(amount)
		toBalance := lockedTo.Balance.Add(amount)
		if err := e.accounts.UpdateBalance(ctx, tx, lockedFrom.ID, fromBalance, lockedFrom.Version); err != nil {
			return err
		}
		if err := e.accounts.UpdateBalance(ctx, tx, lockedTo.ID, toBalance, lockedTo.Version); err != nil {
			return err
		}
		entry := models.NewTransferEntry(lockedFrom.ID, lockedTo.ID, amount, description)
		if _, err := e.ledger.Append(ctx, tx, &entry); err != nil {
			return err
		}
		result = &TransferResult{
			FromAccount: snapshot(lockedFrom, fromBalance),
			ToAccount:   snapshot(lockedTo, toBalance),
			Amount:      amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetBalance returns the account's current balance.
func (e *LedgerEngine) GetBalance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	account, err := e.GetAccountDetails(ctx, accountNumber)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return account.Balance, nil
}

// GetAccountDetails returns the account snapshot for the given number.
func (e *LedgerEngine) GetAccountDetails(ctx context.Context, accountNumber string) (*models.Account, error) {
	account, err := e.accounts.GetByNumber(ctx, accountNumber)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{AccountNumber: accountNumber}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "fetching account", Err: err}
	}
	return account, nil
}

// GetHistory returns the ledger entries touching the account, newest
// first. An account with no entries yields an empty slice, not an error.
func (e *LedgerEngine) GetHistory(ctx context.Context, accountNumber string) ([]models.LedgerEntry, error) {
	account, err := e.GetAccountDetails(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	entries, err := e.ledger.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "fetching history", Err: err}
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return entries, nil
}

// ListAccounts returns every account known to the store.
func (e *LedgerEngine) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := e.accounts.ListAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "listing accounts", Err: err}
	}
	return accounts, nil
}

// ListAccountsByCustomer returns the customer's accounts.
func (e *LedgerEngine) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]models.Account, error) {
	accounts, err := e.accounts.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, &PersistenceError{Op: "listing customer accounts", Err: err}
	}
	return accounts, nil
}

// ListTransactions returns all ledger entries, newest first.
func (e *LedgerEngine) ListTransactions(ctx context.Context) ([]models.LedgerEntry, error) {
	entries, err := e.ledger.ListAll(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "listing transactions", Err: err}
	}
	return entries, nil
}

// ListTransactionsByType returns ledger entries of one type, newest first.
func (e *LedgerEngine) ListTransactionsByType(ctx context.Context, t models.TransactionType) ([]models.LedgerEntry, error) {
	if !t.Valid() {
		return nil, newValidationError("unknown transaction type %q", t)
	}
	entries, err := e.ledger.ListByType(ctx, t)
	if err != nil {
		return nil, &PersistenceError{Op: "listing transactions", Err: err}
	}
	return entries, nil
}

// ListTransactionsByDateRange returns ledger entries between from and
// to inclusive, newest first.
func (e *LedgerEngine) ListTransactionsByDateRange(ctx context.Context, from, to time.Time) ([]models.LedgerEntry, error) {
	if to.Before(from) {
		return nil, newValidationError("date range end precedes start")
	}
	entries, err := e.ledger.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, &PersistenceError{Op: "listing transactions", Err: err}
	}
	return entries, nil
}

// ListRecentTransactions returns the newest limit entries.
func (e *LedgerEngine) ListRecentTransactions(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		return nil, newValidationError("limit must be positive")
	}
	entries, err := e.ledger.ListRecent(ctx, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "listing transactions", Err: err}
	}
	return entries, nil
}

// requireActive resolves an account number and checks its status before
// any transaction is opened. Status is re-checked under the row lock;
// this pre-check exists to fail fast with the right role in the error.
func (e *LedgerEngine) requireActive(ctx context.Context, accountNumber, role string) (*models.Account, error) {
	account, err := e.accounts.GetByNumber(ctx, accountNumber)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{AccountNumber: accountNumber, Role: role}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "fetching account", Err: err}
	}
	if !account.IsActive() {
		return nil, &InactiveAccountError{AccountNumber: accountNumber, Role: role}
	}
	return account, nil
}

// withTx runs fn inside a transaction. Domain errors pass through
// untouched; anything else is wrapped as a PersistenceError. The
// deferred rollback undoes every partial write when fn or the commit fails.
func (e *LedgerEngine) withTx(ctx context.Context, opts *sql.TxOptions, op string, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, opts)
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if isDomainError(err) {
			return err
		}
		return &PersistenceError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

func isDomainError(err error) bool {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		inactive     *InactiveAccountError
		insufficient *InsufficientFundsError
		sameAccount  *SameAccountError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &notFound) ||
		errors.As(err, &inactive) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &sameAccount)
}

func snapshot(locked *models.Account, newBalance decimal.Decimal) *models.Account {
	updated := *locked
	updated.Balance = newBalance
	updated.Version = locked.Version + 1
	updated.UpdatedAt = time.Now()
	return &updated
}
