package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/backend/internal/models"
	"github.com/corebank/backend/internal/store"
)

const accountColumns = "account_id, account_number, customer_id, account_type, balance, pin_hash, status, version, created_at, updated_at"

// AccountStore is the Postgres-backed account store.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var accountType, status string
	err := row.Scan(&a.ID, &a.AccountNumber, &a.CustomerID, &accountType,
		&a.Balance, &a.PinHash, &status, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.AccountType, err = models.ParseAccountType(accountType); err != nil {
		return nil, err
	}
	if a.Status, err = models.ParseAccountStatus(status); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AccountStore) Create(ctx context.Context, tx *sql.Tx, account *models.Account) (*models.Account, error) {
	now := time.Now()
	err := tx.QueryRowContext(ctx, `
		INSERT INTO accounts (account_number, customer_id, account_type, balance, pin_hash, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
		RETURNING account_id`,
		account.AccountNumber, account.CustomerID, string(account.AccountType),
		account.Balance, account.PinHash, string(account.Status), now).
		Scan(&account.ID)
	if err != nil {
		return nil, fmt.Errorf("creating account %s: %w", account.AccountNumber, err)
	}
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now
	return account, nil
}

func (s *AccountStore) GetByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE account_number = $1", accountNumber)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return account, err
}

func (s *AccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE account_id = $1", id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return account, err
}

func (s *AccountStore) listQuery(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (s *AccountStore) ListAll(ctx context.Context) ([]models.Account, error) {
	return s.listQuery(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY account_id")
}

func (s *AccountStore) ListByCustomer(ctx context.Context, customerID int64) ([]models.Account, error) {
	return s.listQuery(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE customer_id = $1 ORDER BY account_id", customerID)
}

// GetForUpdate locks the account row for the remainder of tx. Balance
// decisions must be made against the value it returns, not an earlier read.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE account_id = $1 FOR UPDATE", id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return account, err
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal, version int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = $1, version = version + 1, updated_at = $2
		WHERE account_id = $3 AND version = $4`,
		balance, time.Now(), id, version)
	if err != nil {
		return fmt.Errorf("updating balance for account %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrStaleVersion
	}
	return nil
}

func (s *AccountStore) UpdatePin(ctx context.Context, id int64, pinHash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET pin_hash = $1, updated_at = $2 WHERE account_id = $3",
		pinHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating pin for account %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *AccountStore) PinHash(ctx context.Context, accountNumber string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT pin_hash FROM accounts WHERE account_number = $1", accountNumber).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return hash, err
}

// NextAccountNumber reserves the next value of a dedicated sequence, so
// concurrent account creation can never hand out the same number.
func (s *AccountStore) NextAccountNumber(ctx context.Context) (string, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT nextval('account_number_seq')").Scan(&n); err != nil {
		return "", fmt.Errorf("reserving account number: %w", err)
	}
	return fmt.Sprintf("ACC%03d", n), nil
}
