// Package store defines the persistence capabilities consumed by the
// services layer. Implementations live in subpackages (currently
// Postgres only).
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/backend/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
// Callers translate it into their own not-found types.
var ErrNotFound = errors.New("record not found")

// ErrStaleVersion is returned when a versioned update matched no row,
// meaning the record changed (or vanished) since it was read.
var ErrStaleVersion = errors.New("record version is stale")

// AccountStore persists account records. Methods taking a *sql.Tx
// participate in a caller-owned transaction so that multi-row units of
// work (most importantly transfers) commit or roll back as one.
type AccountStore interface {
	// Create inserts the account inside tx and returns it with the
	// store-assigned id and timestamps filled in.
	Create(ctx context.Context, tx *sql.Tx, account *models.Account) (*models.Account, error)

	GetByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	ListAll(ctx context.Context) ([]models.Account, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.Account, error)

	// GetForUpdate re-reads the account inside tx with a row lock so the
	// freshest committed balance is used for the read-modify-write.
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error)

	// UpdateBalance writes a new balance inside tx, guarded by the
	// version read under the row lock. ErrStaleVersion when no row matched.
	UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal, version int64) error

	UpdatePin(ctx context.Context, id int64, pinHash string) error
	PinHash(ctx context.Context, accountNumber string) (string, error)

	// NextAccountNumber reserves a fresh unique account number
	// (ACC-prefixed, zero-padded). Safe under concurrent creation.
	NextAccountNumber(ctx context.Context) (string, error)
}

// LedgerStore appends and queries immutable transaction records. There
// is deliberately no update or delete: the ledger is append-only.
type LedgerStore interface {
	// Append inserts the entry inside tx (every append belongs to the
	// unit of work that mutated a balance) and returns it with the
	// store-assigned id and timestamp.
	Append(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry) (*models.LedgerEntry, error)

	// ListByAccount returns entries touching the account, newest first.
	ListByAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error)
	ListAll(ctx context.Context) ([]models.LedgerEntry, error)
	ListByType(ctx context.Context, t models.TransactionType) ([]models.LedgerEntry, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.LedgerEntry, error)
	ListRecent(ctx context.Context, limit int) ([]models.LedgerEntry, error)
}

// CustomerStore persists customer records.
type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	ListAll(ctx context.Context) ([]models.Customer, error)
	SearchByName(ctx context.Context, name string) ([]models.Customer, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
