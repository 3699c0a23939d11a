package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/corebank/backend/internal/models"
)

const ledgerColumns = "transaction_id, transaction_type, from_account_id, to_account_id, amount, description, transaction_date"

// LedgerStore is the Postgres-backed transaction ledger. Entries are
// append-only; there are no update or delete statements in this file on
// purpose.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	var txType string
	var from, to sql.NullInt64
	var description sql.NullString
	err := row.Scan(&e.ID, &txType, &from, &to, &e.Amount, &description, &e.TransactionDate)
	if err != nil {
		return nil, err
	}
	if e.Type, err = models.ParseTransactionType(txType); err != nil {
		return nil, err
	}
	if from.Valid {
		e.FromAccountID = &from.Int64
	}
	if to.Valid {
		e.ToAccountID = &to.Int64
	}
	e.Description = description.String
	return &e, nil
}

func (s *LedgerStore) Append(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry) (*models.LedgerEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if entry.TransactionDate.IsZero() {
		entry.TransactionDate = time.Now()
	}
	var from, to sql.NullInt64
	if entry.FromAccountID != nil {
		from = sql.NullInt64{Int64: *entry.FromAccountID, Valid: true}
	}
	if entry.ToAccountID != nil {
		to = sql.NullInt64{Int64: *entry.ToAccountID, Valid: true}
	}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (transaction_type, from_account_id, to_account_id, amount, description, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING transaction_id`,
		string(entry.Type), from, to, entry.Amount, entry.Description, entry.TransactionDate).
		Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("appending %s entry: %w", entry.Type, err)
	}
	return entry, nil
}

func (s *LedgerStore) listQuery(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *LedgerStore) ListByAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	return s.listQuery(ctx, `
		SELECT `+ledgerColumns+` FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY transaction_date DESC, transaction_id DESC`, accountID)
}

func (s *LedgerStore) ListAll(ctx context.Context) ([]models.LedgerEntry, error) {
	return s.listQuery(ctx,
		"SELECT "+ledgerColumns+" FROM transactions ORDER BY transaction_date DESC, transaction_id DESC")
}

func (s *LedgerStore) ListByType(ctx context.Context, t models.TransactionType) ([]models.LedgerEntry, error) {
	return s.listQuery(ctx, `
		SELECT `+ledgerColumns+` FROM transactions
		WHERE transaction_type = $1
		ORDER BY transaction_date DESC, transaction_id DESC`, string(t))
}

func (s *LedgerStore) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.LedgerEntry, error) {
	return s.listQuery(ctx, `
		SELECT `+ledgerColumns+` FROM transactions
		WHERE transaction_date >= $1 AND transaction_date <= $2
		ORDER BY transaction_date DESC, transaction_id DESC`, from, to)
}

func (s *LedgerStore) ListRecent(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	return s.listQuery(ctx, `
		SELECT `+ledgerColumns+` FROM transactions
		ORDER BY transaction_date DESC, transaction_id DESC LIMIT $1`, limit)
}
