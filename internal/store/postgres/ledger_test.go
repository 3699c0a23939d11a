package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/backend/internal/models"
)

var ledgerCols = []string{"transaction_id", "transaction_type", "from_account_id",
	"to_account_id", "amount", "description", "transaction_date"}

func TestLedgerStore_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and defaults the date", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs("TRANSFER", int64(1), int64(2), "100.00",
				"Transfer from ACC001 to ACC002", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}).AddRow(int64(7)))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)

		entry := models.NewTransferEntry(1, 2, decimal.RequireFromString("100.00"),
			"Transfer from ACC001 to ACC002")
		appended, err := NewLedgerStore(db).Append(ctx, tx, &entry)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		assert.Equal(t, int64(7), appended.ID)
		assert.False(t, appended.TransactionDate.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed entry never reaches the database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		tx, err := db.Begin()
		require.NoError(t, err)

		from := int64(1)
		entry := models.LedgerEntry{
			Type:          models.TransactionTypeDeposit,
			FromAccountID: &from,
			Amount:        decimal.RequireFromString("10"),
		}
		_, err = NewLedgerStore(db).Append(ctx, tx, &entry)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerStore_ListByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("FROM transactions\\s+WHERE from_account_id = \\$1 OR to_account_id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(ledgerCols).
			AddRow(int64(3), "WITHDRAWAL", int64(1), nil, "250.50", "Cash withdrawal", now).
			AddRow(int64(2), "TRANSFER", int64(1), int64(2), "100.00", "Transfer from ACC001 to ACC002", now.Add(-time.Hour)).
			AddRow(int64(1), "DEPOSIT", nil, int64(1), "1000.00", "Cash deposit", now.Add(-2*time.Hour)))

	entries, err := NewLedgerStore(db).ListByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	withdrawal := entries[0]
	assert.Equal(t, models.TransactionTypeWithdrawal, withdrawal.Type)
	require.NotNil(t, withdrawal.FromAccountID)
	assert.Equal(t, int64(1), *withdrawal.FromAccountID)
	assert.Nil(t, withdrawal.ToAccountID)

	deposit := entries[2]
	assert.Equal(t, models.TransactionTypeDeposit, deposit.Type)
	assert.Nil(t, deposit.FromAccountID)
	require.NotNil(t, deposit.ToAccountID)
	assert.True(t, deposit.Amount.Equal(decimal.RequireFromString("1000.00")))
}

func TestLedgerStore_ListByType(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("WHERE transaction_type = \\$1").
		WithArgs("DEPOSIT").
		WillReturnRows(sqlmock.NewRows(ledgerCols).
			AddRow(int64(1), "DEPOSIT", nil, int64(1), "1000.00", "Cash deposit", time.Now()))

	entries, err := NewLedgerStore(db).ListByType(context.Background(), models.TransactionTypeDeposit)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TransactionTypeDeposit, entries[0].Type)
}

func TestLedgerStore_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("ORDER BY transaction_date DESC, transaction_id DESC LIMIT \\$1").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(ledgerCols).
			AddRow(int64(9), "DEPOSIT", nil, int64(1), "50.00", "Cash deposit", time.Now()))

	entries, err := NewLedgerStore(db).ListRecent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
