package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/backend/internal/services"
	"github.com/corebank/backend/internal/store/postgres"
)

var accountCols = []string{"account_id", "account_number", "customer_id", "account_type",
	"balance", "pin_hash", "status", "version", "created_at", "updated_at"}

func accountRow(id int64, number, balance, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(accountCols).
		AddRow(id, number, int64(1), "SAVINGS", balance, "c2FsdA==$aGFzaA==", status, int64(1), now, now)
}

func newTestRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	accounts := postgres.NewAccountStore(db)
	ledger := postgres.NewLedgerStore(db)
	customers := postgres.NewCustomerStore(db)

	engine := services.NewLedgerEngine(db, accounts, ledger)
	guard := services.NewAccessGuard(accounts)
	customerService := services.NewCustomerService(customers)

	accountHandler := NewAccountHandler(engine, customerService, guard)
	transactionHandler := NewTransactionHandler(engine)
	customerHandler := NewCustomerHandler(customerService)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/customers", customerHandler.CreateCustomer)
		r.Get("/customers", customerHandler.ListCustomers)
		r.Get("/customers/{customerId}", customerHandler.GetCustomer)

		r.Post("/accounts", accountHandler.OpenAccount)
		r.Get("/accounts", accountHandler.ListAccounts)
		r.Get("/accounts/{accountNumber}", accountHandler.GetAccount)
		r.Get("/accounts/{accountNumber}/balance", accountHandler.GetBalance)
		r.Get("/accounts/{accountNumber}/transactions", accountHandler.GetHistory)
		r.Post("/accounts/{accountNumber}/verify-pin", accountHandler.VerifyPin)
		r.Put("/accounts/{accountNumber}/pin", accountHandler.ChangePin)

		r.Post("/transactions/deposit", transactionHandler.Deposit)
		r.Post("/transactions/withdraw", transactionHandler.Withdraw)
		r.Post("/transactions/transfer", transactionHandler.Transfer)
		r.Get("/transactions", transactionHandler.ListTransactions)
		r.Get("/transactions/recent", transactionHandler.RecentTransactions)
	})
	return r, mock, func() { db.Close() }
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTransactionHandler_Deposit(t *testing.T) {
	t.Run("happy path returns the updated account", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE account_number = \\$1").
			WithArgs("ACC001").
			WillReturnRows(accountRow(1, "ACC001", "1000.00", "ACTIVE"))
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(accountRow(1, "ACC001", "1000.00", "ACTIVE"))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs("1250.50", sqlmock.AnyArg(), int64(1), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs("DEPOSIT", nil, int64(1), "250.50", "Cash deposit", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}).AddRow(int64(1)))
		mock.ExpectCommit()

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/deposit",
			`{"account_number":"ACC001","amount":"250.50"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			AccountNumber string `json:"account_number"`
			Balance       string `json:"balance"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ACC001", resp.AccountNumber)
		assert.Equal(t, "1250.50", resp.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad amount fails validation without touching the database", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/deposit",
			`{"account_number":"ACC001","amount":"1,000.00"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Validation failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/deposit",
			`{"account_number":"ACC001","amount":"10","memo":"hi"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid request body")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account maps to 404", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE account_number = \\$1").
			WithArgs("ACC999").
			WillReturnRows(sqlmock.NewRows(accountCols))

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/deposit",
			`{"account_number":"ACC999","amount":"10"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "ACC999")
	})
}

func TestTransactionHandler_Withdraw(t *testing.T) {
	t.Run("insufficient funds maps to 422 with the available balance", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE account_number = \\$1").
			WithArgs("ACC001").
			WillReturnRows(accountRow(1, "ACC001", "0.00", "ACTIVE"))
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(accountRow(1, "ACC001", "0.00", "ACTIVE"))
		mock.ExpectRollback()

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/withdraw",
			`{"account_number":"ACC001","amount":"50.00"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Available: $0.00")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("suspended account maps to 409", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE account_number = \\$1").
			WithArgs("ACC001").
			WillReturnRows(accountRow(1, "ACC001", "100.00", "SUSPENDED"))

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/withdraw",
			`{"account_number":"ACC001","amount":"50.00"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestTransactionHandler_Transfer(t *testing.T) {
	t.Run("same account maps to 400", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/transfer",
			`{"from_account":"ACC001","to_account":"ACC001","amount":"10"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("happy path returns both snapshots", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE account_number = \\$1").
			WithArgs("ACC001").
			WillReturnRows(accountRow(1, "ACC001", "100.00", "ACTIVE"))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE account_number = \\$1").
			WithArgs("ACC002").
			WillReturnRows(accountRow(2, "ACC002", "0.00", "ACTIVE"))
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(accountRow(1, "ACC001", "100.00", "ACTIVE"))
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(int64(2)).
			WillReturnRows(accountRow(2, "ACC002", "0.00", "ACTIVE"))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs("75.00", sqlmock.AnyArg(), int64(1), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs("25.00", sqlmock.AnyArg(), int64(2), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs("TRANSFER", int64(1), int64(2), "25.00",
				"Transfer from ACC001 to ACC002", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}).AddRow(int64(1)))
		mock.ExpectCommit()

		rec := doJSON(t, router, http.MethodPost, "/api/v1/transactions/transfer",
			`{"from_account":"ACC001","to_account":"ACC002","amount":"25.00"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			FromAccount struct {
				Balance string `json:"balance"`
			} `json:"from_account"`
			ToAccount struct {
				Balance string `json:"balance"`
			} `json:"to_account"`
			Amount string `json:"amount"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "75.00", resp.FromAccount.Balance)
		assert.Equal(t, "25.00", resp.ToAccount.Balance)
		assert.Equal(t, "25.00", resp.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	t.Run("unknown type filter maps to 400", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		rec := doJSON(t, router, http.MethodGet, "/api/v1/transactions?type=REFUND", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty ledger serializes as an empty array", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		mock.ExpectQuery("FROM transactions ORDER BY transaction_date DESC").
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "transaction_type",
				"from_account_id", "to_account_id", "amount", "description", "transaction_date"}))

		rec := doJSON(t, router, http.MethodGet, "/api/v1/transactions", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("malformed date filter maps to 400", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		rec := doJSON(t, router, http.MethodGet, "/api/v1/transactions?from=2026-13-01&to=2026-01-31", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionHandler_RecentTransactions(t *testing.T) {
	t.Run("invalid limit maps to 400", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		rec := doJSON(t, router, http.MethodGet, "/api/v1/transactions/recent?limit=zero", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("defaults to ten entries", func(t *testing.T) {
		router, mock, closeDB := newTestRouter(t)
		defer closeDB()

		mock.ExpectQuery("LIMIT \\$1").
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "transaction_type",
				"from_account_id", "to_account_id", "amount", "description", "transaction_date"}))

		rec := doJSON(t, router, http.MethodGet, "/api/v1/transactions/recent", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
