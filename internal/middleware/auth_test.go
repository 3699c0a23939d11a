package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(viper.GetString("jwt.secret_key")))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	defer viper.Set("jwt.secret_key", "")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		number, ok := AccountNumber(r.Context())
		require.True(t, ok)
		w.Write([]byte(number))
	})

	t.Run("valid token with live session passes through", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		InitAuthMiddleware(client)
		defer InitAuthMiddleware(nil)

		token := signTestToken(t, jwt.MapClaims{
			"account_number": "ACC001",
			"jti":            "session-1",
			"exp":            time.Now().Add(time.Hour).Unix(),
		})
		mock.ExpectExists("session:session-1").SetVal(1)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ACC001", rec.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revoked session rejected", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		InitAuthMiddleware(client)
		defer InitAuthMiddleware(nil)

		token := signTestToken(t, jwt.MapClaims{
			"account_number": "ACC001",
			"jti":            "session-2",
			"exp":            time.Now().Add(time.Hour).Unix(),
		})
		mock.ExpectExists("session:session-2").SetVal(0)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Session expired")
	})

	t.Run("without redis a valid token is enough", func(t *testing.T) {
		InitAuthMiddleware(nil)

		token := signTestToken(t, jwt.MapClaims{
			"account_number": "ACC001",
			"jti":            "session-3",
			"exp":            time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		InitAuthMiddleware(nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Authorization header required")
	})

	t.Run("malformed header", func(t *testing.T) {
		InitAuthMiddleware(nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		InitAuthMiddleware(nil)

		token := signTestToken(t, jwt.MapClaims{
			"account_number": "ACC001",
			"jti":            "session-4",
			"exp":            time.Now().Add(-time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another key rejected", func(t *testing.T) {
		InitAuthMiddleware(nil)

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"account_number": "ACC001",
			"jti":            "session-5",
			"exp":            time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("another-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
