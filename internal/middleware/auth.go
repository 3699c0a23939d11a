package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

// ContextKeyAccountNumber carries the authenticated account number
// through the request context.
const ContextKeyAccountNumber contextKey = "accountNumber"

var sessionRedis *redis.Client

// InitAuthMiddleware wires the Redis session allow-list. A nil client
// degrades to pure JWT validation.
func InitAuthMiddleware(client *redis.Client) {
	sessionRedis = client
}

// AuthMiddleware requires a valid bearer token issued by the session
// endpoint. When Redis is available the token's session id must still
// be present in the allow-list (logout removes it).
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		accountNumber, sessionID, err := validateToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if sessionRedis != nil {
			key := fmt.Sprintf("session:%s", sessionID)
			n, err := sessionRedis.Exists(r.Context(), key).Result()
			if err != nil || n == 0 {
				http.Error(w, "Session expired", http.StatusUnauthorized)
				return
			}
		}

		ctx := context.WithValue(r.Context(), ContextKeyAccountNumber, accountNumber)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountNumber returns the authenticated account number from the
// request context, if set.
func AccountNumber(ctx context.Context) (string, bool) {
	number, ok := ctx.Value(ContextKeyAccountNumber).(string)
	return number, ok && number != ""
}

// ParseSession validates a raw bearer token and returns its account
// number and session id. Used by the logout handler to find the session
// key to revoke.
func ParseSession(tokenString string) (accountNumber, sessionID string, err error) {
	return validateToken(tokenString)
}

func validateToken(tokenString string) (accountNumber, sessionID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid claims")
	}

	accountNumber = fmt.Sprintf("%v", claims["account_number"])
	sessionID = fmt.Sprintf("%v", claims["jti"])
	if accountNumber == "" || accountNumber == "<nil>" {
		return "", "", fmt.Errorf("missing account number claim")
	}
	return accountNumber, sessionID, nil
}
