package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/corebank/backend/internal/middleware"
	"github.com/corebank/backend/internal/services"
)

// SessionHandler issues and revokes bearer tokens. A session is created
// by verifying the account PIN through AccessGuard; the token's session
// id is kept in a Redis allow-list so logout takes effect immediately.
type SessionHandler struct {
	guard     *services.AccessGuard
	redis     *redis.Client
	validator *services.ValidationHelper
}

func NewSessionHandler(guard *services.AccessGuard, redisClient *redis.Client) *SessionHandler {
	return &SessionHandler{
		guard:     guard,
		redis:     redisClient,
		validator: services.NewValidationHelper(),
	}
}

// CreateSession verifies the PIN and returns a bearer token for the
// account.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string `json:"account_number" validate:"required"`
		Pin           string `json:"pin" validate:"required,pin"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	valid, err := h.guard.VerifyPin(r.Context(), req.AccountNumber, req.Pin)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !valid {
		services.SendErrorResponse(w, "Incorrect PIN", http.StatusUnauthorized, nil)
		return
	}

	sessionID := uuid.NewString()
	expiry := sessionExpiry()
	token, err := generateSessionToken(req.AccountNumber, sessionID, expiry)
	if err != nil {
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	if h.redis != nil {
		key := fmt.Sprintf("session:%s", sessionID)
		if err := h.redis.Set(r.Context(), key, req.AccountNumber, expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to store session: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// DeleteSession revokes the bearer token's session.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") && h.redis != nil {
		if _, sessionID, err := middleware.ParseSession(strings.TrimPrefix(authHeader, "Bearer ")); err == nil {
			key := fmt.Sprintf("session:%s", sessionID)
			if err := h.redis.Del(r.Context(), key).Err(); err != nil {
				log.Printf("[AUTH] Failed to revoke session: %v", err)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func sessionExpiry() time.Duration {
	viper.SetDefault("jwt.expiry_hours", 24)
	return time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
}

func generateSessionToken(accountNumber, sessionID string, expiry time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_number": accountNumber,
		"jti":            sessionID,
		"exp":            time.Now().Add(expiry).Unix(),
	})
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}
