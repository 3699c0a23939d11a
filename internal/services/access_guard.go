package services

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/corebank/backend/internal/store"
)

// AccessGuard verifies and rotates account PINs. PINs are stored as
// salted argon2id hashes, never cleartext. The ledger engine does not
// call the guard itself: interactive callers verify the PIN before
// invoking Withdraw or Transfer, and that layering is intentional.
type AccessGuard struct {
	accounts store.AccountStore
}

func NewAccessGuard(accounts store.AccountStore) *AccessGuard {
	return &AccessGuard{accounts: accounts}
}

// VerifyPin reports whether pin matches the account's stored PIN. No
// lockout or throttling is applied.
func (g *AccessGuard) VerifyPin(ctx context.Context, accountNumber, pin string) (bool, error) {
	hash, err := g.accounts.PinHash(ctx, accountNumber)
	if errors.Is(err, store.ErrNotFound) {
		return false, &NotFoundError{AccountNumber: accountNumber}
	}
	if err != nil {
		return false, &PersistenceError{Op: "fetching pin", Err: err}
	}
	return verifyPinHash(pin, hash), nil
}

// ChangePin rotates the account's PIN after verifying the current one.
// The new PIN must be exactly 4 decimal digits.
func (g *AccessGuard) ChangePin(ctx context.Context, accountNumber, currentPin, newPin string) (bool, error) {
	if !pinPattern.MatchString(newPin) {
		return false, newValidationError("PIN must be exactly 4 digits")
	}

	account, err := g.accounts.GetByNumber(ctx, accountNumber)
	if errors.Is(err, store.ErrNotFound) {
		return false, &NotFoundError{AccountNumber: accountNumber}
	}
	if err != nil {
		return false, &PersistenceError{Op: "fetching account", Err: err}
	}

	ok, err := g.VerifyPin(ctx, accountNumber, currentPin)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, &AuthError{Message: "current PIN is incorrect"}
	}

	hash, err := hashPin(newPin)
	if err != nil {
		return false, &PersistenceError{Op: "hashing pin", Err: err}
	}
	if err := g.accounts.UpdatePin(ctx, account.ID, hash); err != nil {
		return false, &PersistenceError{Op: "updating pin", Err: err}
	}
	return true, nil
}

func argon2Defaults() {
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
}

func hashPin(pin string) (string, error) {
	argon2Defaults()
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(pin), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPinHash(pin, hashedPin string) bool {
	argon2Defaults()
	parts := strings.Split(hashedPin, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(pin), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computed)
}
