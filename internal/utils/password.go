package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
)

// HashPassword returns the bcrypt hash of plain.  A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.  Passwords longer than 72 bytes
// are rejected rather than silently truncated.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash.  An empty
// or malformed hash never matches.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
