package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPIN = errors.New("invalid pin")

func HashPIN(pin string) (string, error) {
	if len(pin) < 4 {
		return "", ErrInvalidPIN
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPIN reports whether pin matches hash.
func CheckPIN(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// MaskPIN keeps the last digit so audits can tell PINs apart without
// storing them.
func MaskPIN(pin string) string {
	if len(pin) <= 1 {
		return strings.Repeat("*", len(pin))
	}
	return strings.Repeat("*", len(pin)-1) + pin[len(pin)-1:]
}
