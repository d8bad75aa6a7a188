package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordMode selects how account passwords are stored and compared.
type PasswordMode string

const (
	// PasswordPlain stores the password as given and compares by equality.
	// Kept for compatibility with existing account data; not safe for real use.
	PasswordPlain  PasswordMode = "plain"
	PasswordBcrypt PasswordMode = "bcrypt"
)

func ParsePasswordMode(s string) PasswordMode {
	if strings.EqualFold(strings.TrimSpace(s), string(PasswordBcrypt)) {
		return PasswordBcrypt
	}
	return PasswordPlain
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// StorePassword returns the value to persist for password under mode.
func (m PasswordMode) StorePassword(password string) (string, error) {
	if m == PasswordBcrypt {
		return HashPassword(password)
	}
	return password, nil
}

// Matches reports whether password matches the stored value under mode.
func (m PasswordMode) Matches(stored, password string) bool {
	if m == PasswordBcrypt {
		return CheckPassword(stored, password) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
