package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword rejects bootstrap passwords too short to hash.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

const minPasswordLength = 8

// HashPassword hashes an admin password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword reports whether plain matches the stored hash.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
