package auth

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects inputs longer than 72 bytes.
const maxPasswordBytes = 72

// truncatePassword cuts p to 72 bytes without splitting a UTF-8 sequence.
func truncatePassword(p string) []byte {
	if len(p) <= maxPasswordBytes {
		return []byte(p)
	}
	b := []byte(p[:maxPasswordBytes])
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return b
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func VerifyPassword(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), truncatePassword(password)) == nil
}
