package utils

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret returns the bcrypt hash of a shared secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret accepts candidate when it equals plain or matches the bcrypt hash.
// Empty configuration never matches.
func CheckSecret(plain, hash, candidate string) bool {
	if candidate == "" {
		return false
	}
	if hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil {
		return true
	}
	if plain != "" && subtle.ConstantTimeCompare([]byte(plain), []byte(candidate)) == 1 {
		return true
	}
	return false
}
