package utils

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for new hashes.
const PasswordCost = 12

// bcryptMaxInput is the longest input bcrypt accepts, in bytes.
const bcryptMaxInput = 72

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	Cost int
}

// NewPasswordHasher returns a hasher using PasswordCost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{Cost: PasswordCost}
}

// Hash returns the bcrypt hash of the password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check compares the bcrypt hashed password with its possible plaintext equivalent.
func (h *PasswordHasher) Check(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)) == nil
}

// bcryptInput passes short passwords through unchanged. Longer ones, which a
// few multibyte characters already produce, are reduced to a SHA-256 digest.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
