// Package password implements the credential policy: strength estimation,
// the minimum-strength gate, and salted one-way hashing.
//
// Plaintext passwords only ever exist in this package's function arguments;
// everything persisted or returned elsewhere is a bcrypt hash.
package password

import (
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinScore is the lowest acceptable zxcvbn strength score
	MinScore = 3
	bcryptCost = 12
)

// WeakPasswordError reports a password that scored below MinScore
type WeakPasswordError struct {
	Score int
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("password is too weak. Strength: %d/4", e.Score)
}

// Score estimates password strength on the zxcvbn 0..4 scale.
// Pure function: no I/O, deterministic for a given input.
func Score(password string) int {
	return zxcvbn.PasswordStrength(password, nil).Score
}

// Validate rejects passwords scoring below MinScore with a *WeakPasswordError
func Validate(password string) error {
	if score := Score(password); score < MinScore {
		return &WeakPasswordError{Score: score}
	}
	return nil
}

// Hash computes a salted bcrypt hash of the password. Each call generates a
// fresh salt, so two hashes of the same input differ.
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the candidate password matches the stored hash.
// It never reveals why a mismatch occurred.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
