// Package accounts owns user identity: registration, login, and profile
// updates, backed by a pluggable user store.
package accounts

import (
	"regexp"
	"strings"
	"time"
)

// User represents a registered account. The password is represented only as
// an irreversible bcrypt hash and is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// emailPattern is the basic local@domain shape check; deliverability is not
// this layer's concern
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// NormalizeUsername lowercases and trims a username for case-insensitive uniqueness
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether the address matches the basic local@domain shape
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
