package accounts

import "context"

// Store defines the persistence interface for users.
//
// Uniqueness of username and email is the store's responsibility: CreateUser
// and UpdateUser must be atomic with respect to the uniqueness check, so two
// concurrent creates with the same username resolve to exactly one success
// and one ErrDuplicateUsername.
type Store interface {
	// CreateUser persists a new user. Returns ErrDuplicateUsername or
	// ErrDuplicateEmail on collision.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID returns the user with the given id, or ErrNotFound
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername returns the user with the given normalized username,
	// or ErrNotFound
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByEmail returns the user with the given normalized email,
	// or ErrNotFound
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateUser persists changed profile fields. Returns ErrNotFound when
	// the user no longer exists, or a duplicate error on collision with
	// another user's username/email.
	UpdateUser(ctx context.Context, user *User) error
}
