package accounts

import "errors"

var (
	// ErrNotFound is returned when no user matches the lookup
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when the username is already taken,
	// whether caught by the pre-check or by the storage uniqueness constraint
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateEmail is returned when the email is already registered
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrMissingField is returned when a required field is empty
	ErrMissingField = errors.New("please provide all required fields")

	// ErrInvalidEmail is returned when the email fails the shape check
	ErrInvalidEmail = errors.New("email is invalid")

	// ErrAuthenticationFailed is the single undifferentiated login failure.
	// Unknown-user and wrong-password deliberately share it to avoid
	// username enumeration.
	ErrAuthenticationFailed = errors.New("authentication failed: username or password doesn't match")
)
