package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskvault/taskvault/pkg/password"
	"github.com/taskvault/taskvault/pkg/token"
)

// dummyHash is verified against when login hits an unknown username, keeping
// the unknown-user and wrong-password paths close in cost.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Service is the credential authority: it owns registration, login, and
// profile updates against the user store.
type Service struct {
	store    Store
	issuer   *token.Issuer
	tokenTTL time.Duration
}

// NewService creates a new account service. ttl bounds issued session tokens.
func NewService(store Store, issuer *token.Issuer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = token.DefaultTTL
	}
	return &Service{
		store:    store,
		issuer:   issuer,
		tokenTTL: ttl,
	}
}

// Register validates and persists a new account. The password is gated on
// strength before it is hashed; the plaintext never reaches the store.
func (s *Service) Register(ctx context.Context, username, plaintext, email string) (*User, error) {
	username = NormalizeUsername(username)
	email = NormalizeEmail(email)

	if username == "" || plaintext == "" || email == "" {
		return nil, ErrMissingField
	}
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	// Two independent uniqueness pre-checks. The unique indexes remain the
	// authority under concurrency; CreateUser translates a lost race.
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if err := password.Validate(plaintext); err != nil {
		return nil, err
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown-user and
// wrong-password both yield ErrAuthenticationFailed; no other detail leaks.
func (s *Service) Login(ctx context.Context, username, plaintext string) (string, error) {
	username = NormalizeUsername(username)
	if username == "" || plaintext == "" {
		return "", ErrMissingField
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		password.Verify(plaintext, dummyHash)
		return "", ErrAuthenticationFailed
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !password.Verify(plaintext, user.PasswordHash) {
		return "", ErrAuthenticationFailed
	}

	signed, err := s.issuer.Issue(user.ID, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return signed, nil
}

// GetUser returns the profile for the given user id
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// UpdateProfile applies registration-grade validation to a profile change.
// Uniqueness checks exclude the caller's own row, so unchanged values never
// self-conflict. The password is re-gated and re-hashed only when it actually
// changed.
func (s *Service) UpdateProfile(ctx context.Context, userID, username, email, plaintext string) (*User, error) {
	username = NormalizeUsername(username)
	email = NormalizeEmail(email)

	if username == "" || plaintext == "" || email == "" {
		return nil, ErrMissingField
	}
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	current, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if other, err := s.store.GetUserByUsername(ctx, username); err == nil {
		if other.ID != userID {
			return nil, ErrDuplicateUsername
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if other, err := s.store.GetUserByEmail(ctx, email); err == nil {
		if other.ID != userID {
			return nil, ErrDuplicateEmail
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash := current.PasswordHash
	if !password.Verify(plaintext, current.PasswordHash) {
		if err := password.Validate(plaintext); err != nil {
			return nil, err
		}
		hash, err = password.Hash(plaintext)
		if err != nil {
			return nil, err
		}
	}

	updated := &User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    current.CreatedAt,
	}
	if err := s.store.UpdateUser(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}
