package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and by the server's
// no-database mode. All methods serialize on a single mutex, which makes the
// check-then-insert for uniqueness atomic.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*User // keyed by id
}

// NewMemoryStore creates an empty in-memory user store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
	}
}

// CreateUser persists a new user, enforcing username/email uniqueness
func (s *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetUserByID returns the user with the given id
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByUsername returns the user with the given normalized username
func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// GetUserByEmail returns the user with the given normalized email
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateUser persists changed profile fields
func (s *MemoryStore) UpdateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}

	for id, other := range s.users {
		if id == user.ID {
			continue
		}
		if other.Username == user.Username {
			return ErrDuplicateUsername
		}
		if other.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()

	stored := *user
	s.users[user.ID] = &stored
	return nil
}
