package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/taskvault/pkg/password"
	"github.com/taskvault/taskvault/pkg/token"
)

const strongPassword = "correct-horse-battery-staple"

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	issuer, err := token.NewIssuer([]byte("test-secret"))
	require.NoError(t, err)
	store := NewMemoryStore()
	return NewService(store, issuer, time.Hour), store
}

func TestRegister(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "Alice", strongPassword, "Alice@Example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, strongPassword, user.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		email    string
		wantErr  error
	}{
		{"missing username", "", strongPassword, "a@b.com", ErrMissingField},
		{"missing password", "alice", "", "a@b.com", ErrMissingField},
		{"missing email", "alice", strongPassword, "", ErrMissingField},
		{"whitespace username", "   ", strongPassword, "a@b.com", ErrMissingField},
		{"bad email no at", "alice", strongPassword, "not-an-email", ErrInvalidEmail},
		{"bad email no domain", "alice", strongPassword, "a@b", ErrInvalidEmail},
		{"bad email spaces", "alice", strongPassword, "a b@c.com", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(ctx, tt.username, tt.password, tt.email)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Register(context.Background(), "alice", "password123", "a@b.com")
	require.Error(t, err)

	var weak *password.WeakPasswordError
	assert.ErrorAs(t, err, &weak)
}

func TestRegister_Duplicates(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	_, err = service.Register(ctx, "ALICE", strongPassword, "other@example.com")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = service.Register(ctx, "bob", strongPassword, "Alice@Example.COM")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegister_Concurrent(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Register(ctx, "alice", strongPassword, "alice@example.com")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}

func TestLogin(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	signed, err := service.Login(ctx, "Alice", strongPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)

	userID, err := service.issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID)
}

func TestLogin_Failures(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	// Wrong password and unknown user both collapse into the same error
	_, err = service.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = service.Login(ctx, "nobody", strongPassword)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = service.Login(ctx, "", strongPassword)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = service.Login(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestUpdateProfile(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	updated, err := service.UpdateProfile(ctx, user.ID, "alice2", "alice2@example.com", strongPassword)
	require.NoError(t, err)

	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "alice2@example.com", updated.Email)
	// Unchanged password keeps the original hash
	assert.Equal(t, user.PasswordHash, updated.PasswordHash)
}

func TestUpdateProfile_SameValuesNoConflict(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	_, err = service.UpdateProfile(ctx, user.ID, "alice", "alice@example.com", strongPassword)
	assert.NoError(t, err)
}

func TestUpdateProfile_PasswordChange(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	const newPassword = "qW3#vZ8!pL5&nK2x"
	updated, err := service.UpdateProfile(ctx, user.ID, "alice", "alice@example.com", newPassword)
	require.NoError(t, err)
	assert.NotEqual(t, user.PasswordHash, updated.PasswordHash)

	_, err = service.Login(ctx, "alice", newPassword)
	assert.NoError(t, err)

	_, err = service.Login(ctx, "alice", strongPassword)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestUpdateProfile_WeakNewPassword(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	var weak *password.WeakPasswordError
	_, err = service.UpdateProfile(ctx, user.ID, "alice", "alice@example.com", "12345")
	assert.ErrorAs(t, err, &weak)
}

func TestUpdateProfile_DuplicateTaken(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)
	bob, err := service.Register(ctx, "bob", strongPassword, "bob@example.com")
	require.NoError(t, err)

	_, err = service.UpdateProfile(ctx, bob.ID, "alice", "bob@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = service.UpdateProfile(ctx, bob.ID, "bob", "alice@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.UpdateProfile(context.Background(), "missing-id", "alice", "a@b.com", strongPassword)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUser(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	got, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = service.GetUser(ctx, "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
