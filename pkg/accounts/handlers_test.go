package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/taskvault/pkg/contextkeys"
	"github.com/taskvault/taskvault/pkg/token"
)

func newTestHandlers(t *testing.T) (*Handlers, *Service) {
	t.Helper()
	issuer, err := token.NewIssuer([]byte("test-secret"))
	require.NoError(t, err)
	service := NewService(NewMemoryStore(), issuer, time.Hour)
	return NewHandlers(service, nil), service
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	handlers, _ := newTestHandlers(t)
	router := mux.NewRouter()
	handlers.RegisterPublicRoutes(router)

	rec := doJSON(t, router, "POST", "/users/register", map[string]string{
		"username": "alice",
		"password": strongPassword,
		"email":    "alice@example.com",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User registered successfully", resp["message"])
}

func TestRegisterEndpoint_Errors(t *testing.T) {
	handlers, service := newTestHandlers(t)
	router := mux.NewRouter()
	handlers.RegisterPublicRoutes(router)

	_, err := service.Register(context.Background(), "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"missing fields", map[string]string{"username": "bob"}, http.StatusBadRequest},
		{"invalid email", map[string]string{"username": "bob", "password": strongPassword, "email": "nope"}, http.StatusBadRequest},
		{"weak password", map[string]string{"username": "bob", "password": "123456", "email": "bob@example.com"}, http.StatusBadRequest},
		{"duplicate username", map[string]string{"username": "alice", "password": strongPassword, "email": "bob@example.com"}, http.StatusBadRequest},
		{"duplicate email", map[string]string{"username": "bob", "password": strongPassword, "email": "alice@example.com"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, "POST", "/users/register", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRegisterEndpoint_MalformedBody(t *testing.T) {
	handlers, _ := newTestHandlers(t)
	router := mux.NewRouter()
	handlers.RegisterPublicRoutes(router)

	req := httptest.NewRequest("POST", "/users/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	handlers, service := newTestHandlers(t)
	router := mux.NewRouter()
	handlers.RegisterPublicRoutes(router)

	user, err := service.Register(context.Background(), "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	rec := doJSON(t, router, "POST", "/users/login", map[string]string{
		"username": "alice",
		"password": strongPassword,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	userID, err := service.issuer.Verify(resp["token"])
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLoginEndpoint_Unauthorized(t *testing.T) {
	handlers, service := newTestHandlers(t)
	router := mux.NewRouter()
	handlers.RegisterPublicRoutes(router)

	_, err := service.Register(context.Background(), "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	// Unknown user and wrong password produce identical responses
	first := doJSON(t, router, "POST", "/users/login", map[string]string{
		"username": "nobody", "password": strongPassword,
	})
	second := doJSON(t, router, "POST", "/users/login", map[string]string{
		"username": "alice", "password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusUnauthorized, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestMeEndpoint(t *testing.T) {
	handlers, service := newTestHandlers(t)

	user, err := service.Register(context.Background(), "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	router := mux.NewRouter()
	router.Use(fakeAuth(user.ID))
	handlers.RegisterProtectedRoutes(router)

	rec := doJSON(t, router, "GET", "/users/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	// The hash never leaves the server
	assert.NotContains(t, rec.Body.String(), user.PasswordHash)
}

func TestUpdateMeEndpoint(t *testing.T) {
	handlers, service := newTestHandlers(t)

	user, err := service.Register(context.Background(), "alice", strongPassword, "alice@example.com")
	require.NoError(t, err)

	router := mux.NewRouter()
	router.Use(fakeAuth(user.ID))
	handlers.RegisterProtectedRoutes(router)

	rec := doJSON(t, router, "PUT", "/users/me", map[string]string{
		"username": "alice2",
		"password": strongPassword,
		"email":    "alice2@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := service.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, "alice2@example.com", got.Email)
}

func fakeAuth(userID string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(contextkeys.WithUserID(r.Context(), userID)))
		})
	}
}
