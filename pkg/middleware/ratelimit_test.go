package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/taskvault/pkg/observability"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	})

	req := httptest.NewRequest("GET", "/", nil)
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(req, "ip:1.2.3.4"), "request %d should pass", i)
	}
	assert.False(t, limiter.Allow(req, "ip:1.2.3.4"))

	// Other keys are unaffected
	assert.True(t, limiter.Allow(req, "ip:5.6.7.8"))
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    50 * time.Millisecond,
	})

	req := httptest.NewRequest("GET", "/", nil)
	assert.True(t, limiter.Allow(req, "ip:1.2.3.4"))
	assert.True(t, limiter.Allow(req, "ip:1.2.3.4"))
	assert.False(t, limiter.Allow(req, "ip:1.2.3.4"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.Allow(req, "ip:1.2.3.4"))
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
	})

	req := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, 3, limiter.Remaining(req, "ip:1.2.3.4"))
	limiter.Allow(req, "ip:1.2.3.4")
	assert.Equal(t, 2, limiter.Remaining(req, "ip:1.2.3.4"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    10 * time.Millisecond,
	})

	req := httptest.NewRequest("GET", "/", nil)
	limiter.Allow(req, "ip:1.2.3.4")
	assert.Len(t, limiter.windows, 1)

	time.Sleep(25 * time.Millisecond)
	limiter.Cleanup()
	assert.Len(t, limiter.windows, 0)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	})
	middleware := NewRateLimitMiddleware(limiter)

	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/tasks", nil)
		req.RemoteAddr = "1.2.3.4:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}

	req := httptest.NewRequest("GET", "/tasks", nil)
	req.RemoteAddr = "1.2.3.4:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddleware_ForwardedFor(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	})
	middleware := NewRateLimitMiddleware(limiter)
	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Same proxy address, distinct clients
	for _, client := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest("GET", "/tasks", nil)
		req.RemoteAddr = "172.16.0.1:80"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDistributedRateLimiter(t *testing.T) {
	client := newTestRedis(t)
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
	}, logger)

	req := httptest.NewRequest("GET", "/", nil)
	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(req, "ip:1.2.3.4"), "request %d should pass", i)
	}
	assert.False(t, limiter.Allow(req, "ip:1.2.3.4"))

	assert.Equal(t, 0, limiter.Remaining(req, "ip:1.2.3.4"))
	assert.True(t, limiter.Allow(req, "ip:5.6.7.8"))
}

func TestDistributedRateLimiter_Reset(t *testing.T) {
	client := newTestRedis(t)
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, logger)

	req := httptest.NewRequest("GET", "/", nil)
	assert.True(t, limiter.Allow(req, "ip:1.2.3.4"))
	assert.False(t, limiter.Allow(req, "ip:1.2.3.4"))

	require.NoError(t, limiter.Reset(req, "ip:1.2.3.4"))
	assert.True(t, limiter.Allow(req, "ip:1.2.3.4"))
}

func TestDistributedRateLimiter_FailOpen(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	server.Close()

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, logger)

	// Redis down: requests pass through rather than failing closed
	req := httptest.NewRequest("GET", "/", nil)
	assert.True(t, limiter.Allow(req, "ip:1.2.3.4"))
	assert.True(t, limiter.Allow(req, "ip:1.2.3.4"))
}
