package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    15 * time.Minute,
	}
}

// Limiter decides whether a keyed request may proceed
type Limiter interface {
	// Allow reports whether the request identified by key may proceed
	Allow(r *http.Request, key string) bool
	// Remaining returns how many requests key has left in the window
	Remaining(r *http.Request, key string) int
	// Config returns the limiter's configuration
	Config() *RateLimitConfig
}

// RateLimiter implements per-key fixed-window rate limiting in process memory
type RateLimiter struct {
	config  *RateLimitConfig
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	started time.Time
}

// NewRateLimiter creates a new in-memory rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		windows: make(map[string]*window),
	}
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(_ *http.Request, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	win, ok := rl.windows[key]
	if !ok || now.Sub(win.started) >= rl.config.WindowDuration {
		win = &window{started: now}
		rl.windows[key] = win
	}

	if win.count >= rl.config.RequestsPerWindow {
		return false
	}
	win.count++
	return true
}

// Remaining returns the number of remaining requests for a key
func (rl *RateLimiter) Remaining(_ *http.Request, key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	win, ok := rl.windows[key]
	if !ok || time.Since(win.started) >= rl.config.WindowDuration {
		return rl.config.RequestsPerWindow
	}
	remaining := rl.config.RequestsPerWindow - win.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Config returns the limiter's configuration
func (rl *RateLimiter) Config() *RateLimitConfig {
	return rl.config
}

// Cleanup removes expired windows. Called periodically from the server loop.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, win := range rl.windows {
		if now.Sub(win.started) >= rl.config.WindowDuration*2 {
			delete(rl.windows, key)
		}
	}
}

// RateLimitMiddleware throttles requests per client IP
type RateLimitMiddleware struct {
	limiter Limiter
}

// NewRateLimitMiddleware creates a new rate limit middleware around any Limiter
func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + getClientIP(r)

		if !m.limiter.Allow(r, key) {
			m.rateLimitExceeded(w)
			return
		}

		cfg := m.limiter.Config()
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", m.limiter.Remaining(r, key)))

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) rateLimitExceeded(w http.ResponseWriter) {
	retryAfter := m.limiter.Config().WindowDuration.Seconds()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + fmt.Sprintf("%.0f", retryAfter) + `}`))
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}
