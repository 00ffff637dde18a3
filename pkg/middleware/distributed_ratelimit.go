package middleware

import (
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/taskvault/taskvault/pkg/observability"
)

// DistributedRateLimiter enforces the request window across instances using Redis
type DistributedRateLimiter struct {
	client *redis.Client
	config *RateLimitConfig
	logger *observability.Logger
}

// NewDistributedRateLimiter creates a Redis-backed rate limiter
func NewDistributedRateLimiter(client *redis.Client, config *RateLimitConfig, logger *observability.Logger) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &DistributedRateLimiter{
		client: client,
		config: config,
		logger: logger,
	}
}

// Allow checks the counter for key in Redis. Redis failures allow the
// request through so a cache outage does not take down the API.
func (d *DistributedRateLimiter) Allow(r *http.Request, key string) bool {
	ctx := r.Context()
	redisKey := "ratelimit:" + key

	pipe := d.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, d.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.WithError(err).Warn("rate limit check failed, allowing request")
		return true
	}

	return incr.Val() <= int64(d.config.RequestsPerWindow)
}

// Remaining returns the remaining request count for key
func (d *DistributedRateLimiter) Remaining(r *http.Request, key string) int {
	ctx := r.Context()
	count, err := d.client.Get(ctx, "ratelimit:"+key).Int()
	if err != nil {
		return d.config.RequestsPerWindow
	}
	remaining := d.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Config returns the limiter's configuration
func (d *DistributedRateLimiter) Config() *RateLimitConfig {
	return d.config
}

// Reset clears the counter for a key
func (d *DistributedRateLimiter) Reset(r *http.Request, key string) error {
	return d.client.Del(r.Context(), "ratelimit:"+key).Err()
}

var _ Limiter = (*DistributedRateLimiter)(nil)
var _ Limiter = (*RateLimiter)(nil)
