// Package config loads and validates taskvault's process configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/taskvault/taskvault/pkg/observability"
	"github.com/taskvault/taskvault/pkg/token"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Storage       StorageConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// AuthConfig holds token signing configuration.
// The secret is process-wide and must never be logged.
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	// DatabaseURL is the postgres connection string. When empty the server
	// runs on the in-memory stores (development and tests).
	DatabaseURL string
	MaxConns    int
}

// RedisConfig holds optional redis configuration for distributed rate limiting
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// RateLimitConfig holds request throttling settings
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TASKVAULT_HOST", "0.0.0.0"),
			Port:            getEnv("TASKVAULT_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TASKVAULT_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TASKVAULT_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TASKVAULT_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TASKVAULT_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodyBytes:    getEnvInt64("TASKVAULT_MAX_BODY_BYTES", 1<<20),
			HealthPort:      getEnv("TASKVAULT_HEALTH_PORT", "9090"),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("TASKVAULT_TOKEN_SECRET", ""),
			TokenTTL:    getEnvDuration("TASKVAULT_TOKEN_TTL", token.DefaultTTL),
		},
		Storage: StorageConfig{
			DatabaseURL: getEnv("TASKVAULT_DATABASE_URL", ""),
			MaxConns:    getEnvInt("TASKVAULT_DATABASE_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			URL:      getEnv("TASKVAULT_REDIS_URL", ""),
			Password: getEnv("TASKVAULT_REDIS_PASSWORD", ""),
			DB:       getEnvInt("TASKVAULT_REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("TASKVAULT_RATE_LIMIT_REQUESTS", 100),
			WindowDuration:    getEnvDuration("TASKVAULT_RATE_LIMIT_WINDOW", 15*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("TASKVAULT_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("TASKVAULT_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// The signing secret is a hard startup requirement for the auth subsystem
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("TASKVAULT_TOKEN_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate limit requests per window must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
