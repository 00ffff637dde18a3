package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/taskvault/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TASKVAULT_TOKEN_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.WindowDuration)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.Empty(t, cfg.Storage.DatabaseURL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("TASKVAULT_TOKEN_SECRET", "test-secret")
	t.Setenv("TASKVAULT_PORT", "3000")
	t.Setenv("TASKVAULT_TOKEN_TTL", "1h")
	t.Setenv("TASKVAULT_RATE_LIMIT_REQUESTS", "10")
	t.Setenv("TASKVAULT_LOG_LEVEL", "debug")
	t.Setenv("TASKVAULT_DATABASE_URL", "postgres://localhost/taskvault")
	t.Setenv("TASKVAULT_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, "postgres://localhost/taskvault", cfg.Storage.DatabaseURL)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("TASKVAULT_TOKEN_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TASKVAULT_TOKEN_SECRET")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", HealthPort: "9090"},
			Auth:   AuthConfig{TokenSecret: "secret", TokenTTL: time.Hour},
			RateLimit: RateLimitConfig{
				RequestsPerWindow: 100,
				WindowDuration:    time.Minute,
			},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Server.HealthPort = cfg.Server.Port
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Auth.TokenTTL = -time.Hour
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateLimit.RequestsPerWindow = 0
	assert.Error(t, cfg.Validate())
}
