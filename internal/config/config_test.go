package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:               8080,
			DatabaseURL:        "postgres://localhost/guests",
			RedisURL:           "redis://localhost:6379",
			SessionTokenSecret: "0123456789abcdef0123456789abcdef",
		}
	}

	t.Run("valid development config", func(t *testing.T) {
		cfg := base()
		cfg.SessionTokenSecret = "short"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects non-bcrypt admin password hash", func(t *testing.T) {
		cfg := base()
		cfg.AdminPasswordHash = "plaintext-password"
		err := cfg.Validate(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bcrypt")
	})

	t.Run("accepts bcrypt admin password hash", func(t *testing.T) {
		cfg := base()
		cfg.AdminPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("production requires a long token secret", func(t *testing.T) {
		cfg := base()
		cfg.SessionTokenSecret = "short"
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_TOKEN_SECRET")
	})

	t.Run("production rejects known weak secrets", func(t *testing.T) {
		cfg := base()
		cfg.SessionTokenSecret = "dev-secret-change-me"
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("production accepts a strong secret", func(t *testing.T) {
		assert.NoError(t, base().Validate(true))
	})
}

func TestConfigAccessors(t *testing.T) {
	cfg := &Config{Port: 9090, CleanupIntervalSeconds: 300}
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "5m0s", cfg.CleanupInterval().String())
}
