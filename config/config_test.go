package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SESSION_DIR", "/tmp/stackit-test")

	cfg := LoadConfig()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, AuthModeSimulated, cfg.Auth.Mode)
	assert.Equal(t, time.Second, cfg.Auth.Delay)
	assert.Equal(t, SessionBackendFile, cfg.Session.Backend)
	assert.Equal(t, "stackit_user", cfg.Session.Key)
	assert.Equal(t, MQBackendNone, cfg.MQ.Backend)
	assert.False(t, cfg.SeedDemo)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("AUTH_MODE", "Verified")
	t.Setenv("AUTH_DELAY", "250ms")
	t.Setenv("HELP_TYPING_DELAY", "not-a-duration")
	t.Setenv("SESSION_BACKEND", "POSTGRES")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("DB_PORT", "6543")

	cfg := LoadConfig()
	assert.Equal(t, AuthModeVerified, cfg.Auth.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.Auth.Delay)
	assert.Equal(t, time.Second, cfg.Help.TypingDelay, "invalid durations fall back to the default")
	assert.Equal(t, SessionBackendPostgres, cfg.Session.Backend)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, 6543, cfg.Database.Port)
}
