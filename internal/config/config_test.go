package config

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/orbit")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "postgres://localhost/orbit", cfg.DBDSN)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 300, cfg.RateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/orbit")
	t.Setenv("ADDR", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "50")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 50, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "placeholder")
	require.NoError(t, os.Unsetenv("DB_DSN"))

	_, err := Load(context.Background())
	assert.Error(t, err)
}
