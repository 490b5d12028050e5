package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRADEBOOK_DB_URL", "postgres://localhost/tradebook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.DB.StatementTimeout)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Idempotency.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Idempotency.CleanupInterval)
	assert.Equal(t, 10*1024, cfg.Audit.CompressThreshold)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRADEBOOK_DB_URL", "postgres://db/tradebook")
	t.Setenv("TRADEBOOK_DB_STATEMENT_TIMEOUT", "5s")
	t.Setenv("TRADEBOOK_SERVER_ENVIRONMENT", "production")
	t.Setenv("TRADEBOOK_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("TRADEBOOK_RATELIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.DB.StatementTimeout)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_MissingDBURL(t *testing.T) {
	t.Setenv("TRADEBOOK_DB_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRADEBOOK_DB_URL")
}

func TestValidate_PoolBounds(t *testing.T) {
	cfg := &Config{DB: DBConfig{URL: "x", MinConns: 10, MaxConns: 2}}
	assert.Error(t, cfg.Validate())
}
