package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "serve", cfg.Mode)
	assert.False(t, cfg.Ledger.AllowResume)
	assert.Equal(t, 10*time.Second, cfg.Redis.LockTTL.Duration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	assert.ErrorContains(t, cfg.Validate(), "unknown mode")

	cfg = Defaults()
	cfg.LogLevel = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "unknown log_level")

	cfg = Defaults()
	cfg.Postgres.Host = ""
	assert.ErrorContains(t, cfg.Validate(), "postgres")

	// A DSN substitutes for host/port/database.
	cfg = Defaults()
	cfg.Postgres.Host = ""
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/wordmarket"
	assert.NoError(t, cfg.Validate())

	cfg = Defaults()
	cfg.Server.Port = 99999
	assert.ErrorContains(t, cfg.Validate(), "port")

	cfg = Defaults()
	cfg.Redis.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "redis")

	// Redis is not required outside serve mode.
	cfg = Defaults()
	cfg.Mode = "audit"
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate())

	// Archive mode requires object storage settings.
	cfg = Defaults()
	cfg.Mode = "archive"
	cfg.S3.Bucket = ""
	assert.ErrorContains(t, cfg.Validate(), "s3")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "audit"
log_level = "debug"

[ledger]
allow_resume = true

[redis]
lock_ttl = "30s"

[archive]
enabled = true
retention_days = 30
cron = "0 3 1 * *"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "audit", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Ledger.AllowResume)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL.Duration)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, 30, cfg.Archive.RetentionDays)
	assert.Equal(t, "0 3 1 * *", cfg.Archive.Cron)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORDMARKET_MODE", "archive")
	t.Setenv("WORDMARKET_POSTGRES_PASSWORD", "sekrit")
	t.Setenv("WORDMARKET_LEDGER_ALLOW_RESUME", "true")
	t.Setenv("WORDMARKET_REDIS_CACHE_TTL", "2m")
	t.Setenv("WORDMARKET_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "archive", cfg.Mode)
	assert.Equal(t, "sekrit", cfg.Postgres.Password)
	assert.True(t, cfg.Ledger.AllowResume)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-secret"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Server.APIKey)

	// The original is untouched.
	assert.Equal(t, "pg-secret", cfg.Postgres.Password)
}
