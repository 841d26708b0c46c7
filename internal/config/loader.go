package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WORDMARKET_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WORDMARKET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "WORDMARKET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "WORDMARKET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "WORDMARKET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "WORDMARKET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "WORDMARKET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "WORDMARKET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "WORDMARKET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "WORDMARKET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "WORDMARKET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "WORDMARKET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "WORDMARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WORDMARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WORDMARKET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WORDMARKET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WORDMARKET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WORDMARKET_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "WORDMARKET_REDIS_CACHE_TTL")
	setDuration(&cfg.Redis.LockTTL, "WORDMARKET_REDIS_LOCK_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "WORDMARKET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WORDMARKET_S3_REGION")
	setStr(&cfg.S3.Bucket, "WORDMARKET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WORDMARKET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WORDMARKET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WORDMARKET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WORDMARKET_S3_FORCE_PATH_STYLE")

	// ── Ledger ──
	setBool(&cfg.Ledger.AllowResume, "WORDMARKET_LEDGER_ALLOW_RESUME")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "WORDMARKET_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "WORDMARKET_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "WORDMARKET_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.Cron, "WORDMARKET_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "WORDMARKET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WORDMARKET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WORDMARKET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WORDMARKET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "WORDMARKET_SERVER_RATE_LIMIT")

	// ── Top-level ──
	setStr(&cfg.Mode, "WORDMARKET_MODE")
	setStr(&cfg.LogLevel, "WORDMARKET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
