package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/wordmarket/internal/blob/s3"
	"github.com/alanyoungcy/wordmarket/internal/cache/redis"
	"github.com/alanyoungcy/wordmarket/internal/config"
	"github.com/alanyoungcy/wordmarket/internal/domain"
	"github.com/alanyoungcy/wordmarket/internal/ledger"
	"github.com/alanyoungcy/wordmarket/internal/service"
	"github.com/alanyoungcy/wordmarket/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Engine is the authoritative in-memory ledger. It starts empty; modes
	// hydrate it from the stores before accepting work.
	Engine *ledger.Engine

	// Stores
	EscrowStore     domain.EscrowStore
	MarketStore     domain.MarketStore
	HoldingStore    domain.HoldingStore
	SettlementStore domain.SettlementStore
	ClaimStore      domain.ClaimStore
	AuditStore      domain.AuditStore

	// Caches and coordination (serve mode only; nil otherwise)
	EscrowCache domain.EscrowCache
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	Stream      service.StreamAppender

	// Blob storage (archive mode or archive.enabled; nil otherwise)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver
}

// needsRedis returns true for modes that require caching, locking, and the
// event bus.
func needsRedis(mode string) bool {
	return mode == "serve"
}

// needsS3 returns true for modes that require object storage.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "archive" || cfg.Archive.Enabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Engine: ledger.New(ledger.Config{AllowResume: cfg.Ledger.AllowResume}),
	}

	// --- PostgreSQL (system of record, every mode) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.EscrowStore = postgres.NewEscrowStore(pool)
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.HoldingStore = postgres.NewHoldingStore(pool)
	deps.SettlementStore = postgres.NewSettlementStore(pool)
	deps.ClaimStore = postgres.NewClaimStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis (only for modes that serve traffic) ---
	if needsRedis(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		cacheTTL := cfg.Redis.CacheTTL.Duration
		deps.EscrowCache = redis.NewEscrowCache(redisClient, cacheTTL)
		deps.MarketCache = redis.NewMarketCache(redisClient, cacheTTL)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)

		bus := redis.NewSignalBus(redisClient)
		deps.SignalBus = bus
		deps.Stream = bus
	}

	// --- S3 blob storage (only when archival is in play) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.SettlementStore,
			deps.ClaimStore,
			deps.Engine,
			deps.AuditStore,
		)
	}

	return deps, cleanup, nil
}

// buildLedgerService assembles the orchestration service over the wired
// dependencies. Cache, lock, and bus fields may be nil in audit and archive
// modes; those modes only hydrate and read.
func (a *App) buildLedgerService(deps *Dependencies) *service.LedgerService {
	svc := service.NewLedgerService(
		deps.Engine,
		deps.EscrowStore,
		deps.MarketStore,
		deps.HoldingStore,
		deps.SettlementStore,
		deps.ClaimStore,
		deps.AuditStore,
		deps.EscrowCache,
		deps.MarketCache,
		deps.LockManager,
		deps.SignalBus,
		a.logger,
	)
	if ttl := a.cfg.Redis.LockTTL.Duration; ttl > 0 {
		svc = svc.WithLockTTL(ttl)
	}
	if deps.Stream != nil {
		svc = svc.WithStream(deps.Stream)
	}
	return svc
}

// hydrate loads persisted state into the engine and logs how long it took.
func (a *App) hydrate(ctx context.Context, svc *service.LedgerService) error {
	start := time.Now()
	if err := svc.Hydrate(ctx); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "ledger state hydrated",
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
