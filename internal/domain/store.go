package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// EscrowStore persists user escrow records.
type EscrowStore interface {
	Upsert(ctx context.Context, e UserEscrow) error
	GetByAddress(ctx context.Context, addr ID) (UserEscrow, error)
	GetByOwner(ctx context.Context, owner ID) (UserEscrow, error)
	List(ctx context.Context, opts ListOpts) ([]UserEscrow, error)
}

// MarketStore persists market records.
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	GetByAddress(ctx context.Context, addr ID) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	ListByStatus(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// HoldingStore persists per-user share mint balances.
type HoldingStore interface {
	Upsert(ctx context.Context, h Holding) error
	Get(ctx context.Context, mint, owner ID) (Holding, error)
	ListByOwner(ctx context.Context, owner ID) ([]Holding, error)
	ListByMint(ctx context.Context, mint ID) ([]Holding, error)
}

// SettlementStore persists the append-only settlement journal.
type SettlementStore interface {
	Insert(ctx context.Context, s Settlement) error
	ListByMarket(ctx context.Context, market ID, opts ListOpts) ([]Settlement, error)
	ListBefore(ctx context.Context, before time.Time) ([]Settlement, error)
}

// ClaimStore persists the append-only claim journal.
type ClaimStore interface {
	Insert(ctx context.Context, c Claim) error
	ListByMarket(ctx context.Context, market ID, opts ListOpts) ([]Claim, error)
	ListBefore(ctx context.Context, before time.Time) ([]Claim, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// EscrowCache caches escrow balances for the read path.
type EscrowCache interface {
	Set(ctx context.Context, e UserEscrow) error
	Get(ctx context.Context, owner ID) (UserEscrow, error)
	Invalidate(ctx context.Context, owner ID) error
}

// MarketCache caches market records for the read path.
type MarketCache interface {
	Set(ctx context.Context, m Market) error
	Get(ctx context.Context, addr ID) (Market, error)
	Invalidate(ctx context.Context, addr ID) error
}

// LockManager provides distributed mutual exclusion, used to serialize
// settlements and claims per market across service instances.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when the
	// lock is held by another party.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter enforces a sliding-window request budget per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus is the pub/sub fabric carrying ledger events to subscribers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobInfo describes an archived object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobReader retrieves and enumerates archived objects.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver exports ledger journals and checkpoints to blob storage.
type Archiver interface {
	ArchiveSettlements(ctx context.Context, before time.Time) (string, int, error)
	ArchiveClaims(ctx context.Context, before time.Time) (string, int, error)
	ArchiveCheckpoint(ctx context.Context) (string, error)
}
