package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

const escrowTTL = 1 * time.Minute

// EscrowCache implements domain.EscrowCache using Redis hashes. Each escrow
// is stored at key "escrow:{owner}" with fields for balance, locked, bump,
// and the created/updated timestamps (Unix nanoseconds). Balances go stale
// quickly, so the TTL is short.
type EscrowCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewEscrowCache creates an EscrowCache backed by the given Client. A zero
// ttl falls back to the default of 1 minute.
func NewEscrowCache(c *Client, ttl time.Duration) *EscrowCache {
	if ttl <= 0 {
		ttl = escrowTTL
	}
	return &EscrowCache{rdb: c.Underlying(), ttl: ttl}
}

func escrowKey(owner domain.ID) string {
	return "escrow:" + owner.Hex()
}

// Set stores an escrow snapshot keyed by owner.
func (ec *EscrowCache) Set(ctx context.Context, e domain.UserEscrow) error {
	key := escrowKey(e.Owner)
	fields := map[string]interface{}{
		"balance":    strconv.FormatUint(e.Balance, 10),
		"locked":     strconv.FormatUint(e.Locked, 10),
		"bump":       strconv.Itoa(int(e.Bump)),
		"created_at": strconv.FormatInt(e.CreatedAt.UnixNano(), 10),
		"updated_at": strconv.FormatInt(e.UpdatedAt.UnixNano(), 10),
	}

	pipe := ec.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ec.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set escrow %s: %w", e.Owner, err)
	}
	return nil
}

// Get retrieves an escrow snapshot by owner. The address and bump are
// re-derived from the owner rather than stored.
// It returns domain.ErrNotFound when the key does not exist.
func (ec *EscrowCache) Get(ctx context.Context, owner domain.ID) (domain.UserEscrow, error) {
	vals, err := ec.rdb.HGetAll(ctx, escrowKey(owner)).Result()
	if err != nil {
		return domain.UserEscrow{}, fmt.Errorf("redis: get escrow %s: %w", owner, err)
	}
	if len(vals) == 0 {
		return domain.UserEscrow{}, domain.ErrNotFound
	}

	e := domain.UserEscrow{Owner: owner}
	e.Address, e.Bump = domain.EscrowAddress(owner)

	if e.Balance, err = parseUint(vals, "balance"); err != nil {
		return domain.UserEscrow{}, fmt.Errorf("redis: escrow %s: %w", owner, err)
	}
	if e.Locked, err = parseUint(vals, "locked"); err != nil {
		return domain.UserEscrow{}, fmt.Errorf("redis: escrow %s: %w", owner, err)
	}

	createdNano, err := parseInt(vals, "created_at")
	if err != nil {
		return domain.UserEscrow{}, fmt.Errorf("redis: escrow %s: %w", owner, err)
	}
	updatedNano, err := parseInt(vals, "updated_at")
	if err != nil {
		return domain.UserEscrow{}, fmt.Errorf("redis: escrow %s: %w", owner, err)
	}
	e.CreatedAt = time.Unix(0, createdNano)
	e.UpdatedAt = time.Unix(0, updatedNano)

	return e, nil
}

// Invalidate removes a cached escrow snapshot.
func (ec *EscrowCache) Invalidate(ctx context.Context, owner domain.ID) error {
	if err := ec.rdb.Del(ctx, escrowKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate escrow %s: %w", owner, err)
	}
	return nil
}

func parseUint(vals map[string]string, field string) (uint64, error) {
	s, ok := vals[field]
	if !ok {
		return 0, fmt.Errorf("missing field %s", field)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return v, nil
}

func parseInt(vals map[string]string, field string) (int64, error) {
	s, ok := vals[field]
	if !ok {
		return 0, fmt.Errorf("missing field %s", field)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return v, nil
}

// Compile-time interface check.
var _ domain.EscrowCache = (*EscrowCache)(nil)
