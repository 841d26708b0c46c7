package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

const marketTTL = 5 * time.Minute

// MarketCache implements domain.MarketCache using Redis hashes with JSON-
// serialized Market data and a secondary mint-to-market index.
//
// Key schema:
//
//	market:{addr}           - hash with field "data" containing JSON
//	market:mint:{mintAddr}  - string value of the market address
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client. A zero ttl
// falls back to the default of 5 minutes.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = marketTTL
	}
	return &MarketCache{rdb: c.Underlying(), ttl: ttl}
}

func marketKey(addr domain.ID) string     { return "market:" + addr.Hex() }
func marketMintKey(mint domain.ID) string { return "market:mint:" + mint.Hex() }

// Set stores a Market in the cache. It also creates mint-to-market index
// entries for the market's yes and no mints so holders can be resolved back
// to their market without a database round trip.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.Address, err)
	}

	key := marketKey(market.Address)

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, mc.ttl)
	pipe.Set(ctx, marketMintKey(market.YesMint), market.Address.Hex(), mc.ttl)
	pipe.Set(ctx, marketMintKey(market.NoMint), market.Address.Hex(), mc.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.Address, err)
	}
	return nil
}

// Get retrieves a Market by its derived address from the cache.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, addr domain.ID) (domain.Market, error) {
	data, err := mc.rdb.HGet(ctx, marketKey(addr), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", addr, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", addr, err)
	}
	return market, nil
}

// GetByMint looks up a Market by one of its share mint addresses.
// It returns domain.ErrNotFound if the mint mapping or market does not exist.
func (mc *MarketCache) GetByMint(ctx context.Context, mint domain.ID) (domain.Market, error) {
	raw, err := mc.rdb.Get(ctx, marketMintKey(mint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market by mint %s: %w", mint, err)
	}

	addr, err := domain.ParseID(raw)
	if err != nil {
		return domain.Market{}, fmt.Errorf("redis: parse market address %q: %w", raw, err)
	}
	return mc.Get(ctx, addr)
}

// Invalidate removes a Market and its mint index entries from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, addr domain.ID) error {
	// Read the market first so the reverse index entries can be cleaned up.
	market, err := mc.Get(ctx, addr)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("redis: invalidate market %s: %w", addr, err)
	}

	pipe := mc.rdb.TxPipeline()
	pipe.Del(ctx, marketKey(addr))

	if err == nil {
		pipe.Del(ctx, marketMintKey(market.YesMint))
		pipe.Del(ctx, marketMintKey(market.NoMint))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", addr, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
