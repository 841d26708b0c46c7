// Package service orchestrates the in-memory ledger engine with the durable
// stores, caches, distributed locks, and the signal bus. The engine is
// authoritative; the service journals every applied operation, keeps the
// read caches warm, and publishes an event per operation.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/wordmarket/internal/domain"
	"github.com/alanyoungcy/wordmarket/internal/ledger"
)

// defaultLockTTL bounds how long a per-market lock can outlive a crashed
// holder when no TTL is configured.
const defaultLockTTL = 10 * time.Second

// StreamAppender mirrors published events onto a durable stream. The Redis
// signal bus satisfies this.
type StreamAppender interface {
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// LedgerService is the write path for every ledger operation and the read
// path for escrow, market, and journal queries.
type LedgerService struct {
	engine *ledger.Engine

	escrows     domain.EscrowStore
	markets     domain.MarketStore
	holdings    domain.HoldingStore
	settlements domain.SettlementStore
	claims      domain.ClaimStore
	audit       domain.AuditStore

	escrowCache domain.EscrowCache
	marketCache domain.MarketCache
	locks       domain.LockManager
	bus         domain.SignalBus
	stream      StreamAppender

	lockTTL time.Duration
	logger  *slog.Logger
}

// NewLedgerService creates a LedgerService with all required dependencies.
func NewLedgerService(
	engine *ledger.Engine,
	escrows domain.EscrowStore,
	markets domain.MarketStore,
	holdings domain.HoldingStore,
	settlements domain.SettlementStore,
	claims domain.ClaimStore,
	audit domain.AuditStore,
	escrowCache domain.EscrowCache,
	marketCache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		engine:      engine,
		escrows:     escrows,
		markets:     markets,
		holdings:    holdings,
		settlements: settlements,
		claims:      claims,
		audit:       audit,
		escrowCache: escrowCache,
		marketCache: marketCache,
		locks:       locks,
		bus:         bus,
		lockTTL:     defaultLockTTL,
		logger:      logger,
	}
}

// WithLockTTL overrides the per-market lock TTL used around settlement and
// claim writes.
func (s *LedgerService) WithLockTTL(ttl time.Duration) *LedgerService {
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// WithStream attaches a durable stream mirror for published events.
func (s *LedgerService) WithStream(stream StreamAppender) *LedgerService {
	s.stream = stream
	return s
}

// Hydrate loads the persisted ledger state into the engine. It must run to
// completion before the service accepts writes.
func (s *LedgerService) Hydrate(ctx context.Context) error {
	markets, err := s.markets.List(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("ledger_service: hydrate markets: %w", err)
	}
	for _, m := range markets {
		if err := s.engine.RestoreMarket(m); err != nil {
			return fmt.Errorf("ledger_service: restore market %s: %w", m.Address, err)
		}
	}

	escrows, err := s.escrows.List(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("ledger_service: hydrate escrows: %w", err)
	}
	for _, e := range escrows {
		if err := s.engine.RestoreEscrow(e); err != nil {
			return fmt.Errorf("ledger_service: restore escrow %s: %w", e.Address, err)
		}
	}

	var nHoldings int
	for _, m := range markets {
		for _, mint := range []domain.ID{m.YesMint, m.NoMint} {
			hs, err := s.holdings.ListByMint(ctx, mint)
			if err != nil {
				return fmt.Errorf("ledger_service: hydrate holdings for mint %s: %w", mint, err)
			}
			for _, h := range hs {
				if err := s.engine.RestoreHolding(h); err != nil {
					return fmt.Errorf("ledger_service: restore holding %s/%s: %w", h.Mint, h.Owner, err)
				}
			}
			nHoldings += len(hs)
		}
	}

	if _, err := s.engine.CheckAll(); err != nil {
		return fmt.Errorf("ledger_service: hydrated state: %w", err)
	}

	s.logger.Info("ledger hydrated",
		"markets", len(markets),
		"escrows", len(escrows),
		"holdings", nHoldings,
	)
	return nil
}

// ---------------------------------------------------------------------------
// Escrow operations
// ---------------------------------------------------------------------------

// Deposit credits the owner's escrow balance.
func (s *LedgerService) Deposit(ctx context.Context, owner domain.ID, amount uint64) (domain.UserEscrow, error) {
	esc, err := s.engine.Deposit(owner, amount)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	if err := s.persistEscrow(ctx, esc); err != nil {
		return esc, err
	}
	s.publish(ctx, domain.ChannelEscrow, domain.LedgerEvent{
		Type: domain.EventDeposited, User: owner, Amount: amount, At: esc.UpdatedAt,
	})
	s.auditLog(ctx, "escrow.deposit", map[string]any{
		"owner": owner.Hex(), "amount": amount,
	})
	return esc, nil
}

// Withdraw debits the caller's unlocked balance and returns the payout.
func (s *LedgerService) Withdraw(ctx context.Context, caller domain.ID, amount uint64) (domain.UserEscrow, ledger.Payout, error) {
	esc, payout, err := s.engine.Withdraw(caller, amount)
	if err != nil {
		return domain.UserEscrow{}, ledger.Payout{}, err
	}
	if err := s.persistEscrow(ctx, esc); err != nil {
		return esc, payout, err
	}
	s.publish(ctx, domain.ChannelEscrow, domain.LedgerEvent{
		Type: domain.EventWithdrawn, User: caller, Amount: amount, At: esc.UpdatedAt,
	})
	s.auditLog(ctx, "escrow.withdraw", map[string]any{
		"owner": caller.Hex(), "amount": amount,
	})
	return esc, payout, nil
}

// LockFunds commits part of the owner's balance to open orders.
func (s *LedgerService) LockFunds(ctx context.Context, owner domain.ID, amount uint64) (domain.UserEscrow, error) {
	esc, err := s.engine.LockFunds(owner, amount)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	if err := s.persistEscrow(ctx, esc); err != nil {
		return esc, err
	}
	s.publish(ctx, domain.ChannelEscrow, domain.LedgerEvent{
		Type: domain.EventLocked, User: owner, Amount: amount, At: esc.UpdatedAt,
	})
	return esc, nil
}

// UnlockFunds releases locked funds back to the withdrawable balance.
func (s *LedgerService) UnlockFunds(ctx context.Context, owner domain.ID, amount uint64) (domain.UserEscrow, error) {
	esc, err := s.engine.UnlockFunds(owner, amount)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	if err := s.persistEscrow(ctx, esc); err != nil {
		return esc, err
	}
	s.publish(ctx, domain.ChannelEscrow, domain.LedgerEvent{
		Type: domain.EventUnlocked, User: owner, Amount: amount, At: esc.UpdatedAt,
	})
	return esc, nil
}

// GetEscrow returns the owner's escrow, trying the cache before the engine.
func (s *LedgerService) GetEscrow(ctx context.Context, owner domain.ID) (domain.UserEscrow, error) {
	if esc, err := s.escrowCache.Get(ctx, owner); err == nil {
		return esc, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("escrow cache read failed", "owner", owner, "error", err)
	}

	esc, err := s.engine.Escrow(owner)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	if err := s.escrowCache.Set(ctx, esc); err != nil {
		s.logger.Warn("escrow cache write failed", "owner", owner, "error", err)
	}
	return esc, nil
}

// ---------------------------------------------------------------------------
// Market lifecycle
// ---------------------------------------------------------------------------

// CreateMarket initializes a market with its share mints and vault.
func (s *LedgerService) CreateMarket(ctx context.Context, authority domain.ID, marketID uint64, wordIndex uint16, label string) (domain.Market, error) {
	m, err := s.engine.CreateMarket(authority, marketID, wordIndex, label)
	if err != nil {
		return domain.Market{}, err
	}
	if err := s.persistMarket(ctx, m); err != nil {
		return m, err
	}
	s.publish(ctx, domain.ChannelMarket, domain.LedgerEvent{
		Type: domain.EventMarketCreated, Market: m.Address, User: authority, At: m.CreatedAt,
	})
	s.auditLog(ctx, "market.create", map[string]any{
		"market": m.Address.Hex(), "market_id": marketID, "word_index": wordIndex, "label": label,
	})
	return m, nil
}

// PauseMarket blocks settlements on an active market.
func (s *LedgerService) PauseMarket(ctx context.Context, caller, market domain.ID) (domain.Market, error) {
	m, err := s.engine.PauseMarket(caller, market)
	if err != nil {
		return domain.Market{}, err
	}
	if err := s.persistMarket(ctx, m); err != nil {
		return m, err
	}
	s.publish(ctx, domain.ChannelMarket, domain.LedgerEvent{
		Type: domain.EventMarketPaused, Market: market, User: caller, At: time.Now().UTC(),
	})
	s.auditLog(ctx, "market.pause", map[string]any{"market": market.Hex()})
	return m, nil
}

// ResumeMarket reactivates a paused market where policy allows it.
func (s *LedgerService) ResumeMarket(ctx context.Context, caller, market domain.ID) (domain.Market, error) {
	m, err := s.engine.ResumeMarket(caller, market)
	if err != nil {
		return domain.Market{}, err
	}
	if err := s.persistMarket(ctx, m); err != nil {
		return m, err
	}
	s.publish(ctx, domain.ChannelMarket, domain.LedgerEvent{
		Type: domain.EventMarketResumed, Market: market, User: caller, At: time.Now().UTC(),
	})
	s.auditLog(ctx, "market.resume", map[string]any{"market": market.Hex()})
	return m, nil
}

// ResolveMarket fixes the outcome and opens claims.
func (s *LedgerService) ResolveMarket(ctx context.Context, caller, market domain.ID, outcome domain.Outcome) (domain.Market, error) {
	m, err := s.engine.ResolveMarket(caller, market, outcome)
	if err != nil {
		return domain.Market{}, err
	}
	if err := s.persistMarket(ctx, m); err != nil {
		return m, err
	}
	s.publish(ctx, domain.ChannelMarket, domain.LedgerEvent{
		Type: domain.EventMarketResolved, Market: market, User: caller,
		Outcome: outcome.String(), At: time.Now().UTC(),
	})
	s.auditLog(ctx, "market.resolve", map[string]any{
		"market": market.Hex(), "outcome": outcome.String(),
	})
	return m, nil
}

// GetMarket returns a market, trying the cache before the engine.
func (s *LedgerService) GetMarket(ctx context.Context, addr domain.ID) (domain.Market, error) {
	if m, err := s.marketCache.Get(ctx, addr); err == nil {
		return m, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("market cache read failed", "market", addr, "error", err)
	}

	m, err := s.engine.Market(addr)
	if err != nil {
		return domain.Market{}, err
	}
	if err := s.marketCache.Set(ctx, m); err != nil {
		s.logger.Warn("market cache write failed", "market", addr, "error", err)
	}
	return m, nil
}

// ListMarkets returns every market known to the engine.
func (s *LedgerService) ListMarkets(ctx context.Context) []domain.Market {
	return s.engine.Markets()
}

// ---------------------------------------------------------------------------
// Settlement and claims
// ---------------------------------------------------------------------------

// Settle executes one matched pair against a market under the market's
// distributed lock, then journals the applied settlement.
func (s *LedgerService) Settle(ctx context.Context, market, yesBuyer, noBuyer domain.ID, price, quantity uint64) (domain.Settlement, error) {
	unlock, err := s.locks.Acquire(ctx, "market:"+market.Hex(), s.lockTTL)
	if err != nil {
		return domain.Settlement{}, err
	}
	defer unlock()

	res, err := s.engine.SettleMatch(market, yesBuyer, noBuyer, price, quantity)
	if err != nil {
		return domain.Settlement{}, err
	}
	res.Settlement.ID = uuid.New().String()

	if err := s.settlements.Insert(ctx, res.Settlement); err != nil {
		s.logger.Error("settlement journal write failed", "settlement", res.Settlement.ID, "error", err)
		return res.Settlement, err
	}
	if err := s.persistEscrow(ctx, res.YesEscrow); err != nil {
		return res.Settlement, err
	}
	if err := s.persistEscrow(ctx, res.NoEscrow); err != nil {
		return res.Settlement, err
	}
	if err := s.persistHolding(ctx, res.YesHolding); err != nil {
		return res.Settlement, err
	}
	if err := s.persistHolding(ctx, res.NoHolding); err != nil {
		return res.Settlement, err
	}
	if err := s.persistMarket(ctx, res.Market); err != nil {
		return res.Settlement, err
	}

	s.publish(ctx, domain.ChannelSettlement, domain.LedgerEvent{
		Type: domain.EventSettled, Market: market,
		Amount: res.Settlement.YesCost + res.Settlement.NoCost,
		Quantity: quantity, At: res.Settlement.CreatedAt,
	})
	s.auditLog(ctx, "settlement.apply", map[string]any{
		"settlement": res.Settlement.ID,
		"market":     market.Hex(),
		"yes_buyer":  yesBuyer.Hex(),
		"no_buyer":   noBuyer.Hex(),
		"price":      price,
		"quantity":   quantity,
	})
	return res.Settlement, nil
}

// Claim redeems the caller's entire winning position on a resolved market
// under the market's distributed lock.
func (s *LedgerService) Claim(ctx context.Context, caller, market domain.ID) (domain.Claim, ledger.Payout, error) {
	unlock, err := s.locks.Acquire(ctx, "market:"+market.Hex(), s.lockTTL)
	if err != nil {
		return domain.Claim{}, ledger.Payout{}, err
	}
	defer unlock()

	res, err := s.engine.Claim(caller, market)
	if err != nil {
		return domain.Claim{}, ledger.Payout{}, err
	}
	res.Claim.ID = uuid.New().String()

	if err := s.claims.Insert(ctx, res.Claim); err != nil {
		s.logger.Error("claim journal write failed", "claim", res.Claim.ID, "error", err)
		return res.Claim, res.Payout, err
	}
	if err := s.persistHolding(ctx, res.Holding); err != nil {
		return res.Claim, res.Payout, err
	}
	if err := s.persistMarket(ctx, res.Market); err != nil {
		return res.Claim, res.Payout, err
	}

	s.publish(ctx, domain.ChannelClaim, domain.LedgerEvent{
		Type: domain.EventClaimed, Market: market, User: caller,
		Amount: res.Claim.Payout, Quantity: res.Claim.Shares, At: res.Claim.CreatedAt,
	})
	s.auditLog(ctx, "claim.apply", map[string]any{
		"claim":  res.Claim.ID,
		"market": market.Hex(),
		"user":   caller.Hex(),
		"shares": res.Claim.Shares,
		"payout": res.Claim.Payout,
	})
	return res.Claim, res.Payout, nil
}

// ListSettlements returns the settlement journal for a market.
func (s *LedgerService) ListSettlements(ctx context.Context, market domain.ID, opts domain.ListOpts) ([]domain.Settlement, error) {
	return s.settlements.ListByMarket(ctx, market, opts)
}

// ListClaims returns the claim journal for a market.
func (s *LedgerService) ListClaims(ctx context.Context, market domain.ID, opts domain.ListOpts) ([]domain.Claim, error) {
	return s.claims.ListByMarket(ctx, market, opts)
}

// ListHoldings returns the owner's share positions from the durable store.
func (s *LedgerService) ListHoldings(ctx context.Context, owner domain.ID) ([]domain.Holding, error) {
	return s.holdings.ListByOwner(ctx, owner)
}

// ListAudit returns audit entries.
func (s *LedgerService) ListAudit(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return s.audit.List(ctx, opts)
}

// CheckInvariants runs the full invariant sweep over the engine.
func (s *LedgerService) CheckInvariants(ctx context.Context) ([]ledger.MarketReport, error) {
	reports, err := s.engine.CheckAll()
	if err != nil {
		s.auditLog(ctx, "invariants.violated", map[string]any{"markets": len(reports)})
	}
	return reports, err
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

func (s *LedgerService) persistEscrow(ctx context.Context, esc domain.UserEscrow) error {
	if err := s.escrows.Upsert(ctx, esc); err != nil {
		return fmt.Errorf("ledger_service: persist escrow %s: %w", esc.Address, err)
	}
	if err := s.escrowCache.Set(ctx, esc); err != nil {
		s.logger.Warn("escrow cache write failed", "owner", esc.Owner, "error", err)
	}
	return nil
}

func (s *LedgerService) persistMarket(ctx context.Context, m domain.Market) error {
	if err := s.markets.Upsert(ctx, m); err != nil {
		return fmt.Errorf("ledger_service: persist market %s: %w", m.Address, err)
	}
	if err := s.marketCache.Set(ctx, m); err != nil {
		s.logger.Warn("market cache write failed", "market", m.Address, "error", err)
	}
	return nil
}

func (s *LedgerService) persistHolding(ctx context.Context, h domain.Holding) error {
	if err := s.holdings.Upsert(ctx, h); err != nil {
		return fmt.Errorf("ledger_service: persist holding %s/%s: %w", h.Mint, h.Owner, err)
	}
	return nil
}

// publish sends a ledger event on the bus and mirrors it onto the durable
// stream. Delivery failures are logged, never propagated: the operation has
// already been applied and journaled.
func (s *LedgerService) publish(ctx context.Context, channel string, evt domain.LedgerEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("event marshal failed", "type", evt.Type, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.Warn("event publish failed", "channel", channel, "error", err)
	}
	if s.stream != nil {
		if err := s.stream.StreamAppend(ctx, domain.StreamEvents, payload); err != nil {
			s.logger.Warn("event stream append failed", "error", err)
		}
	}
}

func (s *LedgerService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit log write failed", "event", event, "error", err)
	}
}
