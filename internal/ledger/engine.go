// Package ledger implements the core accounting engine for the word market:
// escrow balances, market collateral pools, share mints, and the settlement,
// resolution, and claim operations that move value between them.
//
// The engine is an in-memory, strictly-serialized ledger. Every public
// operation validates all of its preconditions before mutating anything, then
// applies its full effect under one lock, so no caller can ever observe a
// partially-applied operation. Durability is layered on top by the service
// package, which journals applied operations and rehydrates the engine at
// startup.
package ledger

import (
	"sync"
	"time"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// Config carries engine policy knobs.
type Config struct {
	// AllowResume permits the Paused→Active transition. The lifecycle table
	// defines the edge but it is disabled unless an operator opts in.
	AllowResume bool
}

// Payout is currency leaving the system's custody to an external wallet. The
// actual transfer is the surrounding platform's job; the engine guarantees
// the books were debited in the same atomic step that produced the payout.
type Payout struct {
	To     domain.ID
	Amount uint64
}

// SettleResult captures everything a settlement changed, copied out for
// journaling and event publication.
type SettleResult struct {
	Settlement domain.Settlement
	Market     domain.Market
	YesEscrow  domain.UserEscrow
	NoEscrow   domain.UserEscrow
	YesHolding domain.Holding
	NoHolding  domain.Holding
}

// ClaimResult captures everything a claim changed.
type ClaimResult struct {
	Claim   domain.Claim
	Market  domain.Market
	Holding domain.Holding
	Payout  Payout
}

// Engine is the authoritative ledger state. All exported methods are
// goroutine-safe; a single mutex serializes mutations, which also satisfies
// the requirement that two settlements against one market never read a stale
// collateral base.
type Engine struct {
	cfg Config

	mu            sync.RWMutex
	escrows       map[domain.ID]*domain.UserEscrow // keyed by escrow address
	escrowByOwner map[domain.ID]domain.ID
	markets       map[domain.ID]*domain.Market // keyed by market address
	vaults        map[domain.ID]uint64         // vault address -> balance
	shares        *ShareLedger

	now func() time.Time
}

// New creates an empty engine.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:           cfg,
		escrows:       make(map[domain.ID]*domain.UserEscrow),
		escrowByOwner: make(map[domain.ID]domain.ID),
		markets:       make(map[domain.ID]*domain.Market),
		vaults:        make(map[domain.ID]uint64),
		shares:        NewShareLedger(),
		now:           time.Now,
	}
}

// ---------------------------------------------------------------------------
// Escrow operations
// ---------------------------------------------------------------------------

// Deposit credits amount to the owner's escrow balance, creating the escrow
// at its derived address on first use. Funding is assumed to have entered the
// platform's custody as part of the same request.
func (e *Engine) Deposit(owner domain.ID, amount uint64) (domain.UserEscrow, error) {
	if amount == 0 {
		return domain.UserEscrow{}, domain.ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	esc, err := e.escrowForOwner(owner)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	newBalance, err := addU64(esc.Balance, amount)
	if err != nil {
		return domain.UserEscrow{}, err
	}

	esc.Balance = newBalance
	esc.UpdatedAt = e.now()
	return *esc, nil
}

// Withdraw debits amount from the caller's unlocked balance and returns the
// payout to send. The debit and the payout form one atomic step; there is no
// state in which one happened without the other.
func (e *Engine) Withdraw(caller domain.ID, amount uint64) (domain.UserEscrow, Payout, error) {
	if amount == 0 {
		return domain.UserEscrow{}, Payout{}, domain.ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	esc, err := e.lookupEscrow(caller)
	if err != nil {
		return domain.UserEscrow{}, Payout{}, err
	}
	if esc.Owner != caller {
		return domain.UserEscrow{}, Payout{}, domain.ErrNotOwner
	}
	if amount > esc.Balance {
		return domain.UserEscrow{}, Payout{}, domain.ErrInsufficientBalance
	}

	esc.Balance -= amount
	esc.UpdatedAt = e.now()
	return *esc, Payout{To: caller, Amount: amount}, nil
}

// LockFunds commits amount of the owner's unlocked balance to open orders.
// This is the order-matching backend's surface; settlement later consumes
// locked funds only.
func (e *Engine) LockFunds(owner domain.ID, amount uint64) (domain.UserEscrow, error) {
	if amount == 0 {
		return domain.UserEscrow{}, domain.ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	esc, err := e.lookupEscrow(owner)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	if amount > esc.Balance {
		return domain.UserEscrow{}, domain.ErrInsufficientBalance
	}
	newLocked, err := addU64(esc.Locked, amount)
	if err != nil {
		return domain.UserEscrow{}, err
	}

	esc.Balance -= amount
	esc.Locked = newLocked
	esc.UpdatedAt = e.now()
	return *esc, nil
}

// UnlockFunds releases amount of the owner's locked funds back to the
// withdrawable balance, e.g. when an open order is cancelled.
func (e *Engine) UnlockFunds(owner domain.ID, amount uint64) (domain.UserEscrow, error) {
	if amount == 0 {
		return domain.UserEscrow{}, domain.ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	esc, err := e.lookupEscrow(owner)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	if amount > esc.Locked {
		return domain.UserEscrow{}, domain.ErrInsufficientLocked
	}
	newBalance, err := addU64(esc.Balance, amount)
	if err != nil {
		return domain.UserEscrow{}, err
	}

	esc.Locked -= amount
	esc.Balance = newBalance
	esc.UpdatedAt = e.now()
	return *esc, nil
}

// ---------------------------------------------------------------------------
// Market lifecycle
// ---------------------------------------------------------------------------

// CreateMarket initializes a market at its derived address together with its
// YES/NO share mints and an empty collateral vault.
func (e *Engine) CreateMarket(authority domain.ID, marketID uint64, wordIndex uint16, label string) (domain.Market, error) {
	if len(label) > domain.MaxLabelLen {
		return domain.Market{}, domain.ErrLabelTooLong
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	addr, bump := domain.MarketAddress(marketID, wordIndex)
	if _, ok := e.markets[addr]; ok {
		return domain.Market{}, domain.ErrAlreadyExists
	}

	yesMint, _ := domain.YesMintAddress(addr)
	noMint, _ := domain.NoMintAddress(addr)
	vault, vaultBump := domain.VaultAddress(addr)

	if err := e.shares.CreateMint(yesMint); err != nil {
		return domain.Market{}, err
	}
	if err := e.shares.CreateMint(noMint); err != nil {
		return domain.Market{}, err
	}

	m := &domain.Market{
		Address:         addr,
		Authority:       authority,
		MarketID:        marketID,
		WordIndex:       wordIndex,
		Label:           label,
		YesMint:         yesMint,
		NoMint:          noMint,
		Vault:           vault,
		TotalCollateral: 0,
		Status:          domain.StatusActive,
		Outcome:         domain.OutcomeNone,
		Bump:            bump,
		VaultBump:       vaultBump,
		CreatedAt:       e.now(),
	}
	e.markets[addr] = m
	e.vaults[vault] = 0
	return *m, nil
}

// PauseMarket transitions an active market to Paused, blocking settlements.
func (e *Engine) PauseMarket(caller, market domain.ID) (domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[market]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	if m.Authority != caller {
		return domain.Market{}, domain.ErrNotAuthority
	}
	if m.Status != domain.StatusActive || !domain.CanTransition(m.Status, domain.StatusPaused) {
		return domain.Market{}, domain.ErrMarketNotActive
	}

	m.Status = domain.StatusPaused
	return *m, nil
}

// ResumeMarket transitions a paused market back to Active. The edge exists
// in the lifecycle table but is policy-gated.
func (e *Engine) ResumeMarket(caller, market domain.ID) (domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[market]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	if m.Authority != caller {
		return domain.Market{}, domain.ErrNotAuthority
	}
	if !e.cfg.AllowResume {
		return domain.Market{}, domain.ErrResumeDisabled
	}
	if m.Status != domain.StatusPaused || !domain.CanTransition(m.Status, domain.StatusActive) {
		return domain.Market{}, domain.ErrMarketNotPaused
	}

	m.Status = domain.StatusActive
	return *m, nil
}

// ResolveMarket fixes the outcome and moves the market to its terminal
// Resolved state, opening claims.
func (e *Engine) ResolveMarket(caller, market domain.ID, outcome domain.Outcome) (domain.Market, error) {
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		return domain.Market{}, domain.ErrInvalidOutcome
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[market]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	if m.Authority != caller {
		return domain.Market{}, domain.ErrNotAuthority
	}
	if m.Outcome != domain.OutcomeNone || !domain.CanTransition(m.Status, domain.StatusResolved) {
		return domain.Market{}, domain.ErrMarketResolved
	}

	now := e.now()
	m.Status = domain.StatusResolved
	m.Outcome = outcome
	m.ResolvedAt = &now
	return *m, nil
}

// ---------------------------------------------------------------------------
// Settlement
// ---------------------------------------------------------------------------

// SettleMatch executes one matched pair against an active market: both
// buyers' locked funds move into the vault, each side is minted quantity
// share base units, and the market's collateral total grows by exactly
// UnitPrice per whole share. Applied all-or-nothing.
//
// price is what the YES buyer pays per whole share; the NO buyer pays the
// complement. quantity is in share base units (ShareScale per whole share).
func (e *Engine) SettleMatch(market, yesBuyer, noBuyer domain.ID, price, quantity uint64) (SettleResult, error) {
	yesCost, noCost, err := splitCosts(price, quantity)
	if err != nil {
		return SettleResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[market]
	if !ok {
		return SettleResult{}, domain.ErrNotFound
	}
	if m.Status != domain.StatusActive {
		return SettleResult{}, domain.ErrMarketNotActive
	}

	yesEsc, err := e.lookupEscrow(yesBuyer)
	if err != nil {
		return SettleResult{}, err
	}
	noEsc, err := e.lookupEscrow(noBuyer)
	if err != nil {
		return SettleResult{}, err
	}
	if yesCost > yesEsc.Locked {
		return SettleResult{}, domain.ErrInsufficientYesFunds
	}
	if noCost > noEsc.Locked {
		return SettleResult{}, domain.ErrInsufficientNoFunds
	}

	total, err := addU64(yesCost, noCost)
	if err != nil {
		return SettleResult{}, err
	}
	newVault, err := addU64(e.vaults[m.Vault], total)
	if err != nil {
		return SettleResult{}, err
	}
	newCollateral, err := addU64(m.TotalCollateral, total)
	if err != nil {
		return SettleResult{}, err
	}
	// Mint-side overflow would strand collateral already moved, so prove both
	// mints fit before applying anything.
	if _, err := addU64(e.shares.Supply(m.YesMint), quantity); err != nil {
		return SettleResult{}, err
	}
	if _, err := addU64(e.shares.Supply(m.NoMint), quantity); err != nil {
		return SettleResult{}, err
	}
	if _, err := addU64(e.shares.BalanceOf(m.YesMint, yesBuyer), quantity); err != nil {
		return SettleResult{}, err
	}
	if _, err := addU64(e.shares.BalanceOf(m.NoMint, noBuyer), quantity); err != nil {
		return SettleResult{}, err
	}

	// Every precondition holds; apply the full effect.
	now := e.now()
	yesEsc.Locked -= yesCost
	yesEsc.UpdatedAt = now
	noEsc.Locked -= noCost
	noEsc.UpdatedAt = now
	e.vaults[m.Vault] = newVault
	if err := e.shares.Mint(m.YesMint, yesBuyer, quantity); err != nil {
		panic("ledger: yes mint failed after preflight: " + err.Error())
	}
	if err := e.shares.Mint(m.NoMint, noBuyer, quantity); err != nil {
		panic("ledger: no mint failed after preflight: " + err.Error())
	}
	m.TotalCollateral = newCollateral

	return SettleResult{
		Settlement: domain.Settlement{
			Market:    market,
			YesBuyer:  yesBuyer,
			NoBuyer:   noBuyer,
			Price:     price,
			Quantity:  quantity,
			YesCost:   yesCost,
			NoCost:    noCost,
			CreatedAt: now,
		},
		Market:    *m,
		YesEscrow: *yesEsc,
		NoEscrow:  *noEsc,
		YesHolding: domain.Holding{
			Mint: m.YesMint, Owner: yesBuyer,
			Balance: e.shares.BalanceOf(m.YesMint, yesBuyer),
		},
		NoHolding: domain.Holding{
			Mint: m.NoMint, Owner: noBuyer,
			Balance: e.shares.BalanceOf(m.NoMint, noBuyer),
		},
	}, nil
}

// ---------------------------------------------------------------------------
// Claim
// ---------------------------------------------------------------------------

// Claim burns the caller's entire winning-share balance on a resolved market
// and pays the redemption value out of the vault straight to the caller's
// wallet. The escrow is not touched: claim payouts leave custody.
func (e *Engine) Claim(caller, market domain.ID) (ClaimResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[market]
	if !ok {
		return ClaimResult{}, domain.ErrNotFound
	}
	if m.Status != domain.StatusResolved || m.Outcome == domain.OutcomeNone {
		return ClaimResult{}, domain.ErrMarketNotResolved
	}

	winningMint, err := m.WinningMint()
	if err != nil {
		return ClaimResult{}, err
	}
	shares := e.shares.BalanceOf(winningMint, caller)
	if shares == 0 {
		return ClaimResult{}, domain.ErrNothingToClaim
	}

	payout, err := redemptionValue(shares)
	if err != nil {
		return ClaimResult{}, err
	}
	// The solvency invariant makes these impossible on consistent books, but
	// they are checked rather than assumed: a claim must never drive the vault
	// or the collateral total negative.
	if payout > e.vaults[m.Vault] || payout > m.TotalCollateral {
		return ClaimResult{}, domain.ErrInsufficientBalance
	}

	now := e.now()
	if err := e.shares.Burn(winningMint, caller, shares); err != nil {
		return ClaimResult{}, err
	}
	e.vaults[m.Vault] -= payout
	m.TotalCollateral -= payout

	return ClaimResult{
		Claim: domain.Claim{
			Market:    market,
			User:      caller,
			Shares:    shares,
			Payout:    payout,
			CreatedAt: now,
		},
		Market:  *m,
		Holding: domain.Holding{Mint: winningMint, Owner: caller, Balance: 0},
		Payout:  Payout{To: caller, Amount: payout},
	}, nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Escrow returns the owner's escrow record.
func (e *Engine) Escrow(owner domain.ID) (domain.UserEscrow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	esc, err := e.lookupEscrow(owner)
	if err != nil {
		return domain.UserEscrow{}, err
	}
	return *esc, nil
}

// Market returns the market record at the given address.
func (e *Engine) Market(addr domain.ID) (domain.Market, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	m, ok := e.markets[addr]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return *m, nil
}

// Markets returns a copy of every market record.
func (e *Engine) Markets() []domain.Market {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Market, 0, len(e.markets))
	for _, m := range e.markets {
		out = append(out, *m)
	}
	return out
}

// VaultBalance returns the current balance of a vault.
func (e *Engine) VaultBalance(vault domain.ID) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vaults[vault]
}

// ShareBalance returns owner's balance of the given mint in base units.
func (e *Engine) ShareBalance(mint, owner domain.ID) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shares.BalanceOf(mint, owner)
}

// ShareSupply returns the outstanding supply of the given mint.
func (e *Engine) ShareSupply(mint domain.ID) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shares.Supply(mint)
}

// ---------------------------------------------------------------------------
// Hydration and checkpointing
// ---------------------------------------------------------------------------

// RestoreEscrow seeds an escrow record during startup hydration. The record's
// address and bump are re-derived and verified.
func (e *Engine) RestoreEscrow(esc domain.UserEscrow) error {
	addr, bump := domain.EscrowAddress(esc.Owner)
	if addr != esc.Address || bump != esc.Bump {
		return domain.ErrBumpMismatch
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.escrows[addr]; ok {
		return domain.ErrAlreadyExists
	}
	cp := esc
	e.escrows[addr] = &cp
	e.escrowByOwner[esc.Owner] = addr
	return nil
}

// RestoreMarket seeds a market record and its vault during startup hydration.
// The vault balance is the persisted collateral total, per the conservation
// invariant.
func (e *Engine) RestoreMarket(m domain.Market) error {
	addr, bump := domain.MarketAddress(m.MarketID, m.WordIndex)
	if addr != m.Address || bump != m.Bump {
		return domain.ErrBumpMismatch
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.markets[addr]; ok {
		return domain.ErrAlreadyExists
	}
	if err := e.shares.CreateMint(m.YesMint); err != nil {
		return err
	}
	if err := e.shares.CreateMint(m.NoMint); err != nil {
		return err
	}
	cp := m
	e.markets[addr] = &cp
	e.vaults[m.Vault] = m.TotalCollateral
	return nil
}

// RestoreHolding seeds a share balance during startup hydration.
func (e *Engine) RestoreHolding(h domain.Holding) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shares.restore(h.Mint, h.Owner, h.Balance)
}

// Checkpoint is a point-in-time copy of the full ledger state.
type Checkpoint struct {
	Escrows  []domain.UserEscrow
	Markets  []domain.Market
	Holdings []domain.Holding
	At       time.Time
}

// Snapshot copies the full ledger state for archival.
func (e *Engine) Snapshot() Checkpoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp := Checkpoint{At: e.now()}
	for _, esc := range e.escrows {
		cp.Escrows = append(cp.Escrows, *esc)
	}
	for _, m := range e.markets {
		cp.Markets = append(cp.Markets, *m)
		cp.Holdings = append(cp.Holdings, e.shares.Holdings(m.YesMint)...)
		cp.Holdings = append(cp.Holdings, e.shares.Holdings(m.NoMint)...)
	}
	return cp
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

// escrowForOwner returns the owner's escrow, creating it at the derived
// address when it does not exist yet. Callers hold e.mu.
func (e *Engine) escrowForOwner(owner domain.ID) (*domain.UserEscrow, error) {
	if addr, ok := e.escrowByOwner[owner]; ok {
		return e.escrows[addr], nil
	}
	addr, bump := domain.EscrowAddress(owner)
	now := e.now()
	esc := &domain.UserEscrow{
		Address:   addr,
		Owner:     owner,
		Bump:      bump,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.escrows[addr] = esc
	e.escrowByOwner[owner] = addr
	return esc, nil
}

// lookupEscrow returns the owner's escrow or ErrNotFound. Callers hold e.mu.
func (e *Engine) lookupEscrow(owner domain.ID) (*domain.UserEscrow, error) {
	addr, ok := e.escrowByOwner[owner]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.escrows[addr], nil
}
