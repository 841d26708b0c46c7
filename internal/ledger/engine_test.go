package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

func testID(b byte) domain.ID {
	var id domain.ID
	id[0] = b
	return id
}

var (
	authority = testID(0xA0)
	alice     = testID(0x01)
	bob       = testID(0x02)
	carol     = testID(0x03)
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Config{})
}

func TestDepositAndWithdraw(t *testing.T) {
	e := newTestEngine(t)

	esc, err := e.Deposit(alice, 10*domain.UnitPrice)
	require.NoError(t, err)
	assert.Equal(t, 10*domain.UnitPrice, esc.Balance)
	assert.Equal(t, alice, esc.Owner)

	// The escrow lives at its derived address with the derived bump.
	wantAddr, wantBump := domain.EscrowAddress(alice)
	assert.Equal(t, wantAddr, esc.Address)
	assert.Equal(t, wantBump, esc.Bump)

	esc, payout, err := e.Withdraw(alice, 3*domain.UnitPrice)
	require.NoError(t, err)
	assert.Equal(t, 7*domain.UnitPrice, esc.Balance)
	assert.Equal(t, alice, payout.To)
	assert.Equal(t, 3*domain.UnitPrice, payout.Amount)

	_, _, err = e.Withdraw(alice, 8*domain.UnitPrice)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, _, err = e.Withdraw(bob, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.Deposit(alice, 0)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)
}

func TestLockAndUnlockFunds(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Deposit(alice, 5*domain.UnitPrice)
	require.NoError(t, err)

	esc, err := e.LockFunds(alice, 2*domain.UnitPrice)
	require.NoError(t, err)
	assert.Equal(t, 3*domain.UnitPrice, esc.Balance)
	assert.Equal(t, 2*domain.UnitPrice, esc.Locked)

	// Locked funds are not withdrawable.
	_, _, err = e.Withdraw(alice, 4*domain.UnitPrice)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = e.LockFunds(alice, 4*domain.UnitPrice)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = e.UnlockFunds(alice, 3*domain.UnitPrice)
	assert.ErrorIs(t, err, domain.ErrInsufficientLocked)

	esc, err = e.UnlockFunds(alice, 2*domain.UnitPrice)
	require.NoError(t, err)
	assert.Equal(t, 5*domain.UnitPrice, esc.Balance)
	assert.Zero(t, esc.Locked)
}

func TestCreateMarket(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 42, 7, "alpha")
	require.NoError(t, err)

	wantAddr, wantBump := domain.MarketAddress(42, 7)
	assert.Equal(t, wantAddr, m.Address)
	assert.Equal(t, wantBump, m.Bump)
	assert.Equal(t, domain.StatusActive, m.Status)
	assert.Equal(t, domain.OutcomeNone, m.Outcome)
	assert.Zero(t, m.TotalCollateral)

	yesMint, _ := domain.YesMintAddress(m.Address)
	noMint, _ := domain.NoMintAddress(m.Address)
	vault, vaultBump := domain.VaultAddress(m.Address)
	assert.Equal(t, yesMint, m.YesMint)
	assert.Equal(t, noMint, m.NoMint)
	assert.Equal(t, vault, m.Vault)
	assert.Equal(t, vaultBump, m.VaultBump)

	// Same seeds resolve to the same record; a second create collides.
	_, err = e.CreateMarket(authority, 42, 7, "alpha again")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = e.CreateMarket(authority, 42, 8, "this label is far longer than the thirty-two character cap")
	assert.ErrorIs(t, err, domain.ErrLabelTooLong)
}

func TestMarketLifecycle(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 1, 0, "word")
	require.NoError(t, err)

	// Only the authority can drive the lifecycle.
	_, err = e.PauseMarket(alice, m.Address)
	assert.ErrorIs(t, err, domain.ErrNotAuthority)

	m, err = e.PauseMarket(authority, m.Address)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, m.Status)

	_, err = e.PauseMarket(authority, m.Address)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)

	// Resume exists in the lifecycle but is policy-gated off by default.
	_, err = e.ResumeMarket(authority, m.Address)
	assert.ErrorIs(t, err, domain.ErrResumeDisabled)

	// A paused market can still resolve.
	m, err = e.ResolveMarket(authority, m.Address, domain.OutcomeNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, m.Status)
	assert.Equal(t, domain.OutcomeNo, m.Outcome)
	require.NotNil(t, m.ResolvedAt)

	// Resolved is terminal.
	_, err = e.ResolveMarket(authority, m.Address, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrMarketResolved)
	_, err = e.PauseMarket(authority, m.Address)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestResumeMarketWhenAllowed(t *testing.T) {
	e := New(Config{AllowResume: true})

	m, err := e.CreateMarket(authority, 1, 0, "word")
	require.NoError(t, err)
	_, err = e.PauseMarket(authority, m.Address)
	require.NoError(t, err)

	_, err = e.ResumeMarket(alice, m.Address)
	assert.ErrorIs(t, err, domain.ErrNotAuthority)

	m, err = e.ResumeMarket(authority, m.Address)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, m.Status)

	_, err = e.ResumeMarket(authority, m.Address)
	assert.ErrorIs(t, err, domain.ErrMarketNotPaused)
}

func TestResolveMarketValidation(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 1, 0, "word")
	require.NoError(t, err)

	_, err = e.ResolveMarket(authority, m.Address, domain.OutcomeNone)
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	_, err = e.ResolveMarket(alice, m.Address, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrNotAuthority)

	_, err = e.ResolveMarket(authority, testID(0xFF), domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettleMatch(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 9, 3, "crane")
	require.NoError(t, err)

	_, err = e.Deposit(alice, 10*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.Deposit(bob, 10*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(alice, 4*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(bob, 4*domain.UnitPrice)
	require.NoError(t, err)

	// YES at 0.6 for five whole shares: alice pays 3, bob pays 2.
	price := uint64(600_000_000)
	quantity := 5 * domain.ShareScale
	res, err := e.SettleMatch(m.Address, alice, bob, price, quantity)
	require.NoError(t, err)

	assert.Equal(t, 3*domain.UnitPrice, res.Settlement.YesCost)
	assert.Equal(t, 2*domain.UnitPrice, res.Settlement.NoCost)
	assert.Equal(t, quantity, res.Settlement.Quantity)

	// Collateral grew by exactly UnitPrice per whole share, conserved in the vault.
	assert.Equal(t, 5*domain.UnitPrice, res.Market.TotalCollateral)
	assert.Equal(t, 5*domain.UnitPrice, e.VaultBalance(m.Vault))

	// Both sides hold the full quantity; supplies stay symmetric.
	assert.Equal(t, quantity, e.ShareBalance(m.YesMint, alice))
	assert.Equal(t, quantity, e.ShareBalance(m.NoMint, bob))
	assert.Equal(t, quantity, e.ShareSupply(m.YesMint))
	assert.Equal(t, quantity, e.ShareSupply(m.NoMint))

	// Locked funds were consumed, not balances.
	assert.Equal(t, domain.UnitPrice, res.YesEscrow.Locked)
	assert.Equal(t, 6*domain.UnitPrice, res.YesEscrow.Balance)
	assert.Equal(t, 2*domain.UnitPrice, res.NoEscrow.Locked)
	assert.Equal(t, 6*domain.UnitPrice, res.NoEscrow.Balance)

	reports, err := e.CheckAll()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Violations)
}

func TestSettleMatchFailures(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 9, 3, "crane")
	require.NoError(t, err)

	_, err = e.Deposit(alice, 10*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.Deposit(bob, 10*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(alice, 1*domain.UnitPrice)
	require.NoError(t, err)

	price := uint64(600_000_000)
	quantity := 5 * domain.ShareScale

	// YES buyer needs 3 but locked only 1.
	_, err = e.SettleMatch(m.Address, alice, bob, price, quantity)
	assert.ErrorIs(t, err, domain.ErrInsufficientYesFunds)

	_, err = e.LockFunds(alice, 3*domain.UnitPrice)
	require.NoError(t, err)

	// NO buyer locked nothing at all.
	_, err = e.SettleMatch(m.Address, alice, bob, price, quantity)
	assert.ErrorIs(t, err, domain.ErrInsufficientNoFunds)

	_, err = e.LockFunds(bob, 2*domain.UnitPrice)
	require.NoError(t, err)

	// Unknown market and unknown escrow.
	_, err = e.SettleMatch(testID(0xFF), alice, bob, price, quantity)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.SettleMatch(m.Address, alice, carol, price, quantity)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A failed settlement leaves everything untouched.
	esc, err := e.Escrow(alice)
	require.NoError(t, err)
	assert.Equal(t, 4*domain.UnitPrice, esc.Locked)
	assert.Zero(t, e.VaultBalance(m.Vault))
	assert.Zero(t, e.ShareSupply(m.YesMint))

	// Paused markets reject settlement.
	_, err = e.PauseMarket(authority, m.Address)
	require.NoError(t, err)
	_, err = e.SettleMatch(m.Address, alice, bob, price, quantity)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestClaimFlow(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 9, 3, "crane")
	require.NoError(t, err)

	deposit := 10 * domain.UnitPrice
	_, err = e.Deposit(alice, deposit)
	require.NoError(t, err)
	_, err = e.Deposit(bob, deposit)
	require.NoError(t, err)
	_, err = e.LockFunds(alice, 4*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(bob, 4*domain.UnitPrice)
	require.NoError(t, err)

	quantity := 5 * domain.ShareScale
	_, err = e.SettleMatch(m.Address, alice, bob, 600_000_000, quantity)
	require.NoError(t, err)

	// Claims open only after resolution.
	_, err = e.Claim(alice, m.Address)
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)

	_, err = e.ResolveMarket(authority, m.Address, domain.OutcomeYes)
	require.NoError(t, err)

	res, err := e.Claim(alice, m.Address)
	require.NoError(t, err)
	assert.Equal(t, quantity, res.Claim.Shares)
	assert.Equal(t, 5*domain.UnitPrice, res.Claim.Payout)
	assert.Equal(t, alice, res.Payout.To)
	assert.Zero(t, res.Holding.Balance)

	// The winning side was burned and the vault fully drained.
	assert.Zero(t, e.ShareBalance(m.YesMint, alice))
	assert.Zero(t, e.ShareSupply(m.YesMint))
	assert.Zero(t, e.VaultBalance(m.Vault))

	got, err := e.Market(m.Address)
	require.NoError(t, err)
	assert.Zero(t, got.TotalCollateral)

	// Claiming twice, or holding only the losing side, yields nothing.
	_, err = e.Claim(alice, m.Address)
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)
	_, err = e.Claim(bob, m.Address)
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)

	reports, err := e.CheckAll()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Violations)
}

func TestSettleResolveClaimAtFortyPercent(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 12, 4, "quill")
	require.NoError(t, err)

	_, err = e.Deposit(alice, 300*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.Deposit(bob, 400*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(alice, 240*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(bob, 360*domain.UnitPrice)
	require.NoError(t, err)

	// YES at 0.4 for 600 whole shares: alice pays 240, bob pays 360.
	quantity := 600 * domain.ShareScale
	res, err := e.SettleMatch(m.Address, alice, bob, 400_000_000, quantity)
	require.NoError(t, err)
	assert.Equal(t, 240*domain.UnitPrice, res.Settlement.YesCost)
	assert.Equal(t, 360*domain.UnitPrice, res.Settlement.NoCost)
	assert.Equal(t, 600*domain.UnitPrice, e.VaultBalance(m.Vault))

	_, err = e.ResolveMarket(authority, m.Address, domain.OutcomeYes)
	require.NoError(t, err)

	// Alice redeems all 600 shares at full unit price.
	claim, err := e.Claim(alice, m.Address)
	require.NoError(t, err)
	assert.Equal(t, 600*domain.UnitPrice, claim.Claim.Payout)
	assert.Zero(t, e.VaultBalance(m.Vault))

	_, err = e.Claim(bob, m.Address)
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)
}

func TestValueConservationAcrossFullFlow(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 100, 1, "slate")
	require.NoError(t, err)

	deposited := uint64(0)
	for _, user := range []domain.ID{alice, bob} {
		_, err = e.Deposit(user, 20*domain.UnitPrice)
		require.NoError(t, err)
		deposited += 20 * domain.UnitPrice
		_, err = e.LockFunds(user, 15*domain.UnitPrice)
		require.NoError(t, err)
	}

	// Three settlements at different prices.
	for _, s := range []struct {
		price    uint64
		quantity uint64
	}{
		{250_000_000, 4 * domain.ShareScale},
		{500_000_000, 2 * domain.ShareScale},
		{750_000_000, 4 * domain.ShareScale},
	} {
		_, err = e.SettleMatch(m.Address, alice, bob, s.price, s.quantity)
		require.NoError(t, err)
	}

	_, err = e.ResolveMarket(authority, m.Address, domain.OutcomeNo)
	require.NoError(t, err)

	claimRes, err := e.Claim(bob, m.Address)
	require.NoError(t, err)

	// Every unit that entered is either still in an escrow or left as the
	// claim payout. Nothing minted, nothing burned silently.
	aliceEsc, err := e.Escrow(alice)
	require.NoError(t, err)
	bobEsc, err := e.Escrow(bob)
	require.NoError(t, err)

	remaining := aliceEsc.Balance + aliceEsc.Locked + bobEsc.Balance + bobEsc.Locked
	assert.Equal(t, deposited, remaining+claimRes.Claim.Payout)
	assert.Zero(t, e.VaultBalance(m.Vault))

	reports, err := e.CheckAll()
	require.NoError(t, err)
	assert.Empty(t, reports[0].Violations)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	m, err := e.CreateMarket(authority, 5, 2, "query")
	require.NoError(t, err)
	_, err = e.Deposit(alice, 8*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.Deposit(bob, 8*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(alice, 4*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.LockFunds(bob, 4*domain.UnitPrice)
	require.NoError(t, err)
	_, err = e.SettleMatch(m.Address, alice, bob, 500_000_000, 6*domain.ShareScale)
	require.NoError(t, err)

	cp := e.Snapshot()
	require.Len(t, cp.Escrows, 2)
	require.Len(t, cp.Markets, 1)
	require.Len(t, cp.Holdings, 2)

	restored := New(Config{})
	for _, mm := range cp.Markets {
		require.NoError(t, restored.RestoreMarket(mm))
	}
	for _, esc := range cp.Escrows {
		require.NoError(t, restored.RestoreEscrow(esc))
	}
	for _, h := range cp.Holdings {
		require.NoError(t, restored.RestoreHolding(h))
	}

	assert.Equal(t, e.VaultBalance(m.Vault), restored.VaultBalance(m.Vault))
	assert.Equal(t, e.ShareSupply(m.YesMint), restored.ShareSupply(m.YesMint))
	assert.Equal(t, e.ShareBalance(m.NoMint, bob), restored.ShareBalance(m.NoMint, bob))

	origEsc, err := e.Escrow(alice)
	require.NoError(t, err)
	restEsc, err := restored.Escrow(alice)
	require.NoError(t, err)
	assert.Equal(t, origEsc.Balance, restEsc.Balance)
	assert.Equal(t, origEsc.Locked, restEsc.Locked)

	reports, err := restored.CheckAll()
	require.NoError(t, err)
	assert.Empty(t, reports[0].Violations)
}

func TestRestoreRejectsTamperedRecords(t *testing.T) {
	e := newTestEngine(t)

	addr, bump := domain.EscrowAddress(alice)
	err := e.RestoreEscrow(domain.UserEscrow{
		Address: addr,
		Owner:   alice,
		Bump:    bump + 1,
	})
	assert.ErrorIs(t, err, domain.ErrBumpMismatch)

	marketAddr, marketBump := domain.MarketAddress(3, 1)
	err = e.RestoreMarket(domain.Market{
		Address:   marketAddr,
		MarketID:  3,
		WordIndex: 1,
		Bump:      marketBump + 1,
	})
	assert.ErrorIs(t, err, domain.ErrBumpMismatch)

	// Intact records restore cleanly; duplicates collide.
	err = e.RestoreEscrow(domain.UserEscrow{Address: addr, Owner: alice, Bump: bump, Balance: 5})
	require.NoError(t, err)
	err = e.RestoreEscrow(domain.UserEscrow{Address: addr, Owner: alice, Bump: bump})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}
