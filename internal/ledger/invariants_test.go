package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// settledEngine returns an engine with one market carrying five whole shares
// of collateral on each side.
func settledEngine(t *testing.T) (*Engine, domain.Market) {
	t.Helper()

	e := New(Config{})
	m, err := e.CreateMarket(authority, 11, 4, "vault")
	require.NoError(t, err)

	for _, user := range []domain.ID{alice, bob} {
		_, err = e.Deposit(user, 10*domain.UnitPrice)
		require.NoError(t, err)
		_, err = e.LockFunds(user, 5*domain.UnitPrice)
		require.NoError(t, err)
	}
	_, err = e.SettleMatch(m.Address, alice, bob, 500_000_000, 5*domain.ShareScale)
	require.NoError(t, err)

	m2, err := e.Market(m.Address)
	require.NoError(t, err)
	return e, m2
}

func TestCheckMarketHealthy(t *testing.T) {
	e, m := settledEngine(t)

	rep, err := e.CheckMarket(m.Address)
	require.NoError(t, err)
	assert.Empty(t, rep.Violations)
	assert.Equal(t, 5*domain.UnitPrice, rep.TotalCollateral)
	assert.Equal(t, rep.TotalCollateral, rep.VaultBalance)
	assert.Equal(t, rep.YesSupply, rep.NoSupply)

	_, err = e.CheckMarket(testID(0x77))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckMarketDetectsConservationBreak(t *testing.T) {
	e, m := settledEngine(t)

	// Drain the vault behind the ledger's back.
	e.mu.Lock()
	e.vaults[m.Vault] -= 1
	e.mu.Unlock()

	rep, err := e.CheckMarket(m.Address)
	require.NoError(t, err)
	require.NotEmpty(t, rep.Violations)
	assert.Contains(t, rep.Violations[0], "conservation")

	_, err = e.CheckAll()
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestCheckMarketDetectsSupplyAsymmetry(t *testing.T) {
	e, m := settledEngine(t)

	e.mu.Lock()
	err := e.shares.Mint(m.YesMint, carol, domain.ShareScale)
	e.mu.Unlock()
	require.NoError(t, err)

	rep, err := e.CheckMarket(m.Address)
	require.NoError(t, err)
	require.NotEmpty(t, rep.Violations)
	assert.Contains(t, rep.Violations[0], "share symmetry")
}

func TestCheckMarketResolvedSolvency(t *testing.T) {
	e, m := settledEngine(t)

	_, err := e.ResolveMarket(authority, m.Address, domain.OutcomeYes)
	require.NoError(t, err)

	// Resolved but unclaimed: collateral must cover the winning side exactly.
	rep, err := e.CheckMarket(m.Address)
	require.NoError(t, err)
	assert.Empty(t, rep.Violations)

	// Burn a winning share without paying out; the books now over-collateralize.
	e.mu.Lock()
	err = e.shares.Burn(m.YesMint, alice, domain.ShareScale)
	e.mu.Unlock()
	require.NoError(t, err)

	rep, err = e.CheckMarket(m.Address)
	require.NoError(t, err)
	require.NotEmpty(t, rep.Violations)
	assert.Contains(t, rep.Violations[0], "solvency")
}

func TestCheckAllEmptyEngine(t *testing.T) {
	e := New(Config{})
	reports, err := e.CheckAll()
	require.NoError(t, err)
	assert.Empty(t, reports)
}
