package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

func TestShareLedgerMintBurn(t *testing.T) {
	sl := NewShareLedger()
	mint := testID(0x10)

	require.NoError(t, sl.CreateMint(mint))
	assert.ErrorIs(t, sl.CreateMint(mint), domain.ErrAlreadyExists)

	require.NoError(t, sl.Mint(mint, alice, 100))
	require.NoError(t, sl.Mint(mint, bob, 50))
	require.NoError(t, sl.Mint(mint, alice, 25))

	assert.Equal(t, uint64(125), sl.BalanceOf(mint, alice))
	assert.Equal(t, uint64(50), sl.BalanceOf(mint, bob))
	assert.Equal(t, uint64(175), sl.Supply(mint))

	// Burning more than held fails; burning to zero removes the holder.
	assert.ErrorIs(t, sl.Burn(mint, bob, 51), domain.ErrNothingToClaim)
	require.NoError(t, sl.Burn(mint, bob, 50))
	assert.Zero(t, sl.BalanceOf(mint, bob))
	assert.Equal(t, uint64(125), sl.Supply(mint))

	// Unknown mint.
	assert.ErrorIs(t, sl.Mint(testID(0x11), alice, 1), domain.ErrNotFound)
	assert.ErrorIs(t, sl.Burn(testID(0x11), alice, 1), domain.ErrNotFound)
	assert.Zero(t, sl.BalanceOf(testID(0x11), alice))
	assert.Zero(t, sl.Supply(testID(0x11)))
}

func TestShareLedgerSupplyMatchesHolders(t *testing.T) {
	sl := NewShareLedger()
	mint := testID(0x10)
	require.NoError(t, sl.CreateMint(mint))

	require.NoError(t, sl.Mint(mint, alice, 7))
	require.NoError(t, sl.Mint(mint, bob, 9))
	require.NoError(t, sl.Mint(mint, carol, 4))
	require.NoError(t, sl.Burn(mint, bob, 3))

	var sum uint64
	for _, h := range sl.Holdings(mint) {
		sum += h.Balance
	}
	assert.Equal(t, sl.Supply(mint), sum)
}

func TestShareLedgerHoldingsDeterministic(t *testing.T) {
	sl := NewShareLedger()
	mint := testID(0x10)
	require.NoError(t, sl.CreateMint(mint))

	require.NoError(t, sl.Mint(mint, carol, 1))
	require.NoError(t, sl.Mint(mint, alice, 2))
	require.NoError(t, sl.Mint(mint, bob, 3))

	holdings := sl.Holdings(mint)
	require.Len(t, holdings, 3)
	// Ordered by owner bytes.
	assert.Equal(t, alice, holdings[0].Owner)
	assert.Equal(t, bob, holdings[1].Owner)
	assert.Equal(t, carol, holdings[2].Owner)

	assert.Nil(t, sl.Holdings(testID(0x11)))
}

func TestShareLedgerRestore(t *testing.T) {
	sl := NewShareLedger()
	mint := testID(0x10)

	// Restore creates the mint on demand and skips zero balances.
	require.NoError(t, sl.restore(mint, alice, 40))
	require.NoError(t, sl.restore(mint, bob, 0))

	assert.Equal(t, uint64(40), sl.Supply(mint))
	assert.Equal(t, uint64(40), sl.BalanceOf(mint, alice))
	assert.Zero(t, sl.BalanceOf(mint, bob))
	assert.Len(t, sl.Holdings(mint), 1)
}
