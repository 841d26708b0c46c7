package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

func TestSplitCostsComplementary(t *testing.T) {
	cases := []struct {
		name     string
		price    uint64
		quantity uint64
	}{
		{"even split", domain.UnitPrice / 2, 2 * domain.ShareScale},
		{"sixty forty", 600_000_000, 5 * domain.ShareScale},
		{"cheap yes", 1_000_000, 10 * domain.ShareScale},
		{"expensive yes", domain.UnitPrice - 1_000_000, 3 * domain.ShareScale},
		{"single base unit price", 1_000_000, domain.ShareScale},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yesCost, noCost, err := splitCosts(tc.price, tc.quantity)
			require.NoError(t, err)

			// Together both sides pay exactly UnitPrice per whole share.
			wholeShares := tc.quantity / domain.ShareScale
			assert.Equal(t, wholeShares*domain.UnitPrice, yesCost+noCost)
		})
	}
}

func TestSplitCostsRejectsRoundingLoss(t *testing.T) {
	// 333_333_333 * 3 = 999_999_999, not a multiple of ShareScale.
	_, _, err := splitCosts(333_333_333, 3)
	assert.ErrorIs(t, err, domain.ErrRoundingLoss)
}

func TestSplitCostsValidation(t *testing.T) {
	_, _, err := splitCosts(0, domain.ShareScale)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, _, err = splitCosts(domain.UnitPrice, domain.ShareScale)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, _, err = splitCosts(domain.UnitPrice+1, domain.ShareScale)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, _, err = splitCosts(domain.UnitPrice/2, 0)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)
}

func TestSplitCostsOverflow(t *testing.T) {
	_, _, err := splitCosts(domain.UnitPrice-1, math.MaxUint64)
	assert.ErrorIs(t, err, domain.ErrAmountOverflow)
}

func TestRedemptionValue(t *testing.T) {
	// One whole share redeems for exactly UnitPrice.
	v, err := redemptionValue(domain.ShareScale)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitPrice, v)

	v, err = redemptionValue(7 * domain.ShareScale)
	require.NoError(t, err)
	assert.Equal(t, 7*domain.UnitPrice, v)

	_, err = redemptionValue(math.MaxUint64)
	assert.ErrorIs(t, err, domain.ErrAmountOverflow)
}

func TestCheckedArithmetic(t *testing.T) {
	sum, err := addU64(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = addU64(math.MaxUint64, 1)
	assert.ErrorIs(t, err, domain.ErrAmountOverflow)

	prod, err := mulU64(1<<32, 1<<31)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<63, prod)

	_, err = mulU64(1<<32, 1<<32)
	assert.ErrorIs(t, err, domain.ErrAmountOverflow)
}
