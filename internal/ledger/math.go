package ledger

import (
	"math/bits"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// Checked unsigned arithmetic. Every monetary step in the engine goes through
// these helpers; an overflow aborts the operation before any state changes.

func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrAmountOverflow
	}
	return sum, nil
}

func mulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, domain.ErrAmountOverflow
	}
	return lo, nil
}

// splitCosts computes what each side of a matched pair pays for quantity
// share base units at the given price. The two costs are complementary:
// together they always total exactly UnitPrice per whole share, which is the
// property that keeps the vault able to redeem one full winning side.
//
// Because UnitPrice is a multiple of ShareScale, the two truncating divisions
// lose lamport-level value iff price×quantity does not divide ShareScale; in
// that case the pair is rejected with ErrRoundingLoss rather than settled at
// a deficit.
func splitCosts(price, quantity uint64) (yesCost, noCost uint64, err error) {
	if price == 0 || price >= domain.UnitPrice {
		return 0, 0, domain.ErrInvalidPrice
	}
	if quantity == 0 {
		return 0, 0, domain.ErrZeroAmount
	}

	yesRaw, err := mulU64(price, quantity)
	if err != nil {
		return 0, 0, err
	}
	if yesRaw%domain.ShareScale != 0 {
		return 0, 0, domain.ErrRoundingLoss
	}
	noRaw, err := mulU64(domain.UnitPrice-price, quantity)
	if err != nil {
		return 0, 0, err
	}

	return yesRaw / domain.ShareScale, noRaw / domain.ShareScale, nil
}

// redemptionValue converts a share quantity in base units into its payout in
// currency units at the fixed unit price.
func redemptionValue(quantity uint64) (uint64, error) {
	raw, err := mulU64(quantity, domain.UnitPrice/domain.ShareScale)
	if err != nil {
		return 0, err
	}
	return raw, nil
}
