package ledger

import (
	"errors"
	"fmt"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// ErrInvariantViolated wraps every invariant failure so callers can detect
// the class with errors.Is.
var ErrInvariantViolated = errors.New("ledger invariant violated")

// MarketReport is the invariant check result for one market.
type MarketReport struct {
	Market          domain.ID `json:"market"`
	Label           string    `json:"label"`
	Status          string    `json:"status"`
	TotalCollateral uint64    `json:"total_collateral"`
	VaultBalance    uint64    `json:"vault_balance"`
	YesSupply       uint64    `json:"yes_supply"`
	NoSupply        uint64    `json:"no_supply"`
	Violations      []string  `json:"violations,omitempty"`
}

// CheckMarket verifies the standing invariants for one market:
//
//   - conservation: the vault balance equals the collateral total;
//   - share symmetry: before resolution, outstanding YES and NO supplies are
//     equal and the collateral total is their full redemption value;
//   - solvency: after resolution, the collateral total is exactly the
//     redemption value of the outstanding winning shares.
func (e *Engine) CheckMarket(addr domain.ID) (MarketReport, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	m, ok := e.markets[addr]
	if !ok {
		return MarketReport{}, domain.ErrNotFound
	}
	return e.checkMarketLocked(m), nil
}

// CheckAll runs CheckMarket over every market and reports all violations.
// It returns ErrInvariantViolated when any market fails.
func (e *Engine) CheckAll() ([]MarketReport, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var reports []MarketReport
	var violated bool
	for _, m := range e.markets {
		r := e.checkMarketLocked(m)
		if len(r.Violations) > 0 {
			violated = true
		}
		reports = append(reports, r)
	}
	if violated {
		return reports, ErrInvariantViolated
	}
	return reports, nil
}

func (e *Engine) checkMarketLocked(m *domain.Market) MarketReport {
	r := MarketReport{
		Market:          m.Address,
		Label:           m.Label,
		Status:          m.Status.String(),
		TotalCollateral: m.TotalCollateral,
		VaultBalance:    e.vaults[m.Vault],
		YesSupply:       e.shares.Supply(m.YesMint),
		NoSupply:        e.shares.Supply(m.NoMint),
	}

	if r.VaultBalance != r.TotalCollateral {
		r.Violations = append(r.Violations, fmt.Sprintf(
			"conservation: vault balance %d != total collateral %d",
			r.VaultBalance, r.TotalCollateral))
	}

	if m.Status != domain.StatusResolved {
		if r.YesSupply != r.NoSupply {
			r.Violations = append(r.Violations, fmt.Sprintf(
				"share symmetry: yes supply %d != no supply %d",
				r.YesSupply, r.NoSupply))
		}
		if want, err := redemptionValue(r.YesSupply); err != nil || want != r.TotalCollateral {
			r.Violations = append(r.Violations, fmt.Sprintf(
				"collateral backing: total collateral %d != share value %d",
				r.TotalCollateral, want))
		}
		return r
	}

	winning := r.YesSupply
	if m.Outcome == domain.OutcomeNo {
		winning = r.NoSupply
	}
	if want, err := redemptionValue(winning); err != nil || want != r.TotalCollateral {
		r.Violations = append(r.Violations, fmt.Sprintf(
			"solvency: total collateral %d != outstanding winning value of %d shares",
			r.TotalCollateral, winning))
	}
	return r
}
