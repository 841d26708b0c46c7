package ledger

import (
	"sort"

	"github.com/alanyoungcy/wordmarket/internal/domain"
)

// shareMint is the in-memory state of one fungible share kind: total supply
// plus per-holder balances. Supply only grows via mint and shrinks via burn,
// so supply always equals the sum of holder balances.
type shareMint struct {
	supply  uint64
	holders map[domain.ID]uint64
}

// ShareLedger tracks YES/NO share mints for every market. It is not
// goroutine-safe on its own; the Engine serializes access.
type ShareLedger struct {
	mints map[domain.ID]*shareMint
}

// NewShareLedger creates an empty share ledger.
func NewShareLedger() *ShareLedger {
	return &ShareLedger{mints: make(map[domain.ID]*shareMint)}
}

// CreateMint registers a new mint with zero supply.
func (sl *ShareLedger) CreateMint(mint domain.ID) error {
	if _, ok := sl.mints[mint]; ok {
		return domain.ErrAlreadyExists
	}
	sl.mints[mint] = &shareMint{holders: make(map[domain.ID]uint64)}
	return nil
}

// Mint credits quantity base units of the mint to owner.
func (sl *ShareLedger) Mint(mint, owner domain.ID, quantity uint64) error {
	m, ok := sl.mints[mint]
	if !ok {
		return domain.ErrNotFound
	}
	newSupply, err := addU64(m.supply, quantity)
	if err != nil {
		return err
	}
	newBalance, err := addU64(m.holders[owner], quantity)
	if err != nil {
		return err
	}
	m.supply = newSupply
	m.holders[owner] = newBalance
	return nil
}

// Burn removes quantity base units of the mint from owner.
func (sl *ShareLedger) Burn(mint, owner domain.ID, quantity uint64) error {
	m, ok := sl.mints[mint]
	if !ok {
		return domain.ErrNotFound
	}
	bal := m.holders[owner]
	if quantity > bal {
		return domain.ErrNothingToClaim
	}
	m.supply -= quantity
	if bal == quantity {
		delete(m.holders, owner)
	} else {
		m.holders[owner] = bal - quantity
	}
	return nil
}

// BalanceOf returns owner's balance of the mint in base units.
func (sl *ShareLedger) BalanceOf(mint, owner domain.ID) uint64 {
	m, ok := sl.mints[mint]
	if !ok {
		return 0
	}
	return m.holders[owner]
}

// Supply returns the outstanding supply of the mint in base units.
func (sl *ShareLedger) Supply(mint domain.ID) uint64 {
	m, ok := sl.mints[mint]
	if !ok {
		return 0
	}
	return m.supply
}

// Holdings returns every non-zero holding of the mint, ordered by owner for
// deterministic iteration.
func (sl *ShareLedger) Holdings(mint domain.ID) []domain.Holding {
	m, ok := sl.mints[mint]
	if !ok {
		return nil
	}
	out := make([]domain.Holding, 0, len(m.holders))
	for owner, bal := range m.holders {
		out = append(out, domain.Holding{Mint: mint, Owner: owner, Balance: bal})
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Owner[:]) < string(out[j].Owner[:])
	})
	return out
}

// restore seeds a mint with a holder balance during hydration, creating the
// mint if needed.
func (sl *ShareLedger) restore(mint, owner domain.ID, balance uint64) error {
	m, ok := sl.mints[mint]
	if !ok {
		m = &shareMint{holders: make(map[domain.ID]uint64)}
		sl.mints[mint] = m
	}
	if balance == 0 {
		return nil
	}
	newSupply, err := addU64(m.supply, balance)
	if err != nil {
		return err
	}
	m.supply = newSupply
	m.holders[owner] = balance
	return nil
}
