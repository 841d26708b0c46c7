package domain

import "time"

// Monetary and share-quantity granularity. One whole share redeems for
// UnitPrice currency units; share quantities are carried in base units of
// ShareScale per whole share. Both sides of a settlement together always pay
// exactly UnitPrice per whole share, which is what keeps the vault solvent.
const (
	UnitPrice  uint64 = 1_000_000_000
	ShareScale uint64 = 1_000_000
)

// UserEscrow is a user's holding account. Balance is freely withdrawable;
// Locked is committed to open orders and can only be consumed by settlement
// or released by the matching backend. Funds the user controls are always
// Balance + Locked.
type UserEscrow struct {
	Address   ID        `json:"address"`
	Owner     ID        `json:"owner"`
	Balance   uint64    `json:"balance"`
	Locked    uint64    `json:"locked"`
	Bump      byte      `json:"bump"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Holding is one user's balance of one share mint.
type Holding struct {
	Mint    ID     `json:"mint"`
	Owner   ID     `json:"owner"`
	Balance uint64 `json:"balance"`
}
