// Package domain defines the core ledger model for the word market: escrows,
// markets, share mints, the error taxonomy, and the store/cache interfaces
// implemented by the infrastructure packages.
package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// IDLen is the byte length of every record identity in the system.
const IDLen = 32

// ID is a 32-byte record identity: a user wallet, an escrow address, a market
// address, a share mint, or a vault. IDs are rendered as 0x-prefixed hex in
// JSON and derived deterministically from their seeds (see keys.go).
type ID [IDLen]byte

// ZeroID is the all-zero identity, used as the "unset" value.
var ZeroID ID

// ParseID decodes a 0x-prefixed hex string into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	raw, err := hexutil.Decode(s)
	if err != nil {
		return ZeroID, fmt.Errorf("domain: parse id %q: %w", s, err)
	}
	if len(raw) != IDLen {
		return ZeroID, fmt.Errorf("domain: parse id %q: want %d bytes, got %d", s, IDLen, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseID is ParseID that panics on error. For tests and constants only.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the ID is the unset value.
func (id ID) IsZero() bool {
	return id == ZeroID
}

// Hex returns the 0x-prefixed hex encoding of the ID.
func (id ID) Hex() string {
	return hexutil.Encode(id[:])
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return id.Hex()
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as hex in
// JSON object values and map keys alike.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
