package domain

import (
	"fmt"
	"time"
)

// MaxLabelLen bounds the market label length in characters.
const MaxLabelLen = 32

// MarketStatus is the lifecycle state of a market.
type MarketStatus uint8

const (
	// StatusActive accepts orders and settlements.
	StatusActive MarketStatus = iota
	// StatusPaused blocks new settlements but has no outcome yet.
	StatusPaused
	// StatusResolved is terminal: the outcome is fixed and claims are open.
	StatusResolved
)

// String implements fmt.Stringer.
func (s MarketStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusResolved:
		return "resolved"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseMarketStatus converts the string form back to a MarketStatus.
func ParseMarketStatus(s string) (MarketStatus, error) {
	switch s {
	case "active":
		return StatusActive, nil
	case "paused":
		return StatusPaused, nil
	case "resolved":
		return StatusResolved, nil
	default:
		return 0, fmt.Errorf("domain: unknown market status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s MarketStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *MarketStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseMarketStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Outcome is the resolved side of a binary market. The zero value is the
// unresolved state; a Market carries OutcomeNone exactly until it is Resolved.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeYes
	OutcomeNo
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeYes:
		return "yes"
	case OutcomeNo:
		return "no"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// ParseOutcome converts the string form back to an Outcome. Only "yes" and
// "no" are valid resolution inputs; "none" is the stored unresolved state.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "none":
		return OutcomeNone, nil
	case "yes":
		return OutcomeYes, nil
	case "no":
		return OutcomeNo, nil
	default:
		return 0, fmt.Errorf("domain: unknown outcome %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Market is one tradable binary proposition: a single word within a market
// group. TotalCollateral is every currency unit moved into the vault for this
// market and not yet paid out; it must equal the vault balance after every
// completed operation.
type Market struct {
	Address         ID           `json:"address"`
	Authority       ID           `json:"authority"`
	MarketID        uint64       `json:"market_id"`
	WordIndex       uint16       `json:"word_index"`
	Label           string       `json:"label"`
	YesMint         ID           `json:"yes_mint"`
	NoMint          ID           `json:"no_mint"`
	Vault           ID           `json:"vault"`
	TotalCollateral uint64       `json:"total_collateral"`
	Status          MarketStatus `json:"status"`
	Outcome         Outcome      `json:"outcome"`
	Bump            byte         `json:"bump"`
	VaultBump       byte         `json:"vault_bump"`
	CreatedAt       time.Time    `json:"created_at"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
}

// CanTransition is the exhaustive lifecycle transition table. Resolved is
// terminal; Paused→Active (resume) exists in the table but is additionally
// gated by configuration at the engine level.
func CanTransition(from, to MarketStatus) bool {
	switch from {
	case StatusActive:
		return to == StatusPaused || to == StatusResolved
	case StatusPaused:
		return to == StatusActive || to == StatusResolved
	case StatusResolved:
		return false
	default:
		return false
	}
}

// WinningMint returns the share mint that redeems for collateral. It is only
// meaningful on a resolved market.
func (m *Market) WinningMint() (ID, error) {
	switch m.Outcome {
	case OutcomeYes:
		return m.YesMint, nil
	case OutcomeNo:
		return m.NoMint, nil
	default:
		return ZeroID, ErrMarketNotResolved
	}
}

// Settlement is one executed match: two opposing locked-fund commitments
// converted into minted shares plus pooled collateral.
type Settlement struct {
	ID        string    `json:"id"`
	Market    ID        `json:"market"`
	YesBuyer  ID        `json:"yes_buyer"`
	NoBuyer   ID        `json:"no_buyer"`
	Price     uint64    `json:"price"`
	Quantity  uint64    `json:"quantity"`
	YesCost   uint64    `json:"yes_cost"`
	NoCost    uint64    `json:"no_cost"`
	CreatedAt time.Time `json:"created_at"`
}

// Claim is one redeemed winning position: burned shares paid out of the vault
// directly to the user's wallet.
type Claim struct {
	ID        string    `json:"id"`
	Market    ID        `json:"market"`
	User      ID        `json:"user"`
	Shares    uint64    `json:"shares"`
	Payout    uint64    `json:"payout"`
	CreatedAt time.Time `json:"created_at"`
}
