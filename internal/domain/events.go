package domain

import "time"

// Signal bus channels for ledger events.
const (
	ChannelEscrow     = "ch:escrow"
	ChannelMarket     = "ch:market"
	ChannelSettlement = "ch:settlement"
	ChannelClaim      = "ch:claim"
)

// Event types published on the signal bus.
const (
	EventDeposited      = "deposited"
	EventWithdrawn      = "withdrawn"
	EventLocked         = "locked"
	EventUnlocked       = "unlocked"
	EventMarketCreated  = "market_created"
	EventMarketPaused   = "market_paused"
	EventMarketResumed  = "market_resumed"
	EventMarketResolved = "market_resolved"
	EventSettled        = "settled"
	EventClaimed        = "claimed"
)

// StreamEvents is the durable Redis stream mirroring every published event.
const StreamEvents = "stream:ledger"

// StreamMessage is a single entry read back from the durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// LedgerEvent is the JSON payload published after every applied operation.
// Amount carries the moved currency units; Quantity the moved share base
// units, where applicable.
type LedgerEvent struct {
	Type     string    `json:"type"`
	Market   ID        `json:"market,omitempty"`
	User     ID        `json:"user,omitempty"`
	Amount   uint64    `json:"amount,omitempty"`
	Quantity uint64    `json:"quantity,omitempty"`
	Outcome  string    `json:"outcome,omitempty"`
	At       time.Time `json:"at"`
}
