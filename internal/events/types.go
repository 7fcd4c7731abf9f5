// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Pool lifecycle
	PoolLaunched  EventType = "pool.launched"
	PoolGraduated EventType = "pool.graduated"

	// Trading
	TradeExecuted       EventType = "trade.executed"
	PaperhandTaxApplied EventType = "trade.paperhand_tax"
	PositionUpdated     EventType = "position.updated"

	// Admin
	ConfigUpdated EventType = "config.updated"

	// All subscribes a handler to every event type.
	All EventType = "*"
)

// Trade sides carried by TradeExecutedEvent.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	Slot      uint64
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of type t committed at slot.
func NewBase(t EventType, at time.Time, slot uint64) BaseEvent {
	return BaseEvent{EventType: t, EventTime: at, Slot: slot}
}

// TradeExecutedEvent is emitted for every committed buy or sell. SolAmount is
// what the user paid (buy) or received after tax (sell).
type TradeExecutedEvent struct {
	BaseEvent
	User        solana.PublicKey
	Pool        solana.PublicKey
	Mint        solana.PublicKey
	Side        string
	TokenAmount uint64
	SolAmount   uint64
	GrossSol    uint64
	Tax         uint64

	// Reserves after the trade.
	TokenReserve      uint64
	SolReserve        uint64
	VirtualSolReserve uint64
}

// PaperhandTaxAppliedEvent is emitted when a sell below cost basis is taxed.
type PaperhandTaxAppliedEvent struct {
	BaseEvent
	User             solana.PublicKey
	Pool             solana.PublicKey
	Treasury         solana.PublicKey
	SolOutBeforeTax  uint64
	CostBasisForSale uint64
	Tax              uint64
	SolToUser        uint64
	Untracked        bool
}

// PositionUpdatedEvent carries a position after a buy.
type PositionUpdatedEvent struct {
	BaseEvent
	User        solana.PublicKey
	Pool        solana.PublicKey
	TotalTokens uint64
	TotalSol    uint64
}

// PoolLaunchedEvent is emitted when a token and its pool are created.
type PoolLaunchedEvent struct {
	BaseEvent
	Creator           solana.PublicKey
	Mint              solana.PublicKey
	Pool              solana.PublicKey
	Name              string
	Symbol            string
	URI               string
	Decimals          uint8
	InitialSupply     uint64
	InitialSolReserve uint64
	VirtualSolReserve uint64
	LaunchFee         uint64
}

// PoolGraduatedEvent is emitted once per pool when it leaves the curve.
type PoolGraduatedEvent struct {
	BaseEvent
	Pool          solana.PublicKey
	Mint          solana.PublicKey
	AmmPool       solana.PublicKey
	TokenAmount   uint64
	SolAmount     uint64
	VirtualSolCut uint64
}

// ConfigUpdatedEvent carries the configuration after initialize or an update.
type ConfigUpdatedEvent struct {
	BaseEvent
	Admin             solana.PublicKey
	Treasury          solana.PublicKey
	Fees              uint16
	PaperhandTaxBps   uint16
	DefaultVirtualSol uint64
}
