package core

import (
	"fmt"
	"time"
)

// PositionState is the Position Manager's per-ticket state machine state
// (§4.7). Partial closes are orthogonal events that do not change state.
type PositionState string

const (
	PositionOpen         PositionState = "open"
	PositionBreakevenSet PositionState = "breakeven_set"
	PositionTrailing     PositionState = "trailing"
	PositionClosed       PositionState = "closed"
	PositionExitBlocked  PositionState = "exit_blocked"
)

// PositionFlags is the typed projection of what the original system encoded
// in the order-comment string (spec §9 design note). The comment string
// remains only as a broker-interop projection, built by Comment().
type PositionFlags struct {
	MomentumTrade    bool
	UltraMomentum    bool
	PartialCloseDone bool
	BreakevenMoved   bool
	ExitBlocked      bool
}

// Position is core-owned: created on fill, mutated only by the Position
// Manager or the broker, destroyed on close. The broker remains the system
// of record; this is the manager's projected view, refreshed every cycle.
type Position struct {
	Ticket     Ticket
	Direction  Direction
	EntryPrice float64
	Volume     float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
	Regime     RegimeLabel
	State      PositionState
	Flags      PositionFlags

	// lastPartialCloseAt supports the per-ticket partial-close cooldown
	// (§4.7); zero value means no partial close has happened yet.
	lastPartialCloseAt time.Time
}

// LastPartialCloseAt reports when the last partial close happened, or the
// zero time if none has.
func (p *Position) LastPartialCloseAt() time.Time { return p.lastPartialCloseAt }

// RecordPartialClose stamps the cooldown clock and marks the flag.
func (p *Position) RecordPartialClose(at time.Time) {
	p.lastPartialCloseAt = at
	p.Flags.PartialCloseDone = true
}

// Comment projects the typed flags into the broker-interop comment string.
func (p *Position) Comment() string {
	tag := "std"
	switch {
	case p.Flags.UltraMomentum:
		tag = "ultra_momentum"
	case p.Flags.MomentumTrade:
		tag = "momentum"
	}
	return fmt.Sprintf("regime=%s;flag=%s", p.Regime, tag)
}

// ValidStops reports the §3/§8 stop-side invariant: for a long, SL < entry <
// TP; for a short, TP < entry < SL (only enforced when both are set, i.e.
// nonzero).
func (p *Position) ValidStops() bool {
	if p.StopLoss == 0 || p.TakeProfit == 0 {
		return true
	}
	switch p.Direction {
	case DirectionBuy:
		return p.StopLoss < p.EntryPrice && p.EntryPrice < p.TakeProfit
	case DirectionSell:
		return p.TakeProfit < p.EntryPrice && p.EntryPrice < p.StopLoss
	default:
		return false
	}
}

// UnrealizedProfit returns the unrealized profit in price units (positive
// favorable) given the current price.
func (p *Position) UnrealizedProfit(currentPrice float64) float64 {
	switch p.Direction {
	case DirectionBuy:
		return currentPrice - p.EntryPrice
	case DirectionSell:
		return p.EntryPrice - currentPrice
	default:
		return 0
	}
}
