// Package position implements the Position Manager (spec §4.7): a
// per-position state machine (Open -> BreakevenSet -> Trailing ->
// Closed/ExitBlocked) plus the orthogonal partial-close and momentum-
// exhaustion logic. Grounded on the monotonic-tightening trailing idiom
// in strategy/trailing.go and the position mutation pattern in
// order/position.go, generalized into the full machine the spec requires.
package position

import (
	"time"

	"github.com/raykavin/backnrun/core"
)

// ExhaustionInputs is a single cycle's read of momentum-exhaustion
// signals for one position (§4.7).
type ExhaustionInputs struct {
	SmallConsecutiveCandles bool // both last two candle bodies < 0.5x ATR
	RejectionWick           bool // body < 30% of range, wick >= 2x body opposite to position
	RSIDivergence           bool // price extended but RSI failing to confirm
	UltraMomentumTimeout    bool // time-based timeout for ultra-momentum positions
}

// count returns how many exhaustion signals fired this cycle.
func (e ExhaustionInputs) count() int {
	n := 0
	if e.SmallConsecutiveCandles {
		n++
	}
	if e.RejectionWick {
		n++
	}
	if e.RSIDivergence {
		n++
	}
	if e.UltraMomentumTimeout {
		n++
	}
	return n
}

// RSIInputs is a single cycle's multi-timeframe RSI read for the partial-
// close-on-exhaustion gate (§4.7).
type RSIInputs struct {
	Chart     float64
	Secondary float64
}

// ManagementAction is one instruction the Position Manager asks the
// caller (the event loop, via the Execution Dispatcher) to carry out this
// cycle. Never executed directly by the manager — it only decides.
type ManagementAction struct {
	Ticket     core.Ticket
	ModifySL   *float64
	ModifyTP   *float64
	ClosePartial *float64 // volume to close
	Close      bool
}

// Manager owns the per-ticket cooldown map and applies the §4.7 state
// machine each management cycle. Not safe for concurrent use (§5).
type Manager struct {
	stops core.StopSettings
	rsi   core.RSISettings

	cooldowns map[core.Ticket]time.Time
}

// NewManager builds a Manager from the configured stop/RSI settings.
func NewManager(stops core.StopSettings, rsi core.RSISettings) *Manager {
	return &Manager{stops: stops, rsi: rsi, cooldowns: make(map[core.Ticket]time.Time)}
}

// Manage evaluates a single position for one management cycle and
// returns the action(s) to take, in the §5 ordering guarantee: breakeven
// before trailing before partials (caller applies ModifySL/ModifyTP
// before ClosePartial/Close on the returned action).
func (m *Manager) Manage(now time.Time, pos *core.Position, currentPrice, atrCurrent, atr10BarAvg float64, rsi RSIInputs, secondaryRSI float64, exhaustion ExhaustionInputs) ManagementAction {
	action := ManagementAction{Ticket: pos.Ticket}

	if pos.State == core.PositionClosed || pos.State == core.PositionExitBlocked {
		return action
	}

	profit := pos.UnrealizedProfit(currentPrice)

	m.evaluateBreakeven(pos, profit, atrCurrent, &action)
	m.evaluateTrailing(pos, currentPrice, profit, atrCurrent, &action)
	m.evaluatePartialClose(now, pos, profit, atrCurrent, atr10BarAvg, rsi, secondaryRSI, &action)
	m.evaluateMomentumExhaustion(pos, exhaustion, &action)

	return action
}

// evaluateBreakeven: Open -> BreakevenSet when unrealized profit >=
// breakeven_atr * ATR; SL moves to entry + buffer. Idempotent.
func (m *Manager) evaluateBreakeven(pos *core.Position, profit, atr float64, action *ManagementAction) {
	if pos.State != core.PositionOpen {
		return
	}
	if profit < m.stops.BreakevenATR*atr-1e-9 {
		return
	}

	buffer := m.stops.BreakevenBufferPips
	var newSL float64
	if pos.Direction == core.DirectionBuy {
		newSL = pos.EntryPrice + buffer
	} else {
		newSL = pos.EntryPrice - buffer
	}

	if !improvesStop(pos.Direction, pos.StopLoss, newSL) {
		return
	}
	action.ModifySL = &newSL
	pos.StopLoss = newSL
	pos.State = core.PositionBreakevenSet
	pos.Flags.BreakevenMoved = true
}

// evaluateTrailing: BreakevenSet -> Trailing when unrealized profit >=
// trailing_start_atr * ATR. Once Trailing, only update when the new SL
// strictly tightens toward price (§8 trailing monotonicity invariant).
func (m *Manager) evaluateTrailing(pos *core.Position, currentPrice, profit, atr float64, action *ManagementAction) {
	if pos.State == core.PositionBreakevenSet && profit >= m.stops.TrailingStartATR*atr {
		pos.State = core.PositionTrailing
	}
	if pos.State != core.PositionTrailing {
		return
	}

	trailMult := m.trailDistanceMult(pos.Flags)
	trailDist := trailMult * atr

	var newSL float64
	if pos.Direction == core.DirectionBuy {
		newSL = currentPrice - trailDist
	} else {
		newSL = currentPrice + trailDist
	}

	if !improvesStop(pos.Direction, pos.StopLoss, newSL) {
		return
	}
	action.ModifySL = &newSL
	pos.StopLoss = newSL
}

// trailDistanceMult: 0.5x ATR for momentum positions, 0.4x for ultra-
// momentum, 0.6-0.8x ATR otherwise (the configured TrailingATRMult).
func (m *Manager) trailDistanceMult(flags core.PositionFlags) float64 {
	switch {
	case flags.UltraMomentum:
		return 0.4
	case flags.MomentumTrade:
		return 0.5
	default:
		if m.stops.TrailingATRMult > 0 {
			return m.stops.TrailingATRMult
		}
		return 0.7
	}
}

// evaluatePartialClose: close partial_close_fraction of remaining volume
// on chart/secondary-TF RSI exhaustion, gated by min profit and cooldown.
func (m *Manager) evaluatePartialClose(now time.Time, pos *core.Position, profit, atr, atr10BarAvg float64, rsi RSIInputs, secondaryRSI float64, action *ManagementAction) {
	if !m.rsi.EnableRSIExits {
		return
	}

	exhausted := false
	switch pos.Direction {
	case core.DirectionBuy:
		exhausted = rsi.Chart >= m.rsi.ChartOverboughtExit || secondaryRSI >= m.rsi.SecondaryOverboughtExit
	case core.DirectionSell:
		exhausted = rsi.Chart <= m.rsi.ChartOversoldExit || secondaryRSI <= m.rsi.SecondaryOversoldExit
	}
	if !exhausted {
		return
	}

	if m.rsi.MinProfitPips > 0 && profit < m.rsi.MinProfitPips {
		return
	}

	if last, ok := m.cooldowns[pos.Ticket]; ok {
		if now.Sub(last) < time.Duration(m.rsi.CooldownSec)*time.Second {
			return
		}
	}

	if atr10BarAvg > 0 && atr/atr10BarAvg < 0.8 {
		return // ATR collapsing: suppress the partial close
	}

	fraction := m.rsi.PartialCloseFraction
	if fraction <= 0 {
		fraction = 0.5
	}
	if pos.Flags.MomentumTrade {
		fraction = 0.66
	}
	remaining := pos.Volume * fraction
	action.ClosePartial = &remaining
	pos.RecordPartialClose(now)
	m.cooldowns[pos.Ticket] = now
}

// evaluateMomentumExhaustion: for momentum_trade positions, close 66% of
// volume once >= 2 exhaustion signals fire this cycle.
func (m *Manager) evaluateMomentumExhaustion(pos *core.Position, exhaustion ExhaustionInputs, action *ManagementAction) {
	if action.ClosePartial != nil {
		// evaluatePartialClose already committed its cooldown/partial-close
		// bookkeeping for this cycle; don't clobber its pending action with
		// a second, undispatched partial-close source.
		return
	}
	if !pos.Flags.MomentumTrade {
		return
	}
	if exhaustion.count() < 2 {
		return
	}
	remaining := pos.Volume * 0.66
	action.ClosePartial = &remaining
}

// AdoptManualPosition computes SL/TP for a position opened manually (or
// by an external system sharing the engine's magic number) that carries
// neither. A position that already has both is a no-op (§8 idempotence).
func AdoptManualPosition(pos *core.Position, atr float64, slMult, rewardRatio float64) {
	if pos.StopLoss != 0 && pos.TakeProfit != 0 {
		return
	}

	dist := slMult * atr
	switch pos.Direction {
	case core.DirectionBuy:
		pos.StopLoss = pos.EntryPrice - dist
		pos.TakeProfit = pos.EntryPrice + dist*rewardRatio
	case core.DirectionSell:
		pos.StopLoss = pos.EntryPrice + dist
		pos.TakeProfit = pos.EntryPrice - dist*rewardRatio
	}
}

// MarkExitBlocked moves pos into the ExitBlocked sink after a
// modification fails with an already-closed/invalid-request class error,
// preventing further futile attempts on that ticket (§4.7, §7).
func MarkExitBlocked(pos *core.Position) {
	pos.State = core.PositionExitBlocked
	pos.Flags.ExitBlocked = true
}

// improvesStop reports whether newSL strictly improves (tightens/raises
// protection on) the stop relative to current, respecting direction.
// current == 0 means "no stop yet", which any finite stop improves on.
func improvesStop(dir core.Direction, current, newSL float64) bool {
	if current == 0 {
		return true
	}
	if dir == core.DirectionBuy {
		return newSL > current
	}
	return newSL < current
}
