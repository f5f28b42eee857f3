package signal

import (
	"context"
	"time"

	"github.com/raykavin/backnrun/core"
)

// RangeInputs is everything the range cascade's gates read (§4.2).
type RangeInputs struct {
	Price      float64
	Spread     float64
	ADXPrimary float64
	ATRCurrent float64

	Resistance *core.KeyLevel
	Support    *core.KeyLevel

	StochKCurrent  float64
	StochKPrevious float64

	BoundaryProximityPct float64 // overrides GateSettings default when > 0
}

// RangeCascade implements the range cascade (§4.2).
type RangeCascade struct {
	gates core.GateSettings
}

// NewRangeCascade builds a RangeCascade from the configured thresholds.
func NewRangeCascade(gates core.GateSettings) *RangeCascade {
	return &RangeCascade{gates: gates}
}

// Evaluate runs G1..G5 in order: opposing levels, range width, ADX
// ceiling, boundary proximity, Stochastic confirmation.
func (r *RangeCascade) Evaluate(ctx context.Context, now time.Time, in RangeInputs) CascadeDecision {
	var gates []GateDecision

	g1 := r.g1OpposingLevels(in)
	gates = append(gates, g1)

	var width float64
	if g1.Pass {
		width = in.Resistance.Price - in.Support.Price
	}
	gates = append(gates, r.g2RangeWidth(in, width))
	gates = append(gates, r.g3ADXCeiling(in))

	var nearResistance, nearSupport bool
	if g1.Pass {
		nearResistance = r.nearBoundary(in.Price, in.Resistance.Price, in)
		nearSupport = r.nearBoundary(in.Price, in.Support.Price, in)
	}
	gates = append(gates, r.g4BoundaryProximity(nearResistance, nearSupport))

	direction := core.DirectionNone
	var level *core.KeyLevel
	if nearResistance {
		direction = core.DirectionSell
		level = in.Resistance
	} else if nearSupport {
		direction = core.DirectionBuy
		level = in.Support
	}
	gates = append(gates, r.g5StochConfirm(direction, in))

	decision := CascadeDecision{
		Timestamp: now,
		Regime:    core.RegimeRanging,
		Gates:     gates,
		Pass:      allPass(gates) && direction != core.DirectionNone,
		Reason:    firstRejection(gates),
	}

	if decision.Pass {
		midRange := (in.Resistance.Price + in.Support.Price) / 2
		decision.Signal = &Signal{
			Direction:     direction,
			Regime:        core.RegimeRanging,
			NearLevel:     level,
			SuggestedKind: core.OrderKindMarket,
			TriggerPrice:  midRange,
		}
	}

	return decision
}

// g1OpposingLevels requires both a resistance and a support level.
func (r *RangeCascade) g1OpposingLevels(in RangeInputs) GateDecision {
	pass := in.Resistance != nil && in.Support != nil && in.Resistance.Price > in.Support.Price
	return gateResult("G1_opposing_levels", pass, ReasonNoOpposingLevels)
}

// g2RangeWidth requires the range to be at least 1.5x the current spread.
func (r *RangeCascade) g2RangeWidth(in RangeInputs, width float64) GateDecision {
	if in.Resistance == nil || in.Support == nil {
		return gateResult("G2_range_width", false, ReasonRangeTooNarrow)
	}
	minWidthMult := r.gates.RangeMinWidthSpreadMult
	if minWidthMult <= 0 {
		minWidthMult = 1.5
	}
	pass := width >= minWidthMult*in.Spread
	if pass && in.Spread > 0 && width/in.Spread < 1.5 {
		// Boundary case (§8): spread exceeding 1/1.5 of range must refuse.
		pass = false
	}
	if !pass {
		return gateResult("G2_range_width", false, ReasonSpreadTooWide)
	}
	return gateResult("G2_range_width", true, ReasonNone)
}

// g3ADXCeiling requires ADX_primary < 20 (ranging regimes have no trend).
func (r *RangeCascade) g3ADXCeiling(in RangeInputs) GateDecision {
	pass := in.ADXPrimary < 20
	return gateResult("G3_adx_ceiling", pass, ReasonADXTooHigh)
}

// g4BoundaryProximity requires price within the configured percentage of
// either boundary.
func (r *RangeCascade) g4BoundaryProximity(nearResistance, nearSupport bool) GateDecision {
	pass := nearResistance || nearSupport
	return gateResult("G4_boundary_proximity", pass, ReasonNotNearBoundary)
}

func (r *RangeCascade) nearBoundary(price, boundary float64, in RangeInputs) bool {
	pct := in.BoundaryProximityPct
	if pct <= 0 {
		pct = r.gates.RangeBoundaryProximityPct
	}
	if pct <= 0 {
		pct = 0.002
	}
	if boundary == 0 {
		return false
	}
	return absFloat(price-boundary)/boundary <= pct
}

// g5StochConfirm: Stochastic %K crossing 80 downward near resistance, or
// crossing 20 upward near support.
func (r *RangeCascade) g5StochConfirm(direction core.Direction, in RangeInputs) GateDecision {
	var pass bool
	switch direction {
	case core.DirectionSell:
		pass = in.StochKPrevious >= 80 && in.StochKCurrent < 80
	case core.DirectionBuy:
		pass = in.StochKPrevious <= 20 && in.StochKCurrent > 20
	default:
		pass = false
	}
	return gateResult("G5_stoch_confirm", pass, ReasonStochNotConfirming)
}
