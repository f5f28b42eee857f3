package signal

import (
	"context"
	"strings"
	"time"

	"github.com/raykavin/backnrun/core"
)

// BreakoutInputs is everything the breakout cascade's gates read (§4.2).
type BreakoutInputs struct {
	Direction core.Direction
	Timeframe core.Timeframe

	Price      float64
	Open       float64
	Close      float64
	ATRCurrent float64

	InsideBar              bool
	NarrowestRangeOf7      bool
	ATRExpansionRatio      float64 // current ATR / prior ATR
	ATRExpansionThreshold  float64 // timeframe-adaptive minimum expansion

	NearestStrongLevel *core.KeyLevel

	TickVolume     float64
	AvgVolume20    float64
}

// BreakoutCascade implements the breakout cascade (§4.2).
type BreakoutCascade struct {
	gates core.GateSettings
}

// NewBreakoutCascade builds a BreakoutCascade from the configured
// thresholds.
func NewBreakoutCascade(gates core.GateSettings) *BreakoutCascade {
	return &BreakoutCascade{gates: gates}
}

// Evaluate runs G1..G3 in order. Ultra-strong surge (>3x ATR) bypasses G2
// and G3 entirely.
func (b *BreakoutCascade) Evaluate(ctx context.Context, now time.Time, in BreakoutInputs) CascadeDecision {
	var gates []GateDecision

	g1, momentumRatio, ultraSurge := b.g1Pattern(in)
	gates = append(gates, g1)

	if g1.Pass && ultraSurge {
		// Ultra-strong surge bypasses proximity and volume requirements.
	} else {
		gates = append(gates, b.g2Proximity(in))
		gates = append(gates, b.g3VolumeSpike(in))
	}

	decision := CascadeDecision{
		Timestamp: now,
		Regime:    core.RegimeBreakoutSetup,
		Gates:     gates,
		Pass:      allPass(gates),
		Reason:    firstRejection(gates),
	}

	if decision.Pass {
		kind := core.OrderKindBuyStop
		if in.Direction == core.DirectionSell {
			kind = core.OrderKindSellStop
		}
		if ultraSurge {
			// S3: ultra-momentum surge submits as a market order rather
			// than a stop order.
			kind = core.OrderKindMarket
		}
		decision.Signal = &Signal{
			Direction:     in.Direction,
			Regime:        core.RegimeBreakoutSetup,
			MomentumRatio: momentumRatio,
			UltraSurge:    ultraSurge,
			NearLevel:     in.NearestStrongLevel,
			SuggestedKind: kind,
		}
	}

	return decision
}

// g1Pattern: at least one of {inside-bar, NR7, ATR expansion >= adaptive
// threshold, momentum surge > 1.5x ATR}. Also reports the momentum ratio
// and whether it is an ultra-strong surge (>3x ATR).
func (b *BreakoutCascade) g1Pattern(in BreakoutInputs) (GateDecision, float64, bool) {
	momentumRatio := 0.0
	if in.ATRCurrent > 0 {
		momentumRatio = absFloat(in.Close-in.Open) / in.ATRCurrent
	}
	momentumSurge := momentumRatio > 1.5
	ultraSurge := momentumRatio > 3

	atrExpansion := in.ATRExpansionThreshold > 0 && in.ATRExpansionRatio >= in.ATRExpansionThreshold

	pass := in.InsideBar || in.NarrowestRangeOf7 || atrExpansion || momentumSurge
	return gateResult("G1_breakout_pattern", pass, ReasonNoBreakoutPattern), momentumRatio, ultraSurge
}

// g2Proximity: price must be within k*ATR of a strong key level, where k
// depends on the chart timeframe.
func (b *BreakoutCascade) g2Proximity(in BreakoutInputs) GateDecision {
	if in.NearestStrongLevel == nil {
		return gateResult("G2_key_level_proximity", false, ReasonNotNearKeyLevel)
	}
	if in.ATRCurrent <= 0 {
		return gateResult("G2_key_level_proximity", false, ReasonATRZero)
	}

	k := proximityMultiplier(in.Timeframe)
	dist := absFloat(in.Price - in.NearestStrongLevel.Price)
	pass := dist <= k*in.ATRCurrent
	return gateResult("G2_key_level_proximity", pass, ReasonNotNearKeyLevel)
}

// g3VolumeSpike: tick volume >= 1.2x the average of the preceding 20 bars.
func (b *BreakoutCascade) g3VolumeSpike(in BreakoutInputs) GateDecision {
	mult := b.gates.BreakoutVolumeSpikeMult
	if mult <= 0 {
		mult = 1.2
	}
	pass := in.AvgVolume20 > 0 && in.TickVolume >= mult*in.AvgVolume20
	return gateResult("G3_volume_spike", pass, ReasonNoVolumeSpike)
}

// proximityMultiplier returns k: 0.5 on sub-hourly, 1.0 on hourly, 1.5
// above hourly. Accepts duration strings ("15m", "1h", "4h") and MT4-style
// names ("M15", "H1", "H4").
func proximityMultiplier(tf core.Timeframe) float64 {
	if d, err := time.ParseDuration(strings.ToLower(string(tf))); err == nil {
		switch {
		case d < time.Hour:
			return 0.5
		case d == time.Hour:
			return 1.0
		default:
			return 1.5
		}
	}
	s := strings.ToUpper(string(tf))
	switch {
	case strings.HasPrefix(s, "M"):
		return 0.5
	case s == "H1":
		return 1.0
	default:
		return 1.5
	}
}
