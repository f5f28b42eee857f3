// Package signal implements the Signal Gate Cascade (spec §4.2): one
// cascade per regime, each gate returning pass or a typed rejection reason
// (never a free string used for control flow). A signal is emitted only
// when every gate in the cascade passes.
package signal

import (
	"time"

	"github.com/raykavin/backnrun/core"
)

// GateReason is a tagged rejection reason, preserved verbatim for the
// Reporter (§4.2).
type GateReason string

const (
	ReasonNone GateReason = ""

	ReasonATRZero GateReason = "atr_zero"

	ReasonTrendOracleDisagree GateReason = "trend_oracle_disagree"
	ReasonEMANotAligned       GateReason = "ema_not_aligned"
	ReasonPullbackTooFar      GateReason = "pullback_too_far"
	ReasonMTFRSIExhausted     GateReason = "mtf_rsi_exhausted"
	ReasonChartRSIOutOfRange  GateReason = "chart_rsi_out_of_range"

	ReasonNoBreakoutPattern GateReason = "no_breakout_pattern"
	ReasonNotNearKeyLevel   GateReason = "not_near_key_level"
	ReasonNoVolumeSpike     GateReason = "no_volume_spike"

	ReasonNoOpposingLevels   GateReason = "no_opposing_levels"
	ReasonRangeTooNarrow     GateReason = "range_too_narrow"
	ReasonSpreadTooWide      GateReason = "spread_too_wide"
	ReasonADXTooHigh         GateReason = "adx_too_high"
	ReasonNotNearBoundary    GateReason = "not_near_boundary"
	ReasonStochNotConfirming GateReason = "stoch_not_confirming"
)

// GateDecision records one gate's evaluation within a cascade.
type GateDecision struct {
	Gate   string
	Pass   bool
	Reason GateReason
}

// Signal is the candidate trade produced by a fully-passed cascade. It
// flows into Risk Budget -> Position Sizer -> Order Constructor.
type Signal struct {
	Direction     core.Direction
	Regime        core.RegimeLabel
	MomentumRatio float64 // |close-open| / ATR
	UltraSurge    bool    // > 3x ATR: bypasses proximity/volume gates (breakout G1)
	NearLevel     *core.KeyLevel
	SuggestedKind core.OrderKind
	TriggerPrice  float64
}

// CascadeDecision is the decision artifact recorded for every evaluation,
// pass or reject, per gate (§4.2 "every gate records a decision artifact").
type CascadeDecision struct {
	Timestamp time.Time
	Regime    core.RegimeLabel
	Pass      bool
	Reason    GateReason
	Gates     []GateDecision
	Signal    *Signal
}

// firstRejection returns the reason of the first failing gate, or
// ReasonNone if all passed.
func firstRejection(gates []GateDecision) GateReason {
	for _, g := range gates {
		if !g.Pass {
			return g.Reason
		}
	}
	return ReasonNone
}

func allPass(gates []GateDecision) bool {
	for _, g := range gates {
		if !g.Pass {
			return false
		}
	}
	return true
}

// mtfRSIThresholds returns the regime-aware overbought/oversold thresholds
// for the multi-timeframe RSI exhaustion gate (§4.2 G4).
func mtfRSIThresholds(regime core.RegimeLabel, adxSecondary float64) (overbought, oversold float64) {
	switch {
	case adxSecondary > 30:
		return 80, 20
	case regime == core.RegimeBreakoutSetup:
		return 75, 25
	case regime == core.RegimeRanging:
		return 65, 35
	default:
		return 68, 32
	}
}
