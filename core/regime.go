package core

import "time"

// RegimeLabel classifies the prevailing market regime. The label is derived
// deterministically from a RegimeSnapshot's inputs: identical inputs always
// yield the same label (§3 invariant).
type RegimeLabel string

const (
	RegimeTrendBull     RegimeLabel = "trend_bull"
	RegimeTrendBear     RegimeLabel = "trend_bear"
	RegimeBreakoutSetup RegimeLabel = "breakout_setup"
	RegimeRanging       RegimeLabel = "ranging"
	RegimeHighVolatility RegimeLabel = "high_volatility"
)

// RegimeSnapshot is an immutable record produced once per classification
// cycle. Only the most recent snapshot is retained by the Regime Classifier;
// prior snapshots are discarded (§3).
type RegimeSnapshot struct {
	Timestamp time.Time

	ADXPrimary   float64
	ADXSecondary float64
	ADXTertiary  float64
	PlusDI       float64
	MinusDI      float64

	ATRCurrent float64
	ATRAverage float64

	Label      RegimeLabel
	Confidence float64 // in [0, 1]
}

// Direction reports whether the snapshot favors longs, shorts, or neither.
func (s RegimeSnapshot) Direction() Direction {
	switch s.Label {
	case RegimeTrendBull:
		return DirectionBuy
	case RegimeTrendBear:
		return DirectionSell
	default:
		return DirectionNone
	}
}
