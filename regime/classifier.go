// Package regime implements the Regime Classifier (spec §4.1): it turns a
// multi-timeframe ADX/ATR/DI snapshot into a RegimeSnapshot, applying the
// classification rules in order (first match wins) and blending a
// monotone confidence score.
package regime

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/raykavin/backnrun/core"
)

// Inputs is the raw multi-timeframe snapshot consumed by Classify.
type Inputs struct {
	Timestamp    time.Time
	ADXPrimary   float64
	ADXSecondary float64
	ADXTertiary  float64
	PlusDI       float64
	MinusDI      float64
	ATRCurrent   float64
	ATRAverage   float64
}

// Classifier owns the most recent RegimeSnapshot (§3 ownership rule) and
// applies the classification rules from §4.1.
type Classifier struct {
	settings core.RegimeSettings
	last     core.RegimeSnapshot
	hasLast  bool
}

// NewClassifier builds a Classifier from the configured thresholds.
func NewClassifier(settings core.RegimeSettings) *Classifier {
	return &Classifier{settings: settings}
}

// Last returns the most recently produced snapshot, if any.
func (c *Classifier) Last() (core.RegimeSnapshot, bool) {
	return c.last, c.hasLast
}

// Classify derives a RegimeSnapshot from in. Returns core.ErrDataNotReady
// when any input has not yet produced a value (represented as NaN), in
// which case the caller treats this as "no regime change this cycle".
func (c *Classifier) Classify(ctx context.Context, in Inputs) (core.RegimeSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.RegimeSnapshot{}, err
	}

	for _, v := range []float64{in.ADXPrimary, in.ADXSecondary, in.ADXTertiary, in.PlusDI, in.MinusDI, in.ATRCurrent, in.ATRAverage} {
		if math.IsNaN(v) {
			return core.RegimeSnapshot{}, fmt.Errorf("regime classify: %w", core.ErrDataNotReady)
		}
	}

	label, excess := c.classifyLabel(in)
	confidence := c.confidence(in, excess)

	snap := core.RegimeSnapshot{
		Timestamp:    in.Timestamp,
		ADXPrimary:   in.ADXPrimary,
		ADXSecondary: in.ADXSecondary,
		ADXTertiary:  in.ADXTertiary,
		PlusDI:       in.PlusDI,
		MinusDI:      in.MinusDI,
		ATRCurrent:   in.ATRCurrent,
		ATRAverage:   in.ATRAverage,
		Label:        label,
		Confidence:   confidence,
	}

	c.last = snap
	c.hasLast = true
	return snap, nil
}

// classifyLabel applies the ordered rules from §4.1 and returns the label
// plus a [0,1] "excess" term (how far past the deciding threshold) used by
// the confidence blend.
func (c *Classifier) classifyLabel(in Inputs) (core.RegimeLabel, float64) {
	s := c.settings

	if in.ATRAverage > 0 && in.ATRCurrent >= s.HighVolMultiplier*in.ATRAverage {
		ratio := in.ATRCurrent / (s.HighVolMultiplier * in.ATRAverage)
		return core.RegimeHighVolatility, clamp01(ratio - 1)
	}

	if in.ADXPrimary >= s.ADXTrendThreshold && in.PlusDI > in.MinusDI {
		return core.RegimeTrendBull, trendExcess(in.ADXPrimary, s.ADXTrendThreshold)
	}

	if in.ADXPrimary >= s.ADXTrendThreshold && in.MinusDI > in.PlusDI {
		return core.RegimeTrendBear, trendExcess(in.ADXPrimary, s.ADXTrendThreshold)
	}

	if in.ADXPrimary >= s.ADXBreakoutMin && in.ADXPrimary < s.ADXTrendThreshold {
		span := s.ADXTrendThreshold - s.ADXBreakoutMin
		if span <= 0 {
			return core.RegimeBreakoutSetup, 0.5
		}
		return core.RegimeBreakoutSetup, clamp01((in.ADXPrimary - s.ADXBreakoutMin) / span)
	}

	// Ranging: the lower ADX sits below the breakout floor, the more
	// confident the "no trend" read is.
	if s.ADXBreakoutMin > 0 {
		return core.RegimeRanging, clamp01(1 - in.ADXPrimary/s.ADXBreakoutMin)
	}
	return core.RegimeRanging, 0.5
}

func trendExcess(adx, threshold float64) float64 {
	if threshold <= 0 {
		return 0.5
	}
	return clamp01((adx - threshold) / threshold)
}

// confidence blends the rule excess with multi-timeframe ADX agreement.
// Both terms are monotone: strictly increasing excess, or strictly
// increasing agreement (lower timeframe dispersion), never decreases
// confidence (spec §4.1 requirement; Open Question in §9 — the exact blend
// is ad hoc, this documents the chosen formula).
func (c *Classifier) confidence(in Inputs, excess float64) float64 {
	mean, std := stat.MeanStdDev([]float64{in.ADXPrimary, in.ADXSecondary, in.ADXTertiary}, nil)
	agreement := 1.0
	if mean > 0 {
		agreement = clamp01(1 - std/mean)
	}

	const excessWeight, agreementWeight = 0.6, 0.4
	return clamp01(excessWeight*excess + agreementWeight*agreement)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
