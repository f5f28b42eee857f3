// Package construct implements the Order Constructor (spec §4.5): it
// derives SL/TP from regime, ATR and direction, applies the key-level TP
// cap, and normalizes SL/TP to the broker's minimum stop distance. It does
// not set or round the intent's volume. Grounded on the ATR-multiple stop-distance idiom in the
// bitunixbot executor (fixed stop = k * ATR, trailing = k' * ATR).
package construct

import (
	"fmt"

	"github.com/raykavin/backnrun/core"
)

// Inputs is everything the constructor needs to derive an OrderIntent.
type Inputs struct {
	Direction  core.Direction
	Regime     core.RegimeLabel
	Entry      float64
	Open       float64
	Close      float64
	ATRCurrent float64
	KeyLevel   *core.KeyLevel // nearest strong level between entry and naive TP, if any
	Pending    bool           // true for stop/limit orders, false for market
	Bid        float64
	Ask        float64
}

// Constructor builds OrderIntents from Inputs (§4.5).
type Constructor struct {
	stops  core.StopSettings
	symbol core.SymbolInfo
}

// NewConstructor builds a Constructor from the configured stop settings
// and the broker's symbol metadata.
func NewConstructor(stops core.StopSettings, symbol core.SymbolInfo) *Constructor {
	return &Constructor{stops: stops, symbol: symbol}
}

// Build computes SL/TP, applies the key-level TP cap, and normalizes the
// result. Returns a wrapped core.ErrValidationRejected if ATR is zero
// (§8 boundary case), the direction is missing, or a pending order's
// trigger sits too close to the current bid/ask.
func (c *Constructor) Build(in Inputs) (core.OrderIntent, error) {
	if in.ATRCurrent <= 0 {
		return core.OrderIntent{}, fmt.Errorf("construct: ATR is zero: %w", core.ErrValidationRejected)
	}
	if in.Direction != core.DirectionBuy && in.Direction != core.DirectionSell {
		return core.OrderIntent{}, fmt.Errorf("construct: direction required: %w", core.ErrValidationRejected)
	}

	sl := c.computeSL(in)
	tp := c.computeTP(in)
	tp = c.applyKeyLevelCap(in, sl, tp)

	kind := core.OrderKindMarket
	if in.Pending {
		if in.Direction == core.DirectionBuy {
			kind = core.OrderKindBuyStop
		} else {
			kind = core.OrderKindSellStop
		}
	}

	intent := core.OrderIntent{
		Direction:  in.Direction,
		Kind:       kind,
		Entry:      in.Entry,
		StopLoss:   sl,
		TakeProfit: tp,
	}

	intent = c.normalize(intent)

	if in.Pending {
		if err := c.validateTriggerDistance(intent, in); err != nil {
			return core.OrderIntent{}, err
		}
	}

	return intent, nil
}

// computeSL: entry -/+ sl_atr_mult * ATR.
func (c *Constructor) computeSL(in Inputs) float64 {
	dist := c.stops.SLAtrMult * in.ATRCurrent
	if in.Direction == core.DirectionBuy {
		return in.Entry - dist
	}
	return in.Entry + dist
}

// computeTP: for momentum trades the TP multiplier adapts to the surge
// ratio in non-overlapping bands so every branch is reachable (spec §9
// design note flags a dead 2.5 band in the source's ladder; this
// implementation's bands never overlap):
//
//	ratio > 3   -> 1.5x ATR (take quick)
//	ratio > 2   -> 2.0x ATR
//	ratio > 1.5 -> 2.5x ATR
//	otherwise   -> 3.0x ATR
func (c *Constructor) computeTP(in Inputs) float64 {
	ratio := 0.0
	if in.ATRCurrent > 0 {
		ratio = absFloat(in.Close-in.Open) / in.ATRCurrent
	}

	var mult float64
	switch {
	case ratio > 3:
		mult = 1.5
	case ratio > 2:
		mult = 2.0
	case ratio > 1.5:
		mult = 2.5
	default:
		mult = 3.0
	}

	dist := mult * in.ATRCurrent
	if in.Direction == core.DirectionBuy {
		return in.Entry + dist
	}
	return in.Entry - dist
}

// applyKeyLevelCap caps TP at a strong key level lying between entry and
// the naive TP, provided the capped TP still yields >= 1.5:1 R:R;
// otherwise the cap is rejected and the naive TP is kept, preserving R:R
// (§4.5, §8 R:R floor invariant).
func (c *Constructor) applyKeyLevelCap(in Inputs, sl, naiveTP float64) float64 {
	lvl := in.KeyLevel
	if lvl == nil || !lvl.IsStrong(c.stops.MinKeyLevelStrength) {
		return naiveTP
	}

	between := false
	if in.Direction == core.DirectionBuy {
		between = lvl.Price > in.Entry && lvl.Price < naiveTP
	} else {
		between = lvl.Price < in.Entry && lvl.Price > naiveTP
	}
	if !between {
		return naiveTP
	}

	buffer := c.tpBuffer(in.ATRCurrent)
	var capped float64
	if in.Direction == core.DirectionBuy {
		capped = lvl.Price - buffer
	} else {
		capped = lvl.Price + buffer
	}

	riskDist := absFloat(in.Entry - sl)
	if riskDist <= 0 {
		return naiveTP
	}
	rewardDist := absFloat(capped - in.Entry)
	if rewardDist/riskDist < 1.5-1e-9 {
		// Cap would violate the R:R floor (§8 boundary: level at entry
		// produces zero TP distance); reject the cap.
		return naiveTP
	}
	return capped
}

// tpBuffer = max(5 points, 0.2 * ATR).
func (c *Constructor) tpBuffer(atr float64) float64 {
	fivePoints := 5 * c.symbol.Point
	atrBuffer := 0.2 * atr
	if atrBuffer > fivePoints {
		return atrBuffer
	}
	return fivePoints
}

// normalize widens SL/TP to the broker minimum distance and guarantees
// the correct side of entry, applied last (§4.5, §8 stop-side and
// broker-distance invariants). Idempotent: a second call is a no-op.
func (c *Constructor) normalize(intent core.OrderIntent) core.OrderIntent {
	minDist := c.symbol.MinStopDistance

	if intent.Direction == core.DirectionBuy {
		if intent.Entry-intent.StopLoss < minDist {
			intent.StopLoss = intent.Entry - minDist
		}
		if intent.TakeProfit-intent.Entry < minDist {
			intent.TakeProfit = intent.Entry + minDist
		}
	} else {
		if intent.StopLoss-intent.Entry < minDist {
			intent.StopLoss = intent.Entry + minDist
		}
		if intent.Entry-intent.TakeProfit < minDist {
			intent.TakeProfit = intent.Entry - minDist
		}
	}

	return intent
}

// validateTriggerDistance ensures a pending order's trigger price sits at
// least min_stop_distance from the current bid/ask on the correct side.
func (c *Constructor) validateTriggerDistance(intent core.OrderIntent, in Inputs) error {
	minDist := c.symbol.MinStopDistance
	var ref float64
	if intent.Direction == core.DirectionBuy {
		ref = in.Ask
		if intent.Entry-ref < minDist {
			return fmt.Errorf("construct: pending buy trigger %.6f too close to ask %.6f: %w", intent.Entry, ref, core.ErrValidationRejected)
		}
		return nil
	}
	ref = in.Bid
	if ref-intent.Entry < minDist {
		return fmt.Errorf("construct: pending sell trigger %.6f too close to bid %.6f: %w", intent.Entry, ref, core.ErrValidationRejected)
	}
	return nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
