package construct

import (
	"errors"
	"math"
	"testing"

	"github.com/raykavin/backnrun/core"
)

func defaultStopSettings() core.StopSettings {
	return core.StopSettings{
		SLAtrMult:           1.2,
		TPRewardRatio:       3.0,
		MinKeyLevelStrength: 0.6,
	}
}

func defaultSymbol() core.SymbolInfo {
	return core.SymbolInfo{
		Digits:          5,
		Point:           0.00001,
		MinStopDistance: 0.0001,
	}
}

// S1: SL = entry - 12 pips (1.2 * ATR(0.001)*... ), TP = entry + 3*ATR, no cap.
func TestBuildTrendLongNoKeyLevel(t *testing.T) {
	c := NewConstructor(defaultStopSettings(), defaultSymbol())
	intent, err := c.Build(Inputs{
		Direction:  core.DirectionBuy,
		Regime:     core.RegimeTrendBull,
		Entry:      1.10050,
		Open:       1.10000,
		Close:      1.10050, // ratio 0.5, non-momentum -> 3.0x ATR band
		ATRCurrent: 0.0010,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantSL := 1.10050 - 1.2*0.0010
	wantTP := 1.10050 + 3.0*0.0010
	if math.Abs(intent.StopLoss-wantSL) > 1e-9 {
		t.Fatalf("SL = %v, want %v", intent.StopLoss, wantSL)
	}
	if math.Abs(intent.TakeProfit-wantTP) > 1e-9 {
		t.Fatalf("TP = %v, want %v", intent.TakeProfit, wantTP)
	}
	if !(intent.StopLoss < intent.Entry && intent.Entry < intent.TakeProfit) {
		t.Fatalf("expected SL < entry < TP for long, got SL=%v entry=%v TP=%v", intent.StopLoss, intent.Entry, intent.TakeProfit)
	}
}

func TestBuildRejectsZeroATR(t *testing.T) {
	c := NewConstructor(defaultStopSettings(), defaultSymbol())
	_, err := c.Build(Inputs{Direction: core.DirectionBuy, Entry: 1.1, ATRCurrent: 0})
	if !errors.Is(err, core.ErrValidationRejected) {
		t.Fatalf("expected ErrValidationRejected, got %v", err)
	}
}

func TestKeyLevelCapAppliedWhenRRHolds(t *testing.T) {
	c := NewConstructor(defaultStopSettings(), defaultSymbol())
	level := &core.KeyLevel{Price: 1.1020, Strength: 0.9}
	intent, err := c.Build(Inputs{
		Direction:  core.DirectionBuy,
		Entry:      1.1000,
		Open:       1.0995,
		Close:      1.1000,
		ATRCurrent: 0.0010,
		KeyLevel:   level,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// naive TP = 1.1000 + 3*0.0010 = 1.1030; level 1.1020 lies between.
	if intent.TakeProfit >= 1.1030 {
		t.Fatalf("expected TP capped below naive TP, got %v", intent.TakeProfit)
	}
	risk := intent.Entry - intent.StopLoss
	reward := intent.TakeProfit - intent.Entry
	if reward/risk < 1.5-1e-9 {
		t.Fatalf("expected R:R >= 1.5 after cap, got %v", reward/risk)
	}
}

func TestKeyLevelCapRejectedWhenRRFloorViolated(t *testing.T) {
	c := NewConstructor(defaultStopSettings(), defaultSymbol())
	// Level sits right at entry+epsilon: capped TP distance ~= 0, R:R collapses.
	level := &core.KeyLevel{Price: 1.10005, Strength: 0.9}
	intent, err := c.Build(Inputs{
		Direction:  core.DirectionBuy,
		Entry:      1.1000,
		Open:       1.0995,
		Close:      1.1000,
		ATRCurrent: 0.0010,
		KeyLevel:   level,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Cap rejected: TP should remain the naive, uncapped target.
	wantTP := 1.1000 + 3.0*0.0010
	if math.Abs(intent.TakeProfit-wantTP) > 1e-9 {
		t.Fatalf("expected cap rejected (TP=%v), got %v", wantTP, intent.TakeProfit)
	}
}

func TestNormalizeWidensStopsToMinimumDistance(t *testing.T) {
	symbol := defaultSymbol()
	symbol.MinStopDistance = 0.0005
	c := NewConstructor(core.StopSettings{SLAtrMult: 0.1}, symbol)
	intent, err := c.Build(Inputs{
		Direction:  core.DirectionBuy,
		Entry:      1.1000,
		Open:       1.1000,
		Close:      1.1000,
		ATRCurrent: 0.0001, // SL dist = 0.1*0.0001 = 0.00001, below min
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Entry-intent.StopLoss < symbol.MinStopDistance-1e-12 {
		t.Fatalf("expected SL widened to min distance, got dist %v", intent.Entry-intent.StopLoss)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	c := NewConstructor(defaultStopSettings(), defaultSymbol())
	intent := core.OrderIntent{Direction: core.DirectionBuy, Entry: 1.1, StopLoss: 1.0995, TakeProfit: 1.1020}
	once := c.normalize(intent)
	twice := c.normalize(once)
	if once != twice {
		t.Fatalf("expected normalize to be idempotent: once=%+v twice=%+v", once, twice)
	}
}

func TestPendingOrderRejectsTooCloseTrigger(t *testing.T) {
	symbol := defaultSymbol()
	symbol.MinStopDistance = 0.0010
	c := NewConstructor(defaultStopSettings(), symbol)
	_, err := c.Build(Inputs{
		Direction:  core.DirectionBuy,
		Entry:      1.1000,
		Open:       1.0990,
		Close:      1.1000,
		ATRCurrent: 0.0010,
		Pending:    true,
		Ask:        1.09995, // only 0.00005 away, below min_stop_distance
	})
	if !errors.Is(err, core.ErrValidationRejected) {
		t.Fatalf("expected ErrValidationRejected for too-close trigger, got %v", err)
	}
}

func TestTPMultiplierLadderBands(t *testing.T) {
	c := NewConstructor(core.StopSettings{SLAtrMult: 1.0}, defaultSymbol())
	cases := []struct {
		name       string
		ratio      float64
		wantMult   float64
	}{
		{"ultra surge >3", 3.5, 1.5},
		{"surge 2-3", 2.5, 2.0},
		{"surge 1.5-2", 1.7, 2.5},
		{"below momentum threshold", 0.5, 3.0},
	}
	for _, tc := range cases {
		atr := 0.0010
		openPrice := 1.1000
		closePrice := openPrice + tc.ratio*atr
		intent, err := c.Build(Inputs{
			Direction:  core.DirectionBuy,
			Entry:      1.1000,
			Open:       openPrice,
			Close:      closePrice,
			ATRCurrent: atr,
		})
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		wantTP := 1.1000 + tc.wantMult*atr
		if math.Abs(intent.TakeProfit-wantTP) > 1e-9 {
			t.Errorf("%s: TP = %v, want %v", tc.name, intent.TakeProfit, wantTP)
		}
	}
}
