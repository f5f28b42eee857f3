package signal

import (
	"context"
	"testing"
	"time"

	"github.com/raykavin/backnrun/core"
)

func TestRangeSellAtResistance(t *testing.T) {
	c := NewRangeCascade(defaultGateSettings())
	resistance := &core.KeyLevel{Price: 1.1050, Kind: core.KeyLevelResistance, Strength: 0.8}
	support := &core.KeyLevel{Price: 1.1020, Kind: core.KeyLevelSupport, Strength: 0.8}

	d := c.Evaluate(context.Background(), time.Now(), RangeInputs{
		Price:          1.10498,
		Spread:         0.0005,
		ADXPrimary:     16,
		ATRCurrent:     0.0006,
		Resistance:     resistance,
		Support:        support,
		StochKCurrent:  78,
		StochKPrevious: 85,
	})
	if !d.Pass {
		t.Fatalf("expected pass (S4 scenario), got reject: %v gates=%+v", d.Reason, d.Gates)
	}
	if d.Signal.Direction != core.DirectionSell {
		t.Fatalf("expected sell direction, got %v", d.Signal.Direction)
	}
}

func TestRangeRejectsWhenADXTooHigh(t *testing.T) {
	c := NewRangeCascade(defaultGateSettings())
	resistance := &core.KeyLevel{Price: 1.1050}
	support := &core.KeyLevel{Price: 1.1020}
	d := c.Evaluate(context.Background(), time.Now(), RangeInputs{
		Price:          1.10498,
		Spread:         0.0005,
		ADXPrimary:     25,
		Resistance:     resistance,
		Support:        support,
		StochKCurrent:  78,
		StochKPrevious: 85,
	})
	if d.Pass {
		t.Fatalf("expected reject on high ADX, got pass")
	}
	if d.Reason != ReasonADXTooHigh {
		t.Fatalf("expected ReasonADXTooHigh, got %v", d.Reason)
	}
}

func TestRangeRejectsWhenSpreadTooWideRelativeToWidth(t *testing.T) {
	c := NewRangeCascade(defaultGateSettings())
	resistance := &core.KeyLevel{Price: 1.1030}
	support := &core.KeyLevel{Price: 1.1020}
	d := c.Evaluate(context.Background(), time.Now(), RangeInputs{
		Price:      1.10298,
		Spread:     0.0008, // width 0.0010, spread/width > 1/1.5
		ADXPrimary: 15,
		Resistance: resistance,
		Support:    support,
	})
	if d.Pass {
		t.Fatalf("expected reject on narrow range vs spread, got pass")
	}
}

func TestRangeRequiresOpposingLevels(t *testing.T) {
	c := NewRangeCascade(defaultGateSettings())
	d := c.Evaluate(context.Background(), time.Now(), RangeInputs{
		Price:      1.1030,
		ADXPrimary: 15,
	})
	if d.Pass {
		t.Fatalf("expected reject without opposing levels, got pass")
	}
	if d.Reason != ReasonNoOpposingLevels {
		t.Fatalf("expected ReasonNoOpposingLevels, got %v", d.Reason)
	}
}
