package regime

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/raykavin/backnrun/core"
)

func defaultSettings() core.RegimeSettings {
	return core.RegimeSettings{
		ADXTrendThreshold: 30,
		ADXBreakoutMin:    20,
		HighVolMultiplier: 2.0,
	}
}

func TestClassifyTrendBull(t *testing.T) {
	c := NewClassifier(defaultSettings())
	snap, err := c.Classify(context.Background(), Inputs{
		Timestamp: time.Now(), ADXPrimary: 32, ADXSecondary: 36, ADXTertiary: 34,
		PlusDI: 30, MinusDI: 15, ATRCurrent: 0.0010, ATRAverage: 0.0008,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Label != core.RegimeTrendBull {
		t.Fatalf("expected TrendBull, got %s", snap.Label)
	}
	if snap.Confidence <= 0 || snap.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", snap.Confidence)
	}
}

func TestClassifyHighVolatilityTakesPriority(t *testing.T) {
	c := NewClassifier(defaultSettings())
	snap, err := c.Classify(context.Background(), Inputs{
		ADXPrimary: 35, PlusDI: 30, MinusDI: 10, ATRCurrent: 0.0030, ATRAverage: 0.0008,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Label != core.RegimeHighVolatility {
		t.Fatalf("expected HighVolatility to take priority, got %s", snap.Label)
	}
}

func TestClassifyRanging(t *testing.T) {
	c := NewClassifier(defaultSettings())
	snap, err := c.Classify(context.Background(), Inputs{
		ADXPrimary: 12, ADXSecondary: 14, ADXTertiary: 10, PlusDI: 20, MinusDI: 19,
		ATRCurrent: 0.0008, ATRAverage: 0.0008,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Label != core.RegimeRanging {
		t.Fatalf("expected Ranging, got %s", snap.Label)
	}
}

func TestClassifyDataNotReady(t *testing.T) {
	c := NewClassifier(defaultSettings())
	_, err := c.Classify(context.Background(), Inputs{ADXPrimary: math.NaN()})
	if err == nil {
		t.Fatal("expected error for NaN input")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(defaultSettings())
	in := Inputs{ADXPrimary: 32, ADXSecondary: 36, ADXTertiary: 34, PlusDI: 30, MinusDI: 15, ATRCurrent: 0.0010, ATRAverage: 0.0008}
	s1, _ := c.Classify(context.Background(), in)
	s2, _ := c.Classify(context.Background(), in)
	if s1.Label != s2.Label || s1.Confidence != s2.Confidence {
		t.Fatalf("classification not deterministic: %+v vs %+v", s1, s2)
	}
}

func TestConfidenceMonotoneInAgreement(t *testing.T) {
	c := NewClassifier(defaultSettings())
	agree, _ := c.Classify(context.Background(), Inputs{
		ADXPrimary: 32, ADXSecondary: 32, ADXTertiary: 32, PlusDI: 30, MinusDI: 15, ATRCurrent: 0.0010, ATRAverage: 0.0008,
	})
	disagree, _ := c.Classify(context.Background(), Inputs{
		ADXPrimary: 32, ADXSecondary: 10, ADXTertiary: 50, PlusDI: 30, MinusDI: 15, ATRCurrent: 0.0010, ATRAverage: 0.0008,
	})
	if agree.Confidence < disagree.Confidence {
		t.Fatalf("expected full timeframe agreement to not decrease confidence: agree=%v disagree=%v", agree.Confidence, disagree.Confidence)
	}
}
