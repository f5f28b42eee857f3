package signal

import (
	"context"
	"testing"
	"time"

	"github.com/raykavin/backnrun/core"
)

func passingTrendInputs() TrendInputs {
	return TrendInputs{
		Direction:          core.DirectionBuy,
		Price:              1.1010,
		Open:                1.1000,
		Close:                1.1005,
		EMA20:              1.1000,
		EMA50Primary:       1.0990,
		EMA200Primary:      1.0950,
		EMA50Secondary:     1.0985,
		EMA200Secondary:    1.0940,
		ADXPrimary:         25,
		ADXSecondary:       22,
		ATRCurrent:         0.0010,
		RSISecondary:       55,
		RSITertiary:        55,
		TertiaryAvailable:  true,
		RSIChart:           50,
		TrendOracleBullish: true,
	}
}

func TestTrendCascadePassesOnAgreement(t *testing.T) {
	c := NewTrendCascade(defaultGateSettings())
	d := c.Evaluate(context.Background(), time.Now(), passingTrendInputs())
	if !d.Pass {
		t.Fatalf("expected cascade to pass, rejected at %v", d.Reason)
	}
	if d.Signal == nil || d.Signal.Direction != core.DirectionBuy {
		t.Fatalf("expected a buy signal, got %+v", d.Signal)
	}
}

func TestTrendOracleDisagreementRejectsWithoutOverride(t *testing.T) {
	c := NewTrendCascade(defaultGateSettings())
	in := passingTrendInputs()
	in.TrendOracleBullish = false
	in.ADXPrimary = 25
	in.ADXSecondary = 22

	d := c.Evaluate(context.Background(), time.Now(), in)
	if d.Pass {
		t.Fatalf("expected rejection on oracle disagreement without override")
	}
	if d.Reason != ReasonTrendOracleDisagree {
		t.Fatalf("expected ReasonTrendOracleDisagree, got %v", d.Reason)
	}
}

func TestStrongLocalTrendOverridesOracleDisagreement(t *testing.T) {
	c := NewTrendCascade(defaultGateSettings())
	in := passingTrendInputs()
	in.TrendOracleBullish = false
	in.ADXPrimary = 45 // above override threshold of 40

	d := c.Evaluate(context.Background(), time.Now(), in)
	if !d.Pass {
		t.Fatalf("expected override to let the cascade pass, rejected at %v", d.Reason)
	}
}

func TestPullbackGateRejectsWhenTooFarFromEMA20(t *testing.T) {
	c := NewTrendCascade(defaultGateSettings())
	in := passingTrendInputs()
	in.Price = in.EMA20 + 10*in.ATRCurrent // far beyond baseline 3.5x ATR

	d := c.Evaluate(context.Background(), time.Now(), in)
	if d.Pass || d.Reason != ReasonPullbackTooFar {
		t.Fatalf("expected ReasonPullbackTooFar, got pass=%v reason=%v", d.Pass, d.Reason)
	}
}

func TestSentimentAgreementExtendsPullbackTolerance(t *testing.T) {
	c := NewTrendCascade(defaultGateSettings())
	in := passingTrendInputs()
	// 4.2x ATR: beyond the 3.5 baseline but within the 4.5 sentiment-extended ceiling.
	in.Price = in.EMA20 + 4.2*in.ATRCurrent
	in.Sentiment = core.Sentiment{Label: core.SentimentStrongBuy, Confidence: 1.0}

	d := c.Evaluate(context.Background(), time.Now(), in)
	if !d.Pass {
		t.Fatalf("expected sentiment agreement to extend pullback tolerance, rejected at %v", d.Reason)
	}
}

func TestChartRSIOutOfRangeRejects(t *testing.T) {
	c := NewTrendCascade(defaultGateSettings())
	in := passingTrendInputs()
	in.RSIChart = 85

	d := c.Evaluate(context.Background(), time.Now(), in)
	if d.Pass || d.Reason != ReasonChartRSIOutOfRange {
		t.Fatalf("expected ReasonChartRSIOutOfRange, got pass=%v reason=%v", d.Pass, d.Reason)
	}
}

func TestEMAAlignmentGateWhenEnabled(t *testing.T) {
	settings := defaultGateSettings()
	settings.EnableEMAAlignment = true
	c := NewTrendCascade(settings)

	in := passingTrendInputs()
	in.EMA50Primary = 1.0900 // below EMA200Primary: misaligned for a long
	in.EMA200Primary = 1.0950

	d := c.Evaluate(context.Background(), time.Now(), in)
	if d.Pass || d.Reason != ReasonEMANotAligned {
		t.Fatalf("expected ReasonEMANotAligned, got pass=%v reason=%v", d.Pass, d.Reason)
	}
}
