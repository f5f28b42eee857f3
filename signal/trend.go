package signal

import (
	"context"
	"time"

	"github.com/raykavin/backnrun/core"
)

// TrendInputs is everything the trend cascade's gates read. Direction
// selects which mirror (bullish/bearish) is being evaluated; the gate
// logic is identical either way, only the comparisons flip (§4.2).
type TrendInputs struct {
	Direction core.Direction

	Price float64
	Open  float64
	Close float64
	EMA20 float64

	EMA50Primary    float64
	EMA200Primary   float64
	EMA50Secondary  float64
	EMA200Secondary float64

	ADXPrimary   float64
	ADXSecondary float64

	ATRCurrent float64

	RSISecondary      float64
	RSITertiary       float64
	TertiaryAvailable bool
	RSIChart          float64

	TrendOracleBullish bool
	Sentiment          core.Sentiment
}

// TrendCascade implements the bullish/bearish trend cascade (§4.2).
type TrendCascade struct {
	gates core.GateSettings
}

// NewTrendCascade builds a TrendCascade from the configured thresholds.
func NewTrendCascade(gates core.GateSettings) *TrendCascade {
	return &TrendCascade{gates: gates}
}

// Evaluate runs G1..G5 in order and returns the full decision artifact.
func (t *TrendCascade) Evaluate(ctx context.Context, now time.Time, in TrendInputs) CascadeDecision {
	regime := core.RegimeTrendBull
	if in.Direction == core.DirectionSell {
		regime = core.RegimeTrendBear
	}

	var gates []GateDecision
	gates = append(gates, t.g1TrendOracle(in))
	if t.gates.EnableEMAAlignment {
		gates = append(gates, t.g2EMAAlignment(in))
	}
	gates = append(gates, t.g3Pullback(in))
	gates = append(gates, t.g4MTFRSIExhaustion(in, regime))
	gates = append(gates, t.g5ChartRSIMomentum(in))

	decision := CascadeDecision{
		Timestamp: now,
		Regime:    regime,
		Gates:     gates,
		Pass:      allPass(gates),
		Reason:    firstRejection(gates),
	}

	if decision.Pass {
		momentumRatio := 0.0
		if in.ATRCurrent > 0 {
			momentumRatio = absFloat(in.Close-in.Open) / in.ATRCurrent
		}
		decision.Signal = &Signal{
			Direction:     in.Direction,
			Regime:        regime,
			MomentumRatio: momentumRatio,
			UltraSurge:    momentumRatio > 3,
			SuggestedKind: core.OrderKindMarket,
		}
	}

	return decision
}

// g1TrendOracle: an external trend oracle must agree with direction, unless
// a strong local trend overrides it (ADX_secondary > 35 or ADX_primary > 40).
func (t *TrendCascade) g1TrendOracle(in TrendInputs) GateDecision {
	oracleAgrees := in.TrendOracleBullish == (in.Direction == core.DirectionBuy)
	override := in.ADXSecondary > t.gates.TrendOracleOverrideADXSecondary ||
		in.ADXPrimary > t.gates.TrendOracleOverrideADXPrimary

	pass := oracleAgrees || override
	return gateResult("G1_trend_oracle", pass, ReasonTrendOracleDisagree)
}

// g2EMAAlignment: EMA(50) > EMA(200) on both primary and secondary
// timeframes (mirrored for bearish). Off by default.
func (t *TrendCascade) g2EMAAlignment(in TrendInputs) GateDecision {
	var pass bool
	if in.Direction == core.DirectionBuy {
		pass = in.EMA50Primary > in.EMA200Primary && in.EMA50Secondary > in.EMA200Secondary
	} else {
		pass = in.EMA50Primary < in.EMA200Primary && in.EMA50Secondary < in.EMA200Secondary
	}
	return gateResult("G2_ema_alignment", pass, ReasonEMANotAligned)
}

// g3Pullback: distance from price to EMA(20) must not exceed M * ATR,
// where M is raised from 3.5 toward 4.0-4.5 when sentiment agrees with
// direction at >= 0.5 confidence.
func (t *TrendCascade) g3Pullback(in TrendInputs) GateDecision {
	if in.ATRCurrent <= 0 {
		return gateResult("G3_pullback", false, ReasonATRZero)
	}

	m := t.gates.PullbackATRMultBaseline
	if in.Sentiment.AgreesWith(in.Direction, t.gates.SentimentMinConfidence) {
		span := t.gates.PullbackATRMultMax - t.gates.PullbackATRMultBaseline
		m = t.gates.PullbackATRMultBaseline + span*clamp01(in.Sentiment.Confidence)
	}

	dist := absFloat(in.Price - in.EMA20)
	pass := dist <= m*in.ATRCurrent
	return gateResult("G3_pullback", pass, ReasonPullbackTooFar)
}

// g4MTFRSIExhaustion: RSI on the secondary TF must sit below the
// overbought threshold (above oversold for bearish); tertiary TF is
// optional but, if available, must also pass.
func (t *TrendCascade) g4MTFRSIExhaustion(in TrendInputs, regime core.RegimeLabel) GateDecision {
	overbought, oversold := mtfRSIThresholds(regime, in.ADXSecondary)

	var pass bool
	if in.Direction == core.DirectionBuy {
		pass = in.RSISecondary < overbought
		if in.TertiaryAvailable {
			pass = pass && in.RSITertiary < overbought
		}
	} else {
		pass = in.RSISecondary > oversold
		if in.TertiaryAvailable {
			pass = pass && in.RSITertiary > oversold
		}
	}
	return gateResult("G4_mtf_rsi_exhaustion", pass, ReasonMTFRSIExhausted)
}

// g5ChartRSIMomentum: chart-timeframe RSI must sit in [25,80) for
// bullish, (20,75] for bearish.
func (t *TrendCascade) g5ChartRSIMomentum(in TrendInputs) GateDecision {
	var pass bool
	if in.Direction == core.DirectionBuy {
		pass = in.RSIChart >= 25 && in.RSIChart < 80
	} else {
		pass = in.RSIChart > 20 && in.RSIChart <= 75
	}
	return gateResult("G5_chart_rsi_momentum", pass, ReasonChartRSIOutOfRange)
}

func gateResult(name string, pass bool, reason GateReason) GateDecision {
	if pass {
		return GateDecision{Gate: name, Pass: true}
	}
	return GateDecision{Gate: name, Pass: false, Reason: reason}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
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
