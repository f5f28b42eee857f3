package core

import "time"

// Settings is every recognized configuration option from §6, all with
// sensible defaults (see config.Default()). It is passed by value to
// components at construction time — no package-level globals (spec §9
// design note).
type Settings struct {
	Symbol    string
	Timeframes TimeframeSettings
	Regime    RegimeSettings
	Risk      RiskSettings
	Stops     StopSettings
	RSI       RSISettings
	Scaling   ScalingSettings
	Gates     GateSettings
	Intervals IntervalSettings
	Notify    NotificationSettings
}

// NotificationSettings configures the operator-facing alert channels
// (§6): ExitBlocked positions, drawdown-gate trips, emergency suspensions.
type NotificationSettings struct {
	Telegram TelegramSettings
	Mail     MailSettings
}

// TelegramSettings configures the telegram.v2-backed Notifier.
type TelegramSettings struct {
	Enabled bool
	Token   string
	Users   []int
}

// MailSettings configures the net/smtp-backed Notifier.
type MailSettings struct {
	Enabled           bool
	SMTPServerAddress string
	SMTPServerPort    int
	From              string
	To                string
	Password          string
}

// TimeframeSettings names the chart/primary/secondary/tertiary timeframes
// the multi-timeframe components read from the Indicator Provider (§4.1
// ADX at three timeframes, §4.2 G4 multi-TF RSI, §4.7 RSI exits).
type TimeframeSettings struct {
	Chart     Timeframe
	Primary   Timeframe
	Secondary Timeframe
	Tertiary  Timeframe
}

// RegimeSettings configures the Regime Classifier (§4.1).
type RegimeSettings struct {
	ADXTrendThreshold  float64
	ADXBreakoutMin     float64
	ATRPeriod          int
	ATRAveragePeriod   int
	HighVolMultiplier  float64
}

// RiskSettings configures the Risk Budget and Position Sizer (§4.3, §4.4).
type RiskSettings struct {
	RiskPctTrend       float64
	RiskPctRange       float64
	RiskPctBreakout    float64
	MaxRiskPerTrade    float64
	MaxDrawdownPct     float64
	EquityPeakReset    float64
	MaxPositions       int
}

// RiskPercentFor returns the regime-keyed risk percent (§4.4).
func (r RiskSettings) RiskPercentFor(label RegimeLabel) float64 {
	switch label {
	case RegimeTrendBull, RegimeTrendBear:
		return r.RiskPctTrend
	case RegimeBreakoutSetup:
		return r.RiskPctBreakout
	case RegimeRanging:
		return r.RiskPctRange
	default:
		return r.RiskPctTrend
	}
}

// StopSettings configures the Order Constructor and Position Manager
// (§4.5, §4.7).
type StopSettings struct {
	SLAtrMult            float64
	TPRewardRatio        float64
	BreakevenATR         float64
	TrailingStartATR     float64
	PartialCloseATR      float64
	BreakevenBufferPips  float64
	TrailingATRMult      float64
	MinModifyPips        float64
	MinModifyATRFraction float64
	MinModifyCooldownSec int
	MinStopDistanceMult  float64
	MinKeyLevelStrength  float64
}

// RSISettings configures the multi-timeframe RSI gates and exits (§4.2 G4,
// §4.7 partial close).
type RSISettings struct {
	EnableMTFRSI          bool
	SecondaryOverbought   float64
	SecondaryOversold     float64
	TertiaryOverbought    float64
	TertiaryOversold      float64
	EnableRSIExits        bool
	ChartOverboughtExit   float64
	ChartOversoldExit     float64
	SecondaryOverboughtExit float64
	SecondaryOversoldExit   float64
	PartialCloseFraction  float64
	CooldownSec           int
	MinProfitPips         float64
}

// ScalingSettings configures the Scaling Controller (§4.8).
type ScalingSettings struct {
	Enable        bool
	RangePeriods  int
	RangeBuffer   float64
	MaxPositions  int
	MinRangeSize  float64
}

// GateSettings configures the Signal Gate Cascade thresholds (§4.2).
type GateSettings struct {
	EnableEMAAlignment      bool
	PullbackATRMultBaseline float64
	PullbackATRMultMax      float64
	SentimentMinConfidence  float64
	TrendOracleOverrideADXSecondary float64
	TrendOracleOverrideADXPrimary   float64
	BreakoutVolumeSpikeMult float64
	BreakoutUltraSurgeMult  float64
	BreakoutSurgeMult       float64
	RangeMinWidthSpreadMult float64
	RangeBoundaryProximityPct float64
}

// IntervalSettings configures the Event Loop's periodic work (§4.9, §6).
type IntervalSettings struct {
	RegimeUpdate   time.Duration
	KeyLevelUpdate time.Duration
	RiskUpdate     time.Duration
	CalendarUpdate time.Duration
	ThrottleSeconds int

	TriangleUpdate time.Duration
	TrianglesEnabled bool
	DisplayUpdate    time.Duration

	EmergencyFailureThreshold int
	EmergencyRecoveryWindow   time.Duration
	DispatchRetryCount        int
	DispatchRetryDelay        time.Duration
}
