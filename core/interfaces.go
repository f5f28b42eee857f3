package core

import (
	"context"
	"time"
)

// Broker is the external, mutable system of record for positions and
// orders (§6). Every operation is synchronous and returns a success flag
// plus an error-kind on failure, never panics.
type Broker interface {
	OpenMarket(ctx context.Context, dir Direction, volume, sl, tp float64, comment string) (Ticket, error)
	OpenPending(ctx context.Context, kind OrderKind, triggerPrice, volume, sl, tp float64, comment string) (Ticket, error)
	ModifyPosition(ctx context.Context, ticket Ticket, sl, tp float64) error
	ClosePosition(ctx context.Context, ticket Ticket) error
	ClosePartial(ctx context.Context, ticket Ticket, volume float64) error
	ListPositions(ctx context.Context) ([]Position, error)
	SymbolInfo(ctx context.Context) (SymbolInfo, error)
	IsTradeAllowed(ctx context.Context) bool
	Equity(ctx context.Context) (float64, error)
	Bid(ctx context.Context) (float64, error)
	Ask(ctx context.Context) (float64, error)
}

// IndicatorProvider supplies current/historical indicator values. Returns
// ErrDataNotReady when the indicator has not yet produced a value at the
// requested shift (§6).
type IndicatorProvider interface {
	Value(ctx context.Context, ind Indicator, tf Timeframe, period, shift int) (float64, error)
}

// KeyLevelDetector is the external support/resistance collaborator; the
// core only reads (§6).
type KeyLevelDetector interface {
	StrongestLevel(ctx context.Context) (KeyLevel, bool)
	Levels(ctx context.Context) []KeyLevel
	Get(ctx context.Context, index int) (KeyLevel, bool)
}

// SentimentLabel is the external sentiment reader's coarse signal.
type SentimentLabel string

const (
	SentimentStrongBuy  SentimentLabel = "strong_buy"
	SentimentBuy        SentimentLabel = "buy"
	SentimentNeutral    SentimentLabel = "neutral"
	SentimentSell       SentimentLabel = "sell"
	SentimentStrongSell SentimentLabel = "strong_sell"
	SentimentNone       SentimentLabel = "none"
)

// Sentiment is the optional external sentiment reader's output (§6).
type Sentiment struct {
	Label      SentimentLabel
	Score      float64 // in [-1, 1]
	Confidence float64 // in [0, 1]
}

// AgreesWith reports whether the sentiment agrees with dir at or above
// minConfidence, used by the pullback-bound gate (§4.2 G3).
func (s Sentiment) AgreesWith(dir Direction, minConfidence float64) bool {
	if s.Confidence < minConfidence {
		return false
	}
	switch dir {
	case DirectionBuy:
		return s.Label == SentimentBuy || s.Label == SentimentStrongBuy
	case DirectionSell:
		return s.Label == SentimentSell || s.Label == SentimentStrongSell
	default:
		return false
	}
}

// SentimentReader is the optional external sentiment/news/calendar
// collaborator (§6).
type SentimentReader interface {
	Signal(ctx context.Context) (Sentiment, error)
}

// DecisionRecord is one structured observability event per signal
// evaluation, pass or reject (§6).
type DecisionRecord struct {
	Timestamp      time.Time
	SignalKind     string
	Regime         RegimeLabel
	Decision       string // "pass" or "reject"
	RejectReason   string
	Inputs         map[string]float64
	AccountEquity  float64
	PositionCount  int
	SentimentLabel SentimentLabel
	SentimentConf  float64
}

// Reporter is the external observability sink the core writes decision
// records to (§6).
type Reporter interface {
	Record(ctx context.Context, rec DecisionRecord)
}

// TrendOracle is the external multi-timeframe trend-follower collaborator
// consulted by the trend cascade's G1 gate (§4.2).
type TrendOracle interface {
	Bullish(ctx context.Context) (bool, error)
}

// AlertSeverity classifies an AlertEvent for routing/formatting.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// AlertEvent is one operator-facing notification: a position stuck in
// PositionExitBlocked, a drawdown gate trip, or an emergency suspension
// (§6). Unlike DecisionRecord, this is for a human, not an analytics sink.
type AlertEvent struct {
	Timestamp time.Time
	Severity  AlertSeverity
	Title     string
	Detail    string
	Ticket    Ticket
	Regime    RegimeLabel
}

// Notifier is the external alerting collaborator; the engine pushes
// AlertEvents to it with a direct Notify call, which returns once the
// implementation has attempted delivery (§6).
type Notifier interface {
	Notify(event AlertEvent)
}
