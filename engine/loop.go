// Package engine implements the Event Loop (spec §4.9): the single
// scheduling point that ties every other component together. Grounded on
// backnrun.go's Run/processCandle tick-vs-timer split (market-data
// collection happens on every tick; decisions and management happen on the
// timer) and exchange/exchange.go's DataFeedSubscription dispatch idiom.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/raykavin/backnrun/construct"
	"github.com/raykavin/backnrun/core"
	"github.com/raykavin/backnrun/dispatch"
	"github.com/raykavin/backnrun/position"
	"github.com/raykavin/backnrun/regime"
	"github.com/raykavin/backnrun/risk"
	"github.com/raykavin/backnrun/scaling"
	"github.com/raykavin/backnrun/signal"
	"github.com/raykavin/backnrun/sizing"
)

// MarketData is the current tick's bid/ask/last snapshot. The loop owns
// only the freshest read; historical storage is an external concern
// (spec §1 Non-goals).
type MarketData struct {
	Bid, Ask, Last float64
	Timestamp      time.Time
}

// Loop owns every piece of cross-cycle state named by §3/§5: the
// IndicatorCache, the ThrottleState per rejection context, and the
// RangeWindow. Nothing here is safe for concurrent use — the scheduling
// model is single-threaded cooperative (§5).
type Loop struct {
	settings core.Settings

	broker      core.Broker
	indicators  core.IndicatorProvider
	keyLevels   core.KeyLevelDetector
	sentiment   core.SentimentReader
	trendOracle core.TrendOracle
	reporter    core.Reporter
	notifier    core.Notifier

	regimeClassifier *regime.Classifier
	trendCascade     *signal.TrendCascade
	breakoutCascade  *signal.BreakoutCascade
	rangeCascade     *signal.RangeCascade
	riskBudget       *risk.Budget
	sizer            *sizing.Sizer
	constructor      *construct.Constructor
	dispatcher       *dispatch.Dispatcher
	positionManager  *position.Manager
	scalingCtl       *scaling.Controller

	cache       *core.IndicatorCache
	rangeWindow core.RangeWindow

	market MarketData

	lastRegimeUpdate   time.Time
	lastKeyLevelUpdate time.Time
	lastTriangleUpdate time.Time
	lastCalendarUpdate time.Time
	lastDisplayUpdate  time.Time
	lastRangeUpdate    time.Time

	lastSentiment core.Sentiment

	rejectionThrottle map[rejectionKey]time.Time
	loggedCycleStart  bool

	// exitFailures counts consecutive dispatch failures per ticket, used
	// to trip the ExitBlocked sink independent of the dispatcher's
	// subsystem-wide emergency suspension (§4.7/§4.6 are distinct gates).
	exitFailures map[core.Ticket]int
}

// rejectionKey identifies "same regime, same position state" for the §4.9
// re-evaluation throttle: a cascade that rejected last cycle is not
// re-evaluated until throttle_seconds has elapsed, unless the context
// changed.
type rejectionKey struct {
	regime core.RegimeLabel
	state  core.PositionState
}

// Deps bundles every external collaborator the loop consumes (§6).
type Deps struct {
	Broker      core.Broker
	Indicators  core.IndicatorProvider
	KeyLevels   core.KeyLevelDetector
	Sentiment   core.SentimentReader
	TrendOracle core.TrendOracle
	Reporter    core.Reporter
	Notifier    core.Notifier // optional; ExitBlocked/drawdown/suspension alerts are no-ops when nil
}

// New wires every component from settings and deps, in leaves-first order
// (§2 dependency order).
func New(settings core.Settings, deps Deps) *Loop {
	return &Loop{
		settings:         settings,
		broker:           deps.Broker,
		indicators:       deps.Indicators,
		keyLevels:        deps.KeyLevels,
		sentiment:        deps.Sentiment,
		trendOracle:      deps.TrendOracle,
		reporter:         deps.Reporter,
		notifier:         deps.Notifier,
		regimeClassifier: regime.NewClassifier(settings.Regime),
		trendCascade:     signal.NewTrendCascade(settings.Gates),
		breakoutCascade:  signal.NewBreakoutCascade(settings.Gates),
		rangeCascade:     signal.NewRangeCascade(settings.Gates),
		riskBudget:       risk.NewBudget(settings.Risk),
		sizer:            sizing.NewSizer(settings.Risk),
		dispatcher: dispatch.NewDispatcher(deps.Broker, dispatch.DefaultClassifier,
			settings.Intervals.DispatchRetryCount, settings.Intervals.DispatchRetryDelay,
			settings.Intervals.EmergencyFailureThreshold, settings.Intervals.EmergencyRecoveryWindow),
		positionManager:   position.NewManager(settings.Stops, settings.RSI),
		scalingCtl:        scaling.NewController(settings.Scaling),
		cache:             core.NewIndicatorCache(),
		rejectionThrottle: make(map[rejectionKey]time.Time),
		exitFailures:      make(map[core.Ticket]int),
	}
}

// notify pushes an AlertEvent if a Notifier is configured; a nil Notifier
// makes every alert site a no-op, so tests and replay runs never need one.
func (l *Loop) notify(now time.Time, severity core.AlertSeverity, title, detail string, ticket core.Ticket, regime core.RegimeLabel) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(core.AlertEvent{
		Timestamp: now,
		Severity:  severity,
		Title:     title,
		Detail:    detail,
		Ticket:    ticket,
		Regime:    regime,
	})
}

// SetConstructor wires the Order Constructor once the broker's symbol info
// is known (it is broker-reported, unavailable at construction time).
func (l *Loop) SetConstructor(c *construct.Constructor) {
	l.constructor = c
}

// OnTick performs market-data collection only (§4.9: "tick handler only
// performs market-data collection for the external store; all decisions
// and management run on the timer").
func (l *Loop) OnTick(_ context.Context, now time.Time, bid, ask, last float64) {
	l.market = MarketData{Bid: bid, Ask: ask, Last: last, Timestamp: now}
}

// OnTimer runs one full management cycle in the strict §4.9 order.
func (l *Loop) OnTimer(ctx context.Context, now time.Time) error {
	l.cache.Reset()
	l.loggedCycleStart = false

	if err := l.managePositions(ctx, now); err != nil {
		return err
	}

	if l.settings.Scaling.Enable && l.dueRangeUpdate(now) {
		l.refreshRangeWindow(ctx, now)
	}

	if l.dueRegimeUpdate(now) {
		if err := l.runRegimeCycle(ctx, now); err != nil {
			return err
		}
	}

	if l.dueKeyLevelUpdate(now) {
		l.lastKeyLevelUpdate = now // refresh is a read-through cache owned by the detector itself
	}

	if l.settings.Intervals.TrianglesEnabled && l.dueTriangleUpdate(now) {
		l.lastTriangleUpdate = now // a third signal source; not named by any [MODULE] operation this repo implements
	}

	if l.dueCalendarUpdate(ctx, now) {
		l.refreshSentiment(ctx, now)
	}

	if l.dueDisplayUpdate(now) {
		l.lastDisplayUpdate = now // overlay refresh is a UI concern (§1 Non-goals)
	}

	return nil
}

func (l *Loop) dueRegimeUpdate(now time.Time) bool {
	return due(l.lastRegimeUpdate, now, l.settings.Intervals.RegimeUpdate)
}
func (l *Loop) dueKeyLevelUpdate(now time.Time) bool {
	return due(l.lastKeyLevelUpdate, now, l.settings.Intervals.KeyLevelUpdate)
}
func (l *Loop) dueTriangleUpdate(now time.Time) bool {
	return due(l.lastTriangleUpdate, now, l.settings.Intervals.TriangleUpdate)
}
func (l *Loop) dueCalendarUpdate(ctx context.Context, now time.Time) bool {
	if l.sentiment == nil {
		return false
	}
	return due(l.lastCalendarUpdate, now, l.settings.Intervals.CalendarUpdate)
}
func (l *Loop) dueDisplayUpdate(now time.Time) bool {
	return due(l.lastDisplayUpdate, now, l.settings.Intervals.DisplayUpdate)
}
func (l *Loop) dueRangeUpdate(now time.Time) bool {
	period := time.Duration(l.settings.Scaling.RangePeriods) * time.Minute
	return due(l.lastRangeUpdate, now, period)
}

func due(last, now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	return last.IsZero() || now.Sub(last) >= interval
}

// managePositions runs step 2 of §4.9: Position Manager over every
// broker-reported open position, then applies whatever actions it returns
// through the Execution Dispatcher.
func (l *Loop) managePositions(ctx context.Context, now time.Time) error {
	positions, err := l.broker.ListPositions(ctx)
	if err != nil {
		return err
	}

	tf := l.settings.Timeframes
	for i := range positions {
		pos := &positions[i]
		atrCur, err := l.indicatorValue(ctx, core.IndicatorATR, tf.Chart, 14, 0)
		if err != nil {
			continue // ErrDataNotReady: skip management this cycle for this position
		}
		atrAvg, err := l.atr10BarAverage(ctx)
		if err != nil {
			continue
		}
		rsiChart, _ := l.indicatorValue(ctx, core.IndicatorRSI, tf.Chart, 14, 0)
		rsiSecondary, _ := l.indicatorValue(ctx, core.IndicatorRSI, tf.Secondary, 14, 0)

		rsi := position.RSIInputs{Chart: rsiChart, Secondary: rsiSecondary}
		action := l.positionManager.Manage(now, pos, l.market.Last, atrCur, atrAvg, rsi, rsiSecondary, position.ExhaustionInputs{})
		l.applyAction(ctx, now, pos, action)
	}
	return nil
}

// atr10BarAverage averages the last 10 shifted ATR readings, used by the
// Position Manager's ATR-collapse suppression gate (§4.7).
func (l *Loop) atr10BarAverage(ctx context.Context) (float64, error) {
	sum := 0.0
	for shift := 0; shift < 10; shift++ {
		v, err := l.indicatorValue(ctx, core.IndicatorATR, l.settings.Timeframes.Chart, 14, shift)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / 10, nil
}

func (l *Loop) applyAction(ctx context.Context, now time.Time, pos *core.Position, action position.ManagementAction) {
	var dispatchErr error

	if action.ModifySL != nil || action.ModifyTP != nil {
		sl, tp := zeroIfNil(action.ModifySL), zeroIfNil(action.ModifyTP)
		if err := l.dispatcher.ModifyPosition(ctx, now, action.Ticket, sl, tp); err != nil {
			l.record(ctx, now, "position_modify", "reject", err.Error())
			dispatchErr = err
		}
	}
	if action.ClosePartial != nil {
		if err := l.dispatcher.ClosePartial(ctx, now, action.Ticket, *action.ClosePartial); err != nil {
			l.record(ctx, now, "position_partial_close", "reject", err.Error())
			dispatchErr = err
		}
	}
	if action.Close {
		if err := l.dispatcher.ClosePosition(ctx, now, action.Ticket, false); err != nil {
			l.record(ctx, now, "position_close", "reject", err.Error())
			dispatchErr = err
		}
	}

	l.trackExitFailure(now, pos, dispatchErr)
}

// trackExitFailure maintains the per-ticket consecutive-dispatch-failure
// count backing the ExitBlocked sink (§4.7), and raises an alert the
// cycle a position trips it or the subsystem gets emergency-suspended.
func (l *Loop) trackExitFailure(now time.Time, pos *core.Position, dispatchErr error) {
	if errors.Is(dispatchErr, core.ErrSuspended) {
		l.notify(now, core.AlertCritical, "dispatch subsystem suspended",
			"consecutive dispatch failures tripped the emergency circuit breaker", pos.Ticket, pos.Regime)
		return
	}

	if dispatchErr == nil {
		delete(l.exitFailures, pos.Ticket)
		return
	}

	l.exitFailures[pos.Ticket]++
	threshold := l.settings.Intervals.EmergencyFailureThreshold
	if threshold <= 0 || l.exitFailures[pos.Ticket] < threshold {
		return
	}

	position.MarkExitBlocked(pos)
	l.notify(now, core.AlertCritical, "position exit blocked",
		dispatchErr.Error(), pos.Ticket, pos.Regime)
}

func zeroIfNil(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// refreshRangeWindow updates the Scaling Controller's range window (§4.8,
// §4.9 step 3). Raw candle highs/lows are out of scope (§1 Non-goals), so
// the window is derived from a short series of single-period EMA reads
// (a close-price proxy) over the configured lookback.
func (l *Loop) refreshRangeWindow(ctx context.Context, now time.Time) {
	l.lastRangeUpdate = now

	periods := l.settings.Scaling.RangePeriods
	if periods <= 0 {
		periods = 20
	}
	closes := make([]float64, 0, periods)
	for shift := 0; shift < periods; shift++ {
		v, err := l.indicatorValue(ctx, core.IndicatorEMA, l.settings.Timeframes.Chart, 1, shift)
		if err != nil {
			return
		}
		closes = append(closes, v)
	}
	l.rangeWindow.Recompute(closes, closes, now, l.settings.Scaling.MinRangeSize)
}

// runRegimeCycle implements §4.9 step 4: compute a new snapshot; on a label
// change, log/publish it; then invoke the trade logic on every cycle.
func (l *Loop) runRegimeCycle(ctx context.Context, now time.Time) error {
	l.lastRegimeUpdate = now

	tf := l.settings.Timeframes
	adxP, _ := l.indicatorValue(ctx, core.IndicatorADX, tf.Primary, 14, 0)
	adxS, _ := l.indicatorValue(ctx, core.IndicatorADX, tf.Secondary, 14, 0)
	adxT, _ := l.indicatorValue(ctx, core.IndicatorADX, tf.Tertiary, 14, 0)
	plusDI, _ := l.indicatorValue(ctx, core.IndicatorPlusDI, tf.Primary, 14, 0)
	minusDI, _ := l.indicatorValue(ctx, core.IndicatorMinusDI, tf.Primary, 14, 0)
	atrCur, _ := l.indicatorValue(ctx, core.IndicatorATR, tf.Chart, 14, 0)
	atrAvg, _ := l.indicatorValue(ctx, core.IndicatorATR, tf.Chart, 14, 20)

	prev, hadPrev := l.regimeClassifier.Last()
	snap, err := l.regimeClassifier.Classify(ctx, regime.Inputs{
		Timestamp:    now,
		ADXPrimary:   adxP,
		ADXSecondary: adxS,
		ADXTertiary:  adxT,
		PlusDI:       plusDI,
		MinusDI:      minusDI,
		ATRCurrent:   atrCur,
		ATRAverage:   atrAvg,
	})
	if err != nil {
		return nil // ErrDataNotReady: skip this cycle, not a loop failure
	}

	if !hadPrev || prev.Label != snap.Label {
		l.record(ctx, now, "regime_change", "pass", string(snap.Label))
	}

	return l.executeTradeLogic(ctx, now, snap)
}

// executeTradeLogic evaluates the cascade for the current regime and, on a
// pass, runs Risk Budget -> Position Sizer -> Order Constructor ->
// Execution Dispatcher (§4.9 step 4, §2 dependency order).
func (l *Loop) executeTradeLogic(ctx context.Context, now time.Time, snap core.RegimeSnapshot) error {
	positions, err := l.broker.ListPositions(ctx)
	if err != nil {
		return err
	}
	key := rejectionKey{regime: snap.Label, state: statesOf(positions)}
	if until, ok := l.rejectionThrottle[key]; ok && now.Before(until) {
		return nil
	}

	if !l.loggedCycleStart {
		l.record(ctx, now, "signal_analysis_start", "pass", "")
		l.loggedCycleStart = true
	}

	decision, ok := l.evaluateCascade(ctx, now, snap)
	if !ok {
		return nil
	}
	if !decision.Pass {
		l.rejectionThrottle[key] = now.Add(time.Duration(l.settings.Intervals.ThrottleSeconds) * time.Second)
		l.record(ctx, now, "cascade_reject", "reject", string(decision.Reason))
		return nil
	}

	return l.submitSignal(ctx, now, decision, snap.ATRCurrent)
}

func statesOf(positions []core.Position) core.PositionState {
	if len(positions) == 0 {
		return core.PositionOpen
	}
	return positions[0].State
}

// evaluateCascade picks trend/breakout/range by regime label and returns
// its decision; ok is false when the regime has no matching cascade (e.g.
// high volatility trades nothing, §4.1/§4.2).
func (l *Loop) evaluateCascade(ctx context.Context, now time.Time, snap core.RegimeSnapshot) (signal.CascadeDecision, bool) {
	tf := l.settings.Timeframes
	ema20, _ := l.indicatorValue(ctx, core.IndicatorEMA, tf.Chart, 20, 0)
	rsiChart, _ := l.indicatorValue(ctx, core.IndicatorRSI, tf.Chart, 14, 0)
	rsiSecondary, _ := l.indicatorValue(ctx, core.IndicatorRSI, tf.Secondary, 14, 0)
	rsiTertiary, tertiaryErr := l.indicatorValue(ctx, core.IndicatorRSI, tf.Tertiary, 14, 0)

	switch snap.Label {
	case core.RegimeTrendBull, core.RegimeTrendBear:
		dir := core.DirectionBuy
		if snap.Label == core.RegimeTrendBear {
			dir = core.DirectionSell
		}
		oracleBullish := false
		if l.trendOracle != nil {
			oracleBullish, _ = l.trendOracle.Bullish(ctx)
		}
		ema50Primary, _ := l.indicatorValue(ctx, core.IndicatorEMA, tf.Primary, 50, 0)
		ema200Primary, _ := l.indicatorValue(ctx, core.IndicatorEMA, tf.Primary, 200, 0)
		ema50Secondary, _ := l.indicatorValue(ctx, core.IndicatorEMA, tf.Secondary, 50, 0)
		ema200Secondary, _ := l.indicatorValue(ctx, core.IndicatorEMA, tf.Secondary, 200, 0)
		return l.trendCascade.Evaluate(ctx, now, signal.TrendInputs{
			Direction:          dir,
			Price:              l.market.Last,
			EMA20:              ema20,
			EMA50Primary:       ema50Primary,
			EMA200Primary:      ema200Primary,
			EMA50Secondary:     ema50Secondary,
			EMA200Secondary:    ema200Secondary,
			ADXPrimary:         snap.ADXPrimary,
			ADXSecondary:       snap.ADXSecondary,
			ATRCurrent:         snap.ATRCurrent,
			RSISecondary:       rsiSecondary,
			RSITertiary:        rsiTertiary,
			TertiaryAvailable:  tertiaryErr == nil,
			RSIChart:           rsiChart,
			TrendOracleBullish: oracleBullish,
			Sentiment:          l.lastSentiment,
		}), true
	case core.RegimeBreakoutSetup:
		var nearest *core.KeyLevel
		if l.keyLevels != nil {
			if lvl, ok := l.keyLevels.StrongestLevel(ctx); ok {
				nearest = &lvl
			}
		}
		// Raw candle OHLC/volume access is out of scope (§1 Non-goals), so
		// InsideBar/NR7/ATRExpansion/TickVolume stay zero-valued here just
		// like the Position Manager's momentum-exhaustion inputs. Open/Close
		// and Direction, however, are derived from the same EMA(1)
		// close-price proxy trick refreshRangeWindow uses, so the momentum-
		// surge arm of G1 (and ultimately Direction) reflects real measured
		// price movement instead of a hardcoded buy-only guess.
		closeProxy, closeErr := l.indicatorValue(ctx, core.IndicatorEMA, tf.Chart, 1, 0)
		openProxy, openErr := l.indicatorValue(ctx, core.IndicatorEMA, tf.Chart, 1, 1)
		dir := core.DirectionBuy
		if closeErr == nil && openErr == nil && closeProxy < openProxy {
			dir = core.DirectionSell
		}
		return l.breakoutCascade.Evaluate(ctx, now, signal.BreakoutInputs{
			Direction:          dir,
			Timeframe:          tf.Primary,
			Price:              l.market.Last,
			Open:               openProxy,
			Close:              closeProxy,
			ATRCurrent:         snap.ATRCurrent,
			NearestStrongLevel: nearest,
		}), true
	case core.RegimeRanging:
		support, resistance := l.opposingLevels(ctx)
		stochK, _ := l.indicatorValue(ctx, core.IndicatorStochK, tf.Chart, 14, 0)
		stochKPrev, _ := l.indicatorValue(ctx, core.IndicatorStochK, tf.Chart, 14, 1)
		return l.rangeCascade.Evaluate(ctx, now, signal.RangeInputs{
			Price:          l.market.Last,
			Spread:         l.market.Ask - l.market.Bid,
			ADXPrimary:     snap.ADXPrimary,
			ATRCurrent:     snap.ATRCurrent,
			Resistance:     resistance,
			Support:        support,
			StochKCurrent:  stochK,
			StochKPrevious: stochKPrev,
		}), true
	default:
		return signal.CascadeDecision{}, false
	}
}

// opposingLevels pulls the nearest support and resistance from the key
// level detector for the range cascade's G1 gate (§4.2).
func (l *Loop) opposingLevels(ctx context.Context) (support, resistance *core.KeyLevel) {
	if l.keyLevels == nil {
		return nil, nil
	}
	for _, lvl := range l.keyLevels.Levels(ctx) {
		lvl := lvl
		switch lvl.Kind {
		case core.KeyLevelSupport:
			if support == nil || lvl.Price > support.Price {
				support = &lvl
			}
		case core.KeyLevelResistance:
			if resistance == nil || lvl.Price < resistance.Price {
				resistance = &lvl
			}
		}
	}
	return support, resistance
}

// submitSignal runs Risk Budget -> Position Sizer -> Order Constructor ->
// Execution Dispatcher for a passed cascade decision.
func (l *Loop) submitSignal(ctx context.Context, now time.Time, decision signal.CascadeDecision, atrCurrent float64) error {
	if l.constructor == nil || decision.Signal == nil {
		return nil
	}

	equity, err := l.broker.Equity(ctx)
	if err != nil {
		return err
	}
	positions, err := l.broker.ListPositions(ctx)
	if err != nil {
		return err
	}
	l.riskBudget.Update(equity)
	if err := l.riskBudget.CheckEntry(equity, len(positions)); err != nil {
		l.record(ctx, now, "risk_gate", "reject", err.Error())
		if strings.Contains(err.Error(), "drawdown") {
			l.notify(now, core.AlertWarning, "drawdown gate tripped", err.Error(), 0, decision.Regime)
		}
		return nil
	}

	entryIndex := 1
	for _, p := range positions {
		if p.Direction == decision.Signal.Direction {
			entryIndex++
		}
	}
	if !l.scalingCtl.Admit(decision.Signal.Direction, entryIndex, l.market.Last, l.rangeWindow) {
		l.record(ctx, now, "scaling_reject", "reject", "scaling controller denied entry")
		return nil
	}

	symbol, err := l.broker.SymbolInfo(ctx)
	if err != nil {
		return err
	}

	intent, err := l.constructor.Build(construct.Inputs{
		Direction:  decision.Signal.Direction,
		Regime:     decision.Regime,
		Entry:      l.market.Last,
		ATRCurrent: atrCurrent,
		KeyLevel:   decision.Signal.NearLevel,
		Pending:    decision.Signal.SuggestedKind != core.OrderKindMarket,
		Bid:        l.market.Bid,
		Ask:        l.market.Ask,
	})
	if err != nil {
		l.record(ctx, now, "constructor_reject", "reject", err.Error())
		return nil
	}

	stopDistance := absFloat(intent.Entry - intent.StopLoss)
	volume, err := l.sizer.Volume(decision.Regime, equity, stopDistance, symbol)
	if err != nil {
		l.record(ctx, now, "sizing_reject", "reject", err.Error())
		return nil
	}
	intent.Volume = volume

	var submitErr error
	if intent.Kind == core.OrderKindMarket {
		_, submitErr = l.dispatcher.OpenMarket(ctx, now, intent)
	} else {
		_, submitErr = l.dispatcher.OpenPending(ctx, now, intent)
	}
	if submitErr != nil {
		l.record(ctx, now, "dispatch_reject", "reject", submitErr.Error())
		if errors.Is(submitErr, core.ErrSuspended) {
			l.notify(now, core.AlertCritical, "dispatch subsystem suspended", submitErr.Error(), 0, decision.Regime)
		}
	}
	return nil
}

// refreshSentiment implements §4.9 step 7.
func (l *Loop) refreshSentiment(ctx context.Context, now time.Time) bool {
	l.lastCalendarUpdate = now
	if l.sentiment == nil {
		return true
	}
	s, err := l.sentiment.Signal(ctx)
	if err != nil {
		return true
	}
	l.lastSentiment = s
	return true
}

func (l *Loop) indicatorValue(ctx context.Context, ind core.Indicator, tf core.Timeframe, period, shift int) (float64, error) {
	if v, ok := l.cache.Get(ind, tf, shift, period); ok {
		return v, nil
	}
	v, err := l.indicators.Value(ctx, ind, tf, period, shift)
	if err != nil {
		return 0, err
	}
	l.cache.Set(ind, tf, shift, period, v)
	return v, nil
}

func (l *Loop) record(ctx context.Context, now time.Time, kind, decision, reason string) {
	if l.reporter == nil {
		return
	}
	l.reporter.Record(ctx, core.DecisionRecord{
		Timestamp:    now,
		SignalKind:   kind,
		Decision:     decision,
		RejectReason: reason,
	})
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
