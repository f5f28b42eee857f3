// Package indicator implements a talib-backed core.IndicatorProvider.
// Grounded on pkg/indicator/talib.go's thin-wrapper style over
// github.com/markcheno/go-talib; the handle-memoization design is the
// spec's own redesign note (indicator reads should not allocate/release
// handles on every call).
package indicator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/StudioSol/set"
	"github.com/markcheno/go-talib"

	"github.com/raykavin/backnrun/core"
)

// Candle is one OHLCV bar ingested for a timeframe.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// series is one timeframe's rolling OHLC buffer.
type series struct {
	time  []time.Time
	open  []float64
	high  []float64
	low   []float64
	close []float64
}

func (s *series) ingest(c Candle) {
	if n := len(s.time); n > 0 && c.Time.Equal(s.time[n-1]) {
		s.open[n-1], s.high[n-1], s.low[n-1], s.close[n-1], s.time[n-1] = c.Open, c.High, c.Low, c.Close, c.Time
		return
	}
	s.time = append(s.time, c.Time)
	s.open = append(s.open, c.Open)
	s.high = append(s.high, c.High)
	s.low = append(s.low, c.Low)
	s.close = append(s.close, c.Close)
}

// handleKey identifies one memoized (indicator, timeframe, period) output
// series and the input length it was computed against.
type handleKey struct {
	ind    core.Indicator
	tf     core.Timeframe
	period int
}

type handle struct {
	values    []float64
	inputLen  int
}

// Provider computes Indicator values from ingested candles, memoizing the
// computed output series per (indicator, timeframe, period) handle for the
// engine's lifetime rather than recomputing on every read (spec §9 design
// note). It is not safe for concurrent use; ingestion and reads happen from
// the single-threaded event loop (§5).
type Provider struct {
	bars    map[core.Timeframe]*series
	handles map[handleKey]*handle
	keys    *set.LinkedHashSetString
}

// NewProvider returns an empty Provider ready to ingest candles.
func NewProvider() *Provider {
	return &Provider{
		bars:    make(map[core.Timeframe]*series),
		handles: make(map[handleKey]*handle),
		keys:    set.NewLinkedHashSetString(),
	}
}

// Ingest appends (or, for a repeated timestamp, updates in place) a candle
// on the given timeframe's buffer, mirroring
// strategy/dataframe.go's DataframeManager.UpdateDataFrame idiom.
func (p *Provider) Ingest(tf core.Timeframe, c Candle) {
	s, ok := p.bars[tf]
	if !ok {
		s = &series{}
		p.bars[tf] = s
	}
	s.ingest(c)
}

// Handles returns every (indicator:timeframe:period) handle memoized so
// far, in registration order — exposed for diagnostics.
func (p *Provider) Handles() []string {
	var out []string
	for k := range p.keys.Iter() {
		out = append(out, k)
	}
	return out
}

// Value implements core.IndicatorProvider (§6): shift 0 is the most recent
// closed bar, shift k is k bars back. Returns core.ErrDataNotReady when the
// timeframe has no buffer yet, the requested shift exceeds the buffer, or
// the indicator's warmup period has not yet produced a value there.
func (p *Provider) Value(ctx context.Context, ind core.Indicator, tf core.Timeframe, period, shift int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s, ok := p.bars[tf]
	if !ok || len(s.close) == 0 {
		return 0, fmt.Errorf("indicator: no candles ingested for timeframe %s: %w", tf, core.ErrDataNotReady)
	}

	key := handleKey{ind: ind, tf: tf, period: period}
	h, ok := p.handles[key]
	if !ok || h.inputLen != len(s.close) {
		values, err := p.compute(ind, tf, period, s)
		if err != nil {
			return 0, err
		}
		h = &handle{values: values, inputLen: len(s.close)}
		p.handles[key] = h
		p.keys.Add(fmt.Sprintf("%s:%s:%d", ind, tf, period))
	}

	idx := len(h.values) - 1 - shift
	if idx < 0 || idx >= len(h.values) {
		return 0, fmt.Errorf("indicator: shift %d out of range for %s/%s: %w", shift, ind, tf, core.ErrDataNotReady)
	}
	v := h.values[idx]
	if math.IsNaN(v) {
		return 0, fmt.Errorf("indicator: %s/%s not warmed up at shift %d: %w", ind, tf, shift, core.ErrDataNotReady)
	}
	return v, nil
}

// compute dispatches to the talib function backing ind, per §6's supported
// indicator set (ADX, +DI/-DI, ATR, RSI, EMA, Stochastic %K/%D).
func (p *Provider) compute(ind core.Indicator, tf core.Timeframe, period int, s *series) ([]float64, error) {
	switch ind {
	case core.IndicatorADX:
		return talib.Adx(s.high, s.low, s.close, period), nil
	case core.IndicatorPlusDI:
		return talib.PlusDI(s.high, s.low, s.close, period), nil
	case core.IndicatorMinusDI:
		return talib.MinusDI(s.high, s.low, s.close, period), nil
	case core.IndicatorATR:
		return talib.Atr(s.high, s.low, s.close, period), nil
	case core.IndicatorRSI:
		return talib.Rsi(s.close, period), nil
	case core.IndicatorEMA:
		return talib.Ema(s.close, period), nil
	case core.IndicatorStochK:
		k, _ := talib.Stoch(s.high, s.low, s.close, 5, 3, talib.SMA, 3, talib.SMA)
		return k, nil
	case core.IndicatorStochD:
		_, d := talib.Stoch(s.high, s.low, s.close, 5, 3, talib.SMA, 3, talib.SMA)
		return d, nil
	default:
		return nil, fmt.Errorf("indicator: unsupported indicator %q: %w", ind, core.ErrDataNotReady)
	}
}
