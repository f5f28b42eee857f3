// Package candlefeed buckets a raw tick/trade stream into OHLCV candles on
// each of the engine's configured timeframes, shared by cmd/engine's
// synthetic driver and cmd/replay's historical driver so neither duplicates
// the resampling logic. Grounded on exchange/csv_feed.go's timeframe
// resampling (same github.com/xhit/go-str2duration/v2 parser, same
// "emit on bucket rollover" idiom, generalized from candle-to-candle
// resampling to tick-to-candle aggregation).
package candlefeed

import (
	"fmt"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/raykavin/backnrun/core"
	"github.com/raykavin/backnrun/indicator"
)

// Closed is one timeframe's candle as of a bucket rollover.
type Closed struct {
	Timeframe core.Timeframe
	Candle    indicator.Candle
}

type bucket struct {
	width   time.Duration
	start   time.Time
	candle  indicator.Candle
	primed  bool
}

// Aggregator buckets ticks into candles for a fixed set of timeframes.
type Aggregator struct {
	buckets map[core.Timeframe]*bucket
}

// New builds an Aggregator for the given timeframe labels, each parsed via
// str2duration ("5m", "1h", "4h", ...).
func New(timeframes ...core.Timeframe) (*Aggregator, error) {
	buckets := make(map[core.Timeframe]*bucket, len(timeframes))
	for _, tf := range timeframes {
		if tf == "" {
			continue
		}
		if _, ok := buckets[tf]; ok {
			continue
		}
		width, err := str2duration.ParseDuration(string(tf))
		if err != nil {
			return nil, fmt.Errorf("candlefeed: invalid timeframe %q: %w", tf, err)
		}
		buckets[tf] = &bucket{width: width}
	}
	return &Aggregator{buckets: buckets}, nil
}

// Push folds one tick into every bucket, returning the candles that rolled
// over (closed) as a result of this tick crossing into a new bucket window.
func (a *Aggregator) Push(at time.Time, price, volume float64) []Closed {
	var closed []Closed
	for tf, b := range a.buckets {
		bucketStart := at.Truncate(b.width)
		switch {
		case !b.primed:
			b.start = bucketStart
			b.candle = indicator.Candle{Time: bucketStart, Open: price, High: price, Low: price, Close: price, Volume: volume}
			b.primed = true
		case bucketStart.After(b.start):
			closed = append(closed, Closed{Timeframe: tf, Candle: b.candle})
			b.start = bucketStart
			b.candle = indicator.Candle{Time: bucketStart, Open: price, High: price, Low: price, Close: price, Volume: volume}
		default:
			if price > b.candle.High {
				b.candle.High = price
			}
			if price < b.candle.Low {
				b.candle.Low = price
			}
			b.candle.Close = price
			b.candle.Volume += volume
		}
	}
	return closed
}

// Flush returns every bucket's in-progress candle, used at the end of a
// replay run so the final partial bar is not silently dropped.
func (a *Aggregator) Flush() []Closed {
	var out []Closed
	for tf, b := range a.buckets {
		if b.primed {
			out = append(out, Closed{Timeframe: tf, Candle: b.candle})
		}
	}
	return out
}
