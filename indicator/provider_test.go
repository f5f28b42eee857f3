package indicator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raykavin/backnrun/core"
)

func ingestCloses(p *Provider, tf core.Timeframe, closes []float64, start time.Time) {
	for i, c := range closes {
		p.Ingest(tf, Candle{
			Time: start.Add(time.Duration(i) * time.Minute),
			Open: c, High: c, Low: c, Close: c,
		})
	}
}

func TestValueErrorsWithoutIngestedCandles(t *testing.T) {
	p := NewProvider()
	_, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, 0)
	if !errors.Is(err, core.ErrDataNotReady) {
		t.Fatalf("expected ErrDataNotReady, got %v", err)
	}
}

func TestValueErrorsShiftBeyondBuffer(t *testing.T) {
	p := NewProvider()
	ingestCloses(p, "M5", []float64{1.1000, 1.1010}, time.Now())

	_, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, 5)
	if !errors.Is(err, core.ErrDataNotReady) {
		t.Fatalf("expected ErrDataNotReady for an out-of-range shift, got %v", err)
	}
}

// EMA with period 1 has smoothing factor alpha = 2/(1+1) = 1, so every
// output point equals its input verbatim — a useful identity for
// hand-verifying shift indexing without needing to reproduce talib's
// internal arithmetic.
func TestEMAPeriodOneEqualsInputSeries(t *testing.T) {
	p := NewProvider()
	closes := []float64{1.1000, 1.1010, 1.1005, 1.1020}
	ingestCloses(p, "M5", closes, time.Now())

	for shift, want := range map[int]float64{0: 1.1020, 1: 1.1005, 2: 1.1010, 3: 1.1000} {
		got, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, shift)
		if err != nil {
			t.Fatalf("shift %d: unexpected error: %v", shift, err)
		}
		if got != want {
			t.Fatalf("shift %d: expected %.4f, got %.4f", shift, want, got)
		}
	}
}

func TestIngestUpdatesSameTimestampInPlace(t *testing.T) {
	p := NewProvider()
	ts := time.Now()
	p.Ingest("M5", Candle{Time: ts, Open: 1.1000, High: 1.1000, Low: 1.1000, Close: 1.1000})
	p.Ingest("M5", Candle{Time: ts, Open: 1.1005, High: 1.1005, Low: 1.1005, Close: 1.1005})

	got, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.1005 {
		t.Fatalf("expected the repeated timestamp to update in place, got %.4f", got)
	}
	if _, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, 1); !errors.Is(err, core.ErrDataNotReady) {
		t.Fatalf("expected only one bar to be retained, shift 1 should be out of range")
	}
}

func TestHandleMemoizationReusesSeriesUntilNewCandle(t *testing.T) {
	p := NewProvider()
	ingestCloses(p, "M5", []float64{1.1000, 1.1010}, time.Now())

	if _, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := handleKey{ind: core.IndicatorEMA, tf: "M5", period: 1}
	h, ok := p.handles[key]
	if !ok {
		t.Fatalf("expected a memoized handle after the first read")
	}
	firstInputLen := h.inputLen

	if _, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, 0); err != nil {
		t.Fatalf("unexpected error on second read: %v", err)
	}
	if len(p.handles) != 1 {
		t.Fatalf("expected the repeated read to reuse the same handle, got %d handles", len(p.handles))
	}

	p.Ingest("M5", Candle{Time: time.Now().Add(time.Hour), Open: 1.1020, High: 1.1020, Low: 1.1020, Close: 1.1020})
	if _, err := p.Value(context.Background(), core.IndicatorEMA, "M5", 1, 0); err != nil {
		t.Fatalf("unexpected error after a new candle: %v", err)
	}
	if p.handles[key].inputLen == firstInputLen {
		t.Fatalf("expected the handle to recompute after a new candle arrived")
	}

	if len(p.Handles()) != 1 {
		t.Fatalf("expected exactly one registered handle key, got %v", p.Handles())
	}
}
