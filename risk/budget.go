// Package risk implements the Risk Budget (spec §4.3): equity-peak
// tracking, the drawdown gate, and the max-concurrent-positions gate that
// every new entry must clear before reaching the Position Sizer.
package risk

import (
	"fmt"

	"github.com/raykavin/backnrun/core"
)

// Budget owns the running equity peak and gates new entries on drawdown
// and position count (§4.3). Not safe for concurrent use — the event loop
// is single-threaded (§5).
type Budget struct {
	settings core.RiskSettings

	equityPeak float64
	hasPeak    bool
}

// NewBudget builds a Budget from the configured thresholds.
func NewBudget(settings core.RiskSettings) *Budget {
	return &Budget{settings: settings}
}

// EquityPeak returns the current monotone equity peak.
func (b *Budget) EquityPeak() float64 {
	return b.equityPeak
}

// Drawdown returns the current drawdown fraction, (peak-current)/peak.
func (b *Budget) Drawdown(equity float64) float64 {
	if !b.hasPeak || b.equityPeak <= 0 {
		return 0
	}
	return (b.equityPeak - equity) / b.equityPeak
}

// Update advances the equity peak: it is monotone non-decreasing, and
// reset whenever equity exceeds it. When equity has recovered to within
// equity_peak_reset of a prior (now-stale) peak after a drawdown, the
// peak is allowed to track equity again rather than staying pinned to a
// high-water mark set long ago.
func (b *Budget) Update(equity float64) {
	if !b.hasPeak {
		b.equityPeak = equity
		b.hasPeak = true
		return
	}
	if equity > b.equityPeak {
		b.equityPeak = equity
		return
	}
	reset := b.settings.EquityPeakReset
	if reset > 0 && b.equityPeak > 0 {
		recovered := (b.equityPeak - equity) / b.equityPeak
		if recovered <= reset {
			b.equityPeak = equity
		}
	}
}

// CheckEntry gates a prospective new entry on drawdown and position
// count. Returns a wrapped core.ErrRiskGate on rejection (§7).
func (b *Budget) CheckEntry(equity float64, openPositions int) error {
	if dd := b.Drawdown(equity); dd >= b.settings.MaxDrawdownPct {
		return fmt.Errorf("risk budget: drawdown %.4f >= max %.4f: %w", dd, b.settings.MaxDrawdownPct, core.ErrRiskGate)
	}
	if b.settings.MaxPositions > 0 && openPositions >= b.settings.MaxPositions {
		return fmt.Errorf("risk budget: open positions %d >= max %d: %w", openPositions, b.settings.MaxPositions, core.ErrRiskGate)
	}
	return nil
}
