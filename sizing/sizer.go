// Package sizing implements the Position Sizer (spec §4.4): given a stop
// distance and a regime, it returns a broker-valid volume that risks
// exactly the regime-keyed percentage of account equity.
package sizing

import (
	"fmt"

	"github.com/raykavin/backnrun/core"
)

// Sizer derives order volume from risk percent, equity, stop distance
// and the broker's symbol constraints (§4.4, grounded on
// core.SymbolInfo.RoundVolumeDown, the same min/max/step rounding the
// teacher applies in exchange/pairs.go).
type Sizer struct {
	risk core.RiskSettings
}

// NewSizer builds a Sizer from the configured risk percentages.
func NewSizer(risk core.RiskSettings) *Sizer {
	return &Sizer{risk: risk}
}

// Volume returns the volume that risks risk_percent(regime) * equity at
// the given stop distance (in price points), rounded down to the
// broker's volume step. Returns core.ErrSizingBelowMinimum (wrapped) when
// the rounded volume is below the broker minimum — the caller must abort
// the entry (§4.4c, §7).
func (s *Sizer) Volume(regime core.RegimeLabel, equity, stopDistance float64, symbol core.SymbolInfo) (float64, error) {
	if stopDistance <= 0 {
		return 0, fmt.Errorf("sizing: non-positive stop distance %.6f: %w", stopDistance, core.ErrSizingBelowMinimum)
	}
	if symbol.TickValue <= 0 || symbol.TickSize <= 0 {
		return 0, fmt.Errorf("sizing: invalid symbol tick metadata: %w", core.ErrSizingBelowMinimum)
	}

	riskPct := s.risk.RiskPercentFor(regime)
	if s.risk.MaxRiskPerTrade > 0 && riskPct > s.risk.MaxRiskPerTrade {
		riskPct = s.risk.MaxRiskPerTrade
	}

	riskAmount := riskPct * equity / 100
	valuePerUnit := (stopDistance / symbol.TickSize) * symbol.TickValue
	if valuePerUnit <= 0 {
		return 0, fmt.Errorf("sizing: non-positive per-unit risk value: %w", core.ErrSizingBelowMinimum)
	}

	raw := riskAmount / valuePerUnit
	rounded := symbol.RoundVolumeDown(raw)
	if rounded <= 0 {
		return 0, fmt.Errorf("sizing: rounded volume %.6f below broker minimum %.6f: %w", raw, symbol.MinVolume, core.ErrSizingBelowMinimum)
	}
	return rounded, nil
}
