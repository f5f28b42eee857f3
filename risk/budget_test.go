package risk

import (
	"errors"
	"testing"

	"github.com/raykavin/backnrun/core"
)

func TestDrawdownGateBlocksEntry(t *testing.T) {
	b := NewBudget(core.RiskSettings{MaxDrawdownPct: 0.30, MaxPositions: 5})
	b.Update(10000)
	b.Update(7000) // S5: 30% drawdown

	if dd := b.Drawdown(7000); dd < 0.30 {
		t.Fatalf("expected drawdown >= 0.30, got %v", dd)
	}

	err := b.CheckEntry(7000, 0)
	if !errors.Is(err, core.ErrRiskGate) {
		t.Fatalf("expected ErrRiskGate, got %v", err)
	}
}

func TestMaxPositionsGate(t *testing.T) {
	b := NewBudget(core.RiskSettings{MaxDrawdownPct: 0.30, MaxPositions: 2})
	b.Update(10000)

	if err := b.CheckEntry(10000, 1); err != nil {
		t.Fatalf("expected entry allowed at 1/2 positions, got %v", err)
	}
	if err := b.CheckEntry(10000, 2); !errors.Is(err, core.ErrRiskGate) {
		t.Fatalf("expected ErrRiskGate at max positions, got %v", err)
	}
}

func TestEquityPeakMonotone(t *testing.T) {
	b := NewBudget(core.RiskSettings{MaxDrawdownPct: 0.30})
	b.Update(10000)
	b.Update(9000)
	if b.EquityPeak() != 10000 {
		t.Fatalf("expected peak to stay at 10000, got %v", b.EquityPeak())
	}
	b.Update(11000)
	if b.EquityPeak() != 11000 {
		t.Fatalf("expected peak to rise to 11000, got %v", b.EquityPeak())
	}
}

func TestEquityPeakResetOnRecovery(t *testing.T) {
	b := NewBudget(core.RiskSettings{MaxDrawdownPct: 0.30, EquityPeakReset: 0.05})
	b.Update(10000)
	b.Update(9700) // 3% off peak, within the 5% reset threshold
	if b.EquityPeak() != 9700 {
		t.Fatalf("expected peak to reset to 9700 on recovery, got %v", b.EquityPeak())
	}
}

func TestNoPeakYieldsZeroDrawdown(t *testing.T) {
	b := NewBudget(core.RiskSettings{})
	if dd := b.Drawdown(1000); dd != 0 {
		t.Fatalf("expected zero drawdown before any Update, got %v", dd)
	}
}
