package core

import "testing"

func TestValidStopsLong(t *testing.T) {
	p := Position{Direction: DirectionBuy, EntryPrice: 1.1000, StopLoss: 1.0980, TakeProfit: 1.1050}
	if !p.ValidStops() {
		t.Error("expected valid stops for long")
	}

	p.StopLoss = 1.1010
	if p.ValidStops() {
		t.Error("expected invalid stops when SL is above entry for long")
	}
}

func TestValidStopsShort(t *testing.T) {
	p := Position{Direction: DirectionSell, EntryPrice: 1.1000, StopLoss: 1.1020, TakeProfit: 1.0950}
	if !p.ValidStops() {
		t.Error("expected valid stops for short")
	}
}

func TestUnrealizedProfit(t *testing.T) {
	p := Position{Direction: DirectionBuy, EntryPrice: 1.1000}
	if got := p.UnrealizedProfit(1.1010); got <= 0 {
		t.Errorf("expected positive unrealized profit for long price increase, got %v", got)
	}

	p.Direction = DirectionSell
	if got := p.UnrealizedProfit(1.0990); got <= 0 {
		t.Errorf("expected positive unrealized profit for short price decrease, got %v", got)
	}
}
