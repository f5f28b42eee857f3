package core

import "testing"

func TestRoundVolumeDown(t *testing.T) {
	sym := SymbolInfo{MinVolume: 0.01, MaxVolume: 100, VolumeStep: 0.01}

	cases := []struct {
		in, want float64
	}{
		{2.0849999, 2.08},
		{0.009, 0},
		{0.01, 0.01},
		{150, 100},
	}

	for _, c := range cases {
		got := sym.RoundVolumeDown(c.in)
		if got != c.want {
			t.Errorf("RoundVolumeDown(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPipFiveDigit(t *testing.T) {
	sym := SymbolInfo{Digits: 5, Point: 0.00001}
	if got := sym.Pip(); got != 0.0001 {
		t.Errorf("Pip() = %v, want 0.0001", got)
	}
}

func TestPipTwoDigit(t *testing.T) {
	sym := SymbolInfo{Digits: 2, Point: 0.01}
	if got := sym.Pip(); got != 0.01 {
		t.Errorf("Pip() = %v, want 0.01", got)
	}
}
