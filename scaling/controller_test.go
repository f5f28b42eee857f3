package scaling

import (
	"testing"

	"github.com/raykavin/backnrun/core"
)

func defaultScalingSettings() core.ScalingSettings {
	return core.ScalingSettings{
		Enable:       true,
		MaxPositions: 3,
		RangeBuffer:  0.0002,
		MinRangeSize: 0.0010,
	}
}

func validWindow() core.RangeWindow {
	return core.RangeWindow{Upper: 1.1050, Lower: 1.1000, Valid: true, Size: 0.0050}
}

func TestFirstEntryAlwaysAdmitted(t *testing.T) {
	c := NewController(defaultScalingSettings())
	if !c.Admit(core.DirectionBuy, 1, 1.1025, core.RangeWindow{}) {
		t.Fatalf("expected first entry always admitted, even with an invalid window")
	}
}

func TestSecondEntryRequiresNearAdverseSide(t *testing.T) {
	c := NewController(defaultScalingSettings())
	window := validWindow()

	if c.Admit(core.DirectionBuy, 2, 1.1025, window) {
		t.Fatalf("expected mid-range price to deny a second long entry")
	}
	if !c.Admit(core.DirectionBuy, 2, 1.1048, window) {
		t.Fatalf("expected price near the adverse (upper) side to admit a second long entry")
	}
}

func TestThirdEntryRequiresMostAdverseExtreme(t *testing.T) {
	c := NewController(defaultScalingSettings())
	window := validWindow()

	if c.Admit(core.DirectionBuy, 3, 1.1048, window) {
		t.Fatalf("expected merely-near-adverse price to deny a third long entry")
	}
	if !c.Admit(core.DirectionBuy, 3, 1.1050, window) {
		t.Fatalf("expected price at the adverse extreme to admit a third long entry")
	}
}

func TestEntriesBeyondMaxAlwaysDenied(t *testing.T) {
	c := NewController(defaultScalingSettings())
	window := validWindow()
	if c.Admit(core.DirectionBuy, 4, 1.1050, window) {
		t.Fatalf("expected entry beyond configured max to be denied regardless of price")
	}
}

func TestInvalidRangeDeniesScaledEntries(t *testing.T) {
	c := NewController(defaultScalingSettings())
	invalid := core.RangeWindow{Valid: false}
	if c.Admit(core.DirectionBuy, 2, 1.1050, invalid) {
		t.Fatalf("expected an invalid range window to deny non-first entries")
	}
}

func TestShortDirectionUsesLowerSideAsAdverse(t *testing.T) {
	c := NewController(defaultScalingSettings())
	window := validWindow()

	if !c.Admit(core.DirectionSell, 2, 1.1002, window) {
		t.Fatalf("expected price near the lower side to admit a second short entry")
	}
	if c.Admit(core.DirectionSell, 2, 1.1048, window) {
		t.Fatalf("expected price near the upper side to deny a second short entry")
	}
}

func TestDisabledScalingOnlyAdmitsFirstEntry(t *testing.T) {
	settings := defaultScalingSettings()
	settings.Enable = false
	c := NewController(settings)
	window := validWindow()

	if !c.Admit(core.DirectionBuy, 1, 1.1025, window) {
		t.Fatalf("expected first entry admitted even when scaling disabled")
	}
	if c.Admit(core.DirectionBuy, 2, 1.1050, window) {
		t.Fatalf("expected second entry denied when scaling disabled")
	}
}
