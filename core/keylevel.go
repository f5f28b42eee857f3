package core

import "time"

// KeyLevelKind distinguishes support from resistance.
type KeyLevelKind string

const (
	KeyLevelSupport    KeyLevelKind = "support"
	KeyLevelResistance KeyLevelKind = "resistance"
)

// KeyLevel is a price level produced by the external key-level detector.
// The core only reads these; lifecycle (creation, strength decay, removal)
// is managed entirely by the external collaborator.
type KeyLevel struct {
	Price      float64
	Kind       KeyLevelKind
	Strength   float64 // in [0, 1]
	TouchCount int
	LastTouch  time.Time
}

// IsStrong reports whether the level meets the given minimum strength used
// to gate the key-level TP cap (§4.5) and the breakout proximity gate (§4.2).
func (k KeyLevel) IsStrong(minStrength float64) bool {
	return k.Strength >= minStrength
}
