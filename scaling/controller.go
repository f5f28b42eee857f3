// Package scaling implements the Scaling Controller (§4.8): it admits or
// denies a new entry into an existing position based on how many entries
// already exist and where price sits relative to the recent-range window.
// Grounded on the adaptive-band range logic in
// a8960b3b_evdnx-gots__strategy-adaptive_band_mean_reversion.go, generalized
// from a single fixed entry/exit band into the ordinal admission ladder the
// spec requires.
package scaling

import (
	"github.com/raykavin/backnrun/core"
)

// Controller decides whether entry number entryIndex (1-based) into a
// direction is admitted, given the current range window and price.
type Controller struct {
	settings core.ScalingSettings
}

// NewController builds a Controller from the configured scaling settings.
func NewController(settings core.ScalingSettings) *Controller {
	return &Controller{settings: settings}
}

// Admit reports whether entryIndex (1 = first entry into a fresh position,
// 2 = second, etc.) is allowed at price, given window.
//
// Entry #1 is always allowed. Entry #2 requires price near the adverse side
// of the range (the side against the favorable direction — upper for longs,
// lower for shorts), enforcing averaging into a worse, not better, price.
// Entry #3 requires price at the *most* adverse extreme. Beyond the
// configured max entries (default 3), always deny.
func (c *Controller) Admit(dir core.Direction, entryIndex int, price float64, window core.RangeWindow) bool {
	if !c.settings.Enable {
		return entryIndex == 1
	}

	maxEntries := c.settings.MaxPositions
	if maxEntries <= 0 {
		maxEntries = 3
	}
	if entryIndex > maxEntries {
		return false
	}
	if entryIndex <= 1 {
		return true
	}
	if !window.Valid {
		return false
	}

	adverse := window.AdverseSide(dir)
	buffer := c.settings.RangeBuffer

	switch entryIndex {
	case 2:
		return nearAdverseSide(dir, price, adverse, buffer)
	default: // 3 and beyond (but <= max): require the most adverse extreme
		return atAdverseExtreme(dir, price, adverse, buffer)
	}
}

// nearAdverseSide reports whether price lies within buffer of the adverse
// boundary (or beyond it) — the §4.8 "near" threshold for a second entry.
func nearAdverseSide(dir core.Direction, price, adverse, buffer float64) bool {
	if dir == core.DirectionBuy {
		return price >= adverse-buffer
	}
	return price <= adverse+buffer
}

// atAdverseExtreme reports whether price has reached (or passed) the
// adverse boundary itself — the §4.8 "most adverse" threshold for a third
// (or later, up to max) entry.
func atAdverseExtreme(dir core.Direction, price, adverse, buffer float64) bool {
	if dir == core.DirectionBuy {
		return price >= adverse-buffer/2
	}
	return price <= adverse+buffer/2
}
