package notification

import "github.com/raykavin/backnrun/core"

// Multi fans an AlertEvent out to every configured core.Notifier, matching
// the teacher's "currently only email and telegram are supported" comment
// generalized to run both rather than one at a time.
type Multi []core.Notifier

// Notify implements core.Notifier.
func (m Multi) Notify(event core.AlertEvent) {
	for _, n := range m {
		n.Notify(event)
	}
}
