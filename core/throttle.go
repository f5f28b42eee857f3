package core

import "time"

// ThrottleState tracks one activity's recent success/failure history, owned
// exclusively by the Event Loop (§3). When ConsecutiveFailures reaches the
// emergency threshold, the activity is suspended until the recovery window
// elapses.
type ThrottleState struct {
	LastSuccess         time.Time
	ConsecutiveFailures int
	CooldownSeconds     int
	suspendedUntil      time.Time
}

// RecordSuccess resets the failure counter and stamps the success clock.
func (t *ThrottleState) RecordSuccess(now time.Time) {
	t.LastSuccess = now
	t.ConsecutiveFailures = 0
	t.suspendedUntil = time.Time{}
}

// RecordFailure increments the consecutive-failure counter and, once it
// reaches emergencyThreshold, suspends the activity for recoveryWindow.
func (t *ThrottleState) RecordFailure(now time.Time, emergencyThreshold int, recoveryWindow time.Duration) {
	t.ConsecutiveFailures++
	if t.ConsecutiveFailures >= emergencyThreshold {
		t.suspendedUntil = now.Add(recoveryWindow)
	}
}

// Suspended reports whether the activity is currently inside its recovery
// window.
func (t *ThrottleState) Suspended(now time.Time) bool {
	return !t.suspendedUntil.IsZero() && now.Before(t.suspendedUntil)
}

// ResetSuspension clears suspension and the failure counter once the
// recovery window has elapsed, making the subsystem eligible to retry.
func (t *ThrottleState) ResetSuspension(now time.Time) {
	if !t.suspendedUntil.IsZero() && !now.Before(t.suspendedUntil) {
		t.suspendedUntil = time.Time{}
		t.ConsecutiveFailures = 0
	}
}

// CooledDown reports whether CooldownSeconds have elapsed since
// LastSuccess (used for the per-cycle "same rejection, same context"
// evaluation throttle, §4.9).
func (t *ThrottleState) CooledDown(now time.Time) bool {
	if t.LastSuccess.IsZero() {
		return true
	}
	return now.Sub(t.LastSuccess) >= time.Duration(t.CooldownSeconds)*time.Second
}
