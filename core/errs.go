package core

import "errors"

// Error taxonomy per the error handling design: every fallible operation
// returns one of these sentinel kinds (wrapped with context via fmt.Errorf
// and %w), never a bare string or panic across a subsystem boundary.
var (
	// ErrDataNotReady means an indicator or classifier input has not yet
	// produced a value. Benign: the caller skips this cycle.
	ErrDataNotReady = errors.New("data not ready")

	// ErrValidationRejected means a signal gate rejected a candidate signal.
	// Expected; the reason is carried separately on the gate decision.
	ErrValidationRejected = errors.New("signal validation rejected")

	// ErrRiskGate means the risk budget blocked a new entry (drawdown or
	// max-positions). Recoverable once the gate clears.
	ErrRiskGate = errors.New("risk gate blocked entry")

	// ErrSizingBelowMinimum means the rounded volume fell below the
	// broker's minimum tradable size. The entry is abandoned, not counted
	// against subsystem health.
	ErrSizingBelowMinimum = errors.New("sized volume below broker minimum")

	// ErrTransientBroker means a broker call failed with a retryable
	// condition (trade-context busy, request being processed).
	ErrTransientBroker = errors.New("transient broker error")

	// ErrAlreadyProcessed means the broker reports the desired end state
	// already holds (e.g. modify to stops already set, or position gone).
	// Treated as success.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrPermanentBroker means the broker rejected the request outright
	// (invalid volume, invalid stops, insufficient margin, market closed).
	ErrPermanentBroker = errors.New("permanent broker rejection")

	// ErrUnknownBroker means a broker failure outside the above kinds.
	// Counts toward consecutive-failure and can trigger emergency
	// suspension.
	ErrUnknownBroker = errors.New("unknown broker error")

	// ErrExitBlocked means repeated modification failures on a ticket put
	// it into the ExitBlocked sink; no further attempts are made.
	ErrExitBlocked = errors.New("position exit blocked")

	// ErrSuspended means the activity is inside its emergency-suspension
	// recovery window and must not be attempted.
	ErrSuspended = errors.New("activity suspended")
)
