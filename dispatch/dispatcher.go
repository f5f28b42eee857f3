// Package dispatch implements the Execution Dispatcher (spec §4.6): it
// submits constructed orders against the core.Broker, classifies the
// resulting error into one of the taxonomy kinds, retries transient
// failures with bounded backoff, and tracks consecutive-failure state for
// emergency suspension. Grounded on the backoff-retry idiom in
// exchange/binance/binance.go (setupBackoffRetry) and the OrderError
// wrapper type in exchange/exchange.go.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/raykavin/backnrun/core"
)

// ErrorKind classifies a broker error into one of the §4.6 policies.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransientBusy
	KindAlreadyProcessed
	KindPermanent
)

// Classifier maps a raw broker error to an ErrorKind. Concrete brokers
// supply this since the error shapes are broker-specific; the dispatcher
// only consumes the taxonomy.
type Classifier func(err error) ErrorKind

// Dispatcher submits orders and position modifications against a
// core.Broker, applying the §4.6 retry/classification policy.
type Dispatcher struct {
	broker     core.Broker
	classify   Classifier
	retryCount int
	retryDelay time.Duration
	throttle   *core.ThrottleState
	emergency  int
	recovery   time.Duration
}

// NewDispatcher builds a Dispatcher. retryCount/retryDelay bound the
// transient-busy retry loop (§5: "never busy-wait"); emergencyThreshold
// and recoveryWindow configure the ThrottleState's suspension policy.
func NewDispatcher(broker core.Broker, classify Classifier, retryCount int, retryDelay time.Duration, emergencyThreshold int, recoveryWindow time.Duration) *Dispatcher {
	return &Dispatcher{
		broker:     broker,
		classify:   classify,
		retryCount: retryCount,
		retryDelay: retryDelay,
		throttle:   &core.ThrottleState{},
		emergency:  emergencyThreshold,
		recovery:   recoveryWindow,
	}
}

// Throttle exposes the dispatcher's ThrottleState for inspection by the
// event loop (owned here per §3, read by the loop for suspension checks).
func (d *Dispatcher) Throttle() *core.ThrottleState {
	return d.throttle
}

// OpenMarket submits a market order with retry/classification applied.
func (d *Dispatcher) OpenMarket(ctx context.Context, now time.Time, intent core.OrderIntent) (core.Ticket, error) {
	var ticket core.Ticket
	err := d.run(ctx, now, func() error {
		t, err := d.broker.OpenMarket(ctx, intent.Direction, intent.Volume, intent.StopLoss, intent.TakeProfit, intent.Comment)
		ticket = t
		return err
	})
	return ticket, err
}

// OpenPending submits a pending (stop/limit) order with retry/classification applied.
func (d *Dispatcher) OpenPending(ctx context.Context, now time.Time, intent core.OrderIntent) (core.Ticket, error) {
	var ticket core.Ticket
	err := d.run(ctx, now, func() error {
		t, err := d.broker.OpenPending(ctx, intent.Kind, intent.Entry, intent.Volume, intent.StopLoss, intent.TakeProfit, intent.Comment)
		ticket = t
		return err
	})
	return ticket, err
}

// ModifyPosition applies an SL/TP modification with retry/classification applied.
func (d *Dispatcher) ModifyPosition(ctx context.Context, now time.Time, ticket core.Ticket, sl, tp float64) error {
	return d.run(ctx, now, func() error {
		return d.broker.ModifyPosition(ctx, ticket, sl, tp)
	})
}

// ClosePosition closes ticket, rerouting to the oldest same-direction,
// same-volume, same-instrument position when the broker enforces FIFO
// closing (§4.6 FIFO-safe closing variant).
func (d *Dispatcher) ClosePosition(ctx context.Context, now time.Time, ticket core.Ticket, fifoEnforced bool) error {
	target := ticket
	if fifoEnforced {
		resolved, err := d.resolveFIFOTarget(ctx, ticket)
		if err != nil {
			return err
		}
		target = resolved
	}
	return d.run(ctx, now, func() error {
		return d.broker.ClosePosition(ctx, target)
	})
}

// ClosePartial closes volume of ticket with retry/classification applied.
func (d *Dispatcher) ClosePartial(ctx context.Context, now time.Time, ticket core.Ticket, volume float64) error {
	return d.run(ctx, now, func() error {
		return d.broker.ClosePartial(ctx, ticket, volume)
	})
}

// resolveFIFOTarget reroutes a close request for ticket to the oldest
// same-direction, same-volume position on the same instrument.
func (d *Dispatcher) resolveFIFOTarget(ctx context.Context, ticket core.Ticket) (core.Ticket, error) {
	positions, err := d.broker.ListPositions(ctx)
	if err != nil {
		return ticket, err
	}

	var subject *core.Position
	for i := range positions {
		if positions[i].Ticket == ticket {
			subject = &positions[i]
			break
		}
	}
	if subject == nil {
		return ticket, nil // already gone: already-processed territory, let the close absorb it
	}

	oldest := subject
	for i := range positions {
		p := &positions[i]
		if p.Direction != subject.Direction || p.Volume != subject.Volume {
			continue
		}
		if p.OpenTime.Before(oldest.OpenTime) {
			oldest = p
		}
	}
	return oldest.Ticket, nil
}

// run executes op with the transient-busy retry loop and consecutive-
// failure/emergency-suspension bookkeeping (§4.6, §7).
func (d *Dispatcher) run(ctx context.Context, now time.Time, op func() error) error {
	if d.throttle.Suspended(now) {
		return fmt.Errorf("dispatch: subsystem suspended: %w", core.ErrSuspended)
	}

	// Factor 1 holds Duration() at Min on every attempt: the spec calls for
	// short fixed delays between retries (§4.6, §5), not jpillora/backoff's
	// default exponential growth.
	b := &backoff.Backoff{Min: d.retryDelay, Max: d.retryDelay * time.Duration(maxInt(d.retryCount, 1)), Factor: 1}

	var lastErr error
	for attempt := 0; attempt <= d.retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			d.throttle.RecordSuccess(now)
			return nil
		}

		kind := d.classify(err)
		switch kind {
		case KindAlreadyProcessed:
			d.throttle.RecordSuccess(now)
			return nil
		case KindPermanent:
			return fmt.Errorf("dispatch: permanent rejection: %w: %w", core.ErrPermanentBroker, err)
		case KindTransientBusy:
			lastErr = err
			if attempt < d.retryCount {
				time.Sleep(b.Duration())
				continue
			}
			return fmt.Errorf("dispatch: transient busy exhausted retries: %w: %w", core.ErrTransientBroker, err)
		default:
			d.throttle.RecordFailure(now, d.emergency, d.recovery)
			return fmt.Errorf("dispatch: unknown broker error: %w: %w", core.ErrUnknownBroker, err)
		}
	}
	return fmt.Errorf("dispatch: retries exhausted: %w: %w", core.ErrTransientBroker, lastErr)
}

// DefaultClassifier recognizes the sentinel errors this repo's broker
// adapters return; external brokers supply their own Classifier.
func DefaultClassifier(err error) ErrorKind {
	switch {
	case errors.Is(err, core.ErrAlreadyProcessed):
		return KindAlreadyProcessed
	case errors.Is(err, core.ErrPermanentBroker):
		return KindPermanent
	case errors.Is(err, core.ErrTransientBroker):
		return KindTransientBusy
	default:
		return KindUnknown
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
