package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/raykavin/backnrun/core"
)

type fakeBroker struct {
	openMarketErrs []error
	openMarketCall int
	positions      []core.Position
	closeErr       error
	closedTickets  []core.Ticket
}

func (f *fakeBroker) OpenMarket(ctx context.Context, dir core.Direction, volume, sl, tp float64, comment string) (core.Ticket, error) {
	var err error
	if f.openMarketCall < len(f.openMarketErrs) {
		err = f.openMarketErrs[f.openMarketCall]
	}
	f.openMarketCall++
	if err != nil {
		return 0, err
	}
	return 42, nil
}
func (f *fakeBroker) OpenPending(ctx context.Context, kind core.OrderKind, triggerPrice, volume, sl, tp float64, comment string) (core.Ticket, error) {
	return 0, nil
}
func (f *fakeBroker) ModifyPosition(ctx context.Context, ticket core.Ticket, sl, tp float64) error {
	return nil
}
func (f *fakeBroker) ClosePosition(ctx context.Context, ticket core.Ticket) error {
	f.closedTickets = append(f.closedTickets, ticket)
	return f.closeErr
}
func (f *fakeBroker) ClosePartial(ctx context.Context, ticket core.Ticket, volume float64) error {
	return nil
}
func (f *fakeBroker) ListPositions(ctx context.Context) ([]core.Position, error) {
	return f.positions, nil
}
func (f *fakeBroker) SymbolInfo(ctx context.Context) (core.SymbolInfo, error) { return core.SymbolInfo{}, nil }
func (f *fakeBroker) IsTradeAllowed(ctx context.Context) bool                 { return true }
func (f *fakeBroker) Equity(ctx context.Context) (float64, error)            { return 10000, nil }
func (f *fakeBroker) Bid(ctx context.Context) (float64, error)               { return 1.1, nil }
func (f *fakeBroker) Ask(ctx context.Context) (float64, error)               { return 1.1001, nil }

var errTransientBusy = fmt.Errorf("trade context busy: %w", core.ErrTransientBroker)
var errAlready = fmt.Errorf("already closed: %w", core.ErrAlreadyProcessed)
var errPerm = fmt.Errorf("invalid stops: %w", core.ErrPermanentBroker)
var errWeird = errors.New("connection reset")

func TestOpenMarketRetriesTransientThenSucceeds(t *testing.T) {
	broker := &fakeBroker{openMarketErrs: []error{errTransientBusy, nil}}
	d := NewDispatcher(broker, DefaultClassifier, 3, time.Millisecond, 5, time.Minute)

	ticket, err := d.OpenMarket(context.Background(), time.Now(), core.OrderIntent{Direction: core.DirectionBuy})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket != 42 {
		t.Fatalf("expected ticket 42, got %v", ticket)
	}
	if broker.openMarketCall != 2 {
		t.Fatalf("expected 2 attempts, got %d", broker.openMarketCall)
	}
}

func TestOpenMarketAlreadyProcessedTreatedAsSuccess(t *testing.T) {
	broker := &fakeBroker{openMarketErrs: []error{errAlready}}
	d := NewDispatcher(broker, DefaultClassifier, 3, time.Millisecond, 5, time.Minute)

	_, err := d.OpenMarket(context.Background(), time.Now(), core.OrderIntent{})
	if err != nil {
		t.Fatalf("expected already-processed absorbed as success, got %v", err)
	}
}

func TestOpenMarketPermanentAbandonsWithoutRetry(t *testing.T) {
	broker := &fakeBroker{openMarketErrs: []error{errPerm}}
	d := NewDispatcher(broker, DefaultClassifier, 3, time.Millisecond, 5, time.Minute)

	_, err := d.OpenMarket(context.Background(), time.Now(), core.OrderIntent{})
	if !errors.Is(err, core.ErrPermanentBroker) {
		t.Fatalf("expected ErrPermanentBroker, got %v", err)
	}
	if broker.openMarketCall != 1 {
		t.Fatalf("expected no retry on permanent error, got %d attempts", broker.openMarketCall)
	}
}

func TestUnknownErrorSuspendsAfterThreshold(t *testing.T) {
	broker := &fakeBroker{openMarketErrs: []error{errWeird}}
	d := NewDispatcher(broker, DefaultClassifier, 0, time.Millisecond, 1, time.Hour)

	now := time.Now()
	_, err := d.OpenMarket(context.Background(), now, core.OrderIntent{})
	if !errors.Is(err, core.ErrUnknownBroker) {
		t.Fatalf("expected ErrUnknownBroker, got %v", err)
	}
	if !d.Throttle().Suspended(now) {
		t.Fatalf("expected subsystem suspended after reaching threshold")
	}

	_, err = d.OpenMarket(context.Background(), now, core.OrderIntent{})
	if !errors.Is(err, core.ErrSuspended) {
		t.Fatalf("expected ErrSuspended while suspended, got %v", err)
	}
}

func TestFIFOCloseReroutesToOldestSameDirectionVolume(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	t1 := time.Now().Add(-time.Minute)
	broker := &fakeBroker{
		positions: []core.Position{
			{Ticket: 1, Direction: core.DirectionBuy, Volume: 1.0, OpenTime: t0},
			{Ticket: 2, Direction: core.DirectionBuy, Volume: 1.0, OpenTime: t1},
		},
	}
	d := NewDispatcher(broker, DefaultClassifier, 1, time.Millisecond, 5, time.Minute)

	err := d.ClosePosition(context.Background(), time.Now(), 2, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(broker.closedTickets) != 1 || broker.closedTickets[0] != 1 {
		t.Fatalf("expected reroute to oldest ticket 1, got %v", broker.closedTickets)
	}
}

func TestNonFIFOCloseUsesRequestedTicket(t *testing.T) {
	broker := &fakeBroker{positions: []core.Position{
		{Ticket: 1, Direction: core.DirectionBuy, Volume: 1.0, OpenTime: time.Now()},
	}}
	d := NewDispatcher(broker, DefaultClassifier, 1, time.Millisecond, 5, time.Minute)

	err := d.ClosePosition(context.Background(), time.Now(), 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(broker.closedTickets) != 1 || broker.closedTickets[0] != 1 {
		t.Fatalf("expected close of ticket 1, got %v", broker.closedTickets)
	}
}
