// Package broker provides concrete core.Broker implementations for tests
// and the replay harness. Simulator is grounded on
// exchange/paper_wallet.go's simulated fill/position bookkeeping, adapted
// from spot asset-balance accounting to position-based CFD/FX trading: a
// ticket identifies one filled position with stop/take-profit levels
// instead of a free/locked asset balance pair.
package broker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raykavin/backnrun/core"
	"github.com/raykavin/backnrun/logger"
)

// pendingOrder is a resting stop order waiting for price to trigger it.
type pendingOrder struct {
	kind         core.OrderKind
	triggerPrice float64
	volume       float64
	sl, tp       float64
	comment      string
}

// Simulator is an in-memory core.Broker: it fills market orders
// immediately at the current bid/ask, triggers pending stop orders when
// price crosses them, and tracks equity as starting balance plus realized
// P&L plus the floating P&L of open positions. Not safe for use from multiple goroutines without relying on its
// own internal lock, mirroring PaperWallet's sync.RWMutex bookkeeping.
type Simulator struct {
	mu sync.RWMutex

	symbol       core.SymbolInfo
	startBalance float64
	realizedPnL  float64
	bid, ask     float64
	tradeAllowed bool
	counter      atomic.Int64

	positions map[core.Ticket]*core.Position
	pending   map[core.Ticket]*pendingOrder

	log logger.Logger
}

// Option configures a Simulator at construction.
type Option func(*Simulator)

// WithStartBalance sets the simulator's initial equity.
func WithStartBalance(balance float64) Option {
	return func(s *Simulator) { s.startBalance = balance }
}

// WithLogger attaches a logger; defaults to a no-op if never set.
func WithLogger(log logger.Logger) Option {
	return func(s *Simulator) { s.log = log }
}

// New returns a Simulator seeded with the given symbol metadata.
func New(symbol core.SymbolInfo, opts ...Option) *Simulator {
	s := &Simulator{
		symbol:       symbol,
		startBalance: 10000,
		tradeAllowed: true,
		positions:    make(map[core.Ticket]*core.Position),
		pending:      make(map[core.Ticket]*pendingOrder),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log != nil {
		s.log.Infof("paper broker started with balance %.2f", s.startBalance)
	}
	return s
}

// SetPrice pushes a new bid/ask quote and triggers any pending stop order
// whose trigger price has been crossed.
func (s *Simulator) SetPrice(ctx context.Context, bid, ask float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bid, s.ask = bid, ask
	s.triggerPendingLocked()
}

// SetTradeAllowed flips the trading-allowed flag, mirroring a broker
// terminal's connection/market-hours gate.
func (s *Simulator) SetTradeAllowed(allowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradeAllowed = allowed
}

func (s *Simulator) triggerPendingLocked() {
	for ticket, p := range s.pending {
		var trigger bool
		switch p.kind {
		case core.OrderKindBuyStop:
			trigger = s.ask >= p.triggerPrice
		case core.OrderKindSellStop:
			trigger = s.bid <= p.triggerPrice
		}
		if !trigger {
			continue
		}
		dir := core.DirectionBuy
		if p.kind == core.OrderKindSellStop {
			dir = core.DirectionSell
		}
		s.fillLocked(ticket, dir, p.volume, p.sl, p.tp, p.comment)
		delete(s.pending, ticket)
	}
}

func (s *Simulator) nextTicket() core.Ticket {
	return core.Ticket(s.counter.Add(1))
}

func (s *Simulator) fillLocked(ticket core.Ticket, dir core.Direction, volume, sl, tp float64, comment string) {
	entry := s.ask
	if dir == core.DirectionSell {
		entry = s.bid
	}
	s.positions[ticket] = &core.Position{
		Ticket:     ticket,
		Direction:  dir,
		EntryPrice: entry,
		Volume:     volume,
		StopLoss:   sl,
		TakeProfit: tp,
		OpenTime:   time.Now(),
		State:      core.PositionOpen,
	}
}

// OpenMarket implements core.Broker: fills immediately at the current
// ask (buy) or bid (sell).
func (s *Simulator) OpenMarket(ctx context.Context, dir core.Direction, volume, sl, tp float64, comment string) (core.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tradeAllowed {
		return 0, fmt.Errorf("broker: trading not allowed: %w", core.ErrPermanentBroker)
	}
	if rounded := s.symbol.RoundVolumeDown(volume); rounded == 0 {
		return 0, fmt.Errorf("broker: volume %.4f below minimum: %w", volume, core.ErrSizingBelowMinimum)
	}
	ticket := s.nextTicket()
	s.fillLocked(ticket, dir, volume, sl, tp, comment)
	return ticket, nil
}

// OpenPending implements core.Broker: registers a resting stop order that
// fills on the next SetPrice crossing its trigger.
func (s *Simulator) OpenPending(ctx context.Context, kind core.OrderKind, triggerPrice, volume, sl, tp float64, comment string) (core.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tradeAllowed {
		return 0, fmt.Errorf("broker: trading not allowed: %w", core.ErrPermanentBroker)
	}
	if rounded := s.symbol.RoundVolumeDown(volume); rounded == 0 {
		return 0, fmt.Errorf("broker: volume %.4f below minimum: %w", volume, core.ErrSizingBelowMinimum)
	}
	ticket := s.nextTicket()
	s.pending[ticket] = &pendingOrder{kind: kind, triggerPrice: triggerPrice, volume: volume, sl: sl, tp: tp, comment: comment}
	return ticket, nil
}

// ModifyPosition implements core.Broker.
func (s *Simulator) ModifyPosition(ctx context.Context, ticket core.Ticket, sl, tp float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[ticket]
	if !ok {
		return fmt.Errorf("broker: unknown ticket %d: %w", ticket, core.ErrPermanentBroker)
	}
	if p.StopLoss == sl && p.TakeProfit == tp {
		return core.ErrAlreadyProcessed
	}
	p.StopLoss, p.TakeProfit = sl, tp
	return nil
}

// ClosePosition implements core.Broker: realizes P&L at the current quote
// and removes the ticket.
func (s *Simulator) ClosePosition(ctx context.Context, ticket core.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[ticket]
	if !ok {
		return core.ErrAlreadyProcessed
	}
	s.realizedPnL += s.pnlLocked(p, p.Volume)
	delete(s.positions, ticket)
	return nil
}

// ClosePartial implements core.Broker: realizes P&L on volume and reduces
// the remaining position; fully closes if volume meets or exceeds it.
func (s *Simulator) ClosePartial(ctx context.Context, ticket core.Ticket, volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[ticket]
	if !ok {
		return core.ErrAlreadyProcessed
	}
	if volume >= p.Volume {
		s.realizedPnL += s.pnlLocked(p, p.Volume)
		delete(s.positions, ticket)
		return nil
	}
	s.realizedPnL += s.pnlLocked(p, volume)
	p.Volume -= volume
	p.RecordPartialClose(time.Now())
	return nil
}

func (s *Simulator) pnlLocked(p *core.Position, volume float64) float64 {
	exit := s.bid
	if p.Direction == core.DirectionSell {
		exit = s.ask
	}
	priceDiff := p.UnrealizedProfit(exit)
	if s.symbol.TickSize <= 0 {
		return priceDiff * volume
	}
	return priceDiff / s.symbol.TickSize * s.symbol.TickValue * volume
}

// ListPositions implements core.Broker.
func (s *Simulator) ListPositions(ctx context.Context) ([]core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	return out, nil
}

// SymbolInfo implements core.Broker.
func (s *Simulator) SymbolInfo(ctx context.Context) (core.SymbolInfo, error) {
	return s.symbol, nil
}

// IsTradeAllowed implements core.Broker.
func (s *Simulator) IsTradeAllowed(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tradeAllowed
}

// Equity implements core.Broker: starting balance plus realized P&L plus
// every open position's floating P&L at the current quote.
func (s *Simulator) Equity(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	equity := s.startBalance + s.realizedPnL
	for _, p := range s.positions {
		equity += s.pnlLocked(p, p.Volume)
	}
	return equity, nil
}

// Bid implements core.Broker.
func (s *Simulator) Bid(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bid, nil
}

// Ask implements core.Broker.
func (s *Simulator) Ask(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ask, nil
}
