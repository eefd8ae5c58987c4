// Package ledger keeps the FIFO book of open positions and the closed-trade
// history for one grid.
//
// RealizedCapital is the ledger's free quote balance: opening a position debits
// its cost, closing it credits its proceeds whatever the exit kind. Equity is
// therefore always RealizedCapital + MarkToMarket(price).
package ledger

import (
	"fmt"
	"time"

	"binance-grid-bot-go/internal/id"
	"github.com/shopspring/decimal"
)

// Ledger is not safe for concurrent use; the owning session serializes access.
type Ledger struct {
	key             string
	symbol          string
	open            []Position
	closed          []ClosedTrade
	realizedCapital decimal.Decimal
	realizedProfit  decimal.Decimal
	referencePrice  decimal.Decimal
	updatedAt       time.Time
	now             func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to stamp positions and trades.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger holding capital in free quote balance.
func New(key, symbol string, capital decimal.Decimal, opts ...Option) *Ledger {
	l := &Ledger{
		key:             key,
		symbol:          symbol,
		realizedCapital: capital,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromState rebuilds a ledger from a persisted snapshot.
func FromState(s State, opts ...Option) *Ledger {
	l := New(s.Key, s.Symbol, s.RealizedCapital, opts...)
	l.open = append([]Position(nil), s.Open...)
	l.closed = append([]ClosedTrade(nil), s.Closed...)
	l.realizedProfit = s.RealizedProfit
	l.referencePrice = s.ReferencePrice
	l.updatedAt = s.UpdatedAt
	return l
}

func (l *Ledger) Key() string    { return l.key }
func (l *Ledger) Symbol() string { return l.symbol }

// Len returns the number of open positions.
func (l *Ledger) Len() int { return len(l.open) }

// RealizedCapital returns the free quote balance.
func (l *Ledger) RealizedCapital() decimal.Decimal { return l.realizedCapital }

// RealizedProfit returns the sum of profits over all closed trades.
func (l *Ledger) RealizedProfit() decimal.Decimal { return l.realizedProfit }

// ReferencePrice is the price the next entry trigger is measured from.
// Zero means no trade has happened yet.
func (l *Ledger) ReferencePrice() decimal.Decimal { return l.referencePrice }

// SetReferencePrice re-arms the entry trigger.
func (l *Ledger) SetReferencePrice(p decimal.Decimal) {
	l.referencePrice = p
	l.updatedAt = l.now()
}

// OpenPositions returns a copy of the open queue, oldest first.
func (l *Ledger) OpenPositions() []Position {
	return append([]Position(nil), l.open...)
}

// ClosedTrades returns a copy of the closed trades in close order.
func (l *Ledger) ClosedTrades() []ClosedTrade {
	return append([]ClosedTrade(nil), l.closed...)
}

// Open appends a new position to the tail of the queue and pays for it out of
// the free balance. Non-positive inputs are a caller bug.
func (l *Ledger) Open(price, quantity decimal.Decimal) Position {
	if !price.IsPositive() || !quantity.IsPositive() {
		panic(fmt.Sprintf("ledger %s: open with price=%s quantity=%s", l.key, price, quantity))
	}

	at := l.now()
	p := Position{
		ID:         id.NewPositionID(at),
		OpenedAt:   at,
		EntryPrice: price,
		Quantity:   quantity,
	}
	l.open = append(l.open, p)
	l.realizedCapital = l.realizedCapital.Sub(p.Cost())
	l.updatedAt = at
	return p
}

// Close sells the oldest open position in full at price. It reports false and
// changes nothing when no position is open.
func (l *Ledger) Close(price decimal.Decimal, kind ExitKind) (ClosedTrade, bool) {
	if len(l.open) == 0 {
		return ClosedTrade{}, false
	}
	return l.closeAt(0, price, kind), true
}

// ClosePosition sells the open position with the given ID in full at price.
// The remaining positions keep their order.
func (l *Ledger) ClosePosition(positionID string, price decimal.Decimal, kind ExitKind) (ClosedTrade, bool) {
	for i := range l.open {
		if l.open[i].ID == positionID {
			return l.closeAt(i, price, kind), true
		}
	}
	return ClosedTrade{}, false
}

func (l *Ledger) closeAt(i int, price decimal.Decimal, kind ExitKind) ClosedTrade {
	p := l.open[i]
	l.open = append(l.open[:i:i], l.open[i+1:]...)

	at := l.now()
	t := ClosedTrade{
		PositionID:     p.ID,
		OpenedAt:       p.OpenedAt,
		ClosedAt:       at,
		EntryPrice:     p.EntryPrice,
		ExitPrice:      price,
		Quantity:       p.Quantity,
		RealizedProfit: p.Quantity.Mul(price.Sub(p.EntryPrice)),
		Exit:           kind,
	}
	l.closed = append(l.closed, t)
	l.realizedCapital = l.realizedCapital.Add(t.Proceeds())
	l.realizedProfit = l.realizedProfit.Add(t.RealizedProfit)
	l.updatedAt = at
	return t
}

// MarkToMarket values every open position at price.
func (l *Ledger) MarkToMarket(price decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.open {
		total = total.Add(p.Value(price))
	}
	return total
}

// OpenQuantity is the summed quantity of all open positions.
func (l *Ledger) OpenQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.open {
		total = total.Add(p.Quantity)
	}
	return total
}

// Equity is the free balance plus the open positions marked at price.
func (l *Ledger) Equity(price decimal.Decimal) decimal.Decimal {
	return l.realizedCapital.Add(l.MarkToMarket(price))
}

// State returns a deep copy of the ledger.
func (l *Ledger) State() State {
	return State{
		Key:             l.key,
		Symbol:          l.symbol,
		Open:            l.OpenPositions(),
		Closed:          l.ClosedTrades(),
		RealizedCapital: l.realizedCapital,
		RealizedProfit:  l.realizedProfit,
		ReferencePrice:  l.referencePrice,
		UpdatedAt:       l.updatedAt,
	}
}
