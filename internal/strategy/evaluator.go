// Package strategy decides, for one grid at one price, which positions to open
// and which to close.
//
// The entry trigger trails the market: the reference price is re-armed to the
// executed price after every buy and every sell, so the next entry is always
// measured from the last fill rather than from a fixed grid level.
package strategy

import (
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/ledger"
	"github.com/shopspring/decimal"
)

// quantityScale is the number of decimal places buy quantities are truncated to.
const quantityScale = 8

// Evaluator applies one grid's Config to its ledger.
type Evaluator struct {
	cfg Config
}

// NewEvaluator validates cfg and returns an evaluator for it.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg}, nil
}

func (e *Evaluator) Config() Config { return e.cfg }

// Evaluate returns the actions triggered at price without touching the ledger.
// An entry comes first, followed by exits for the open positions oldest first.
func (e *Evaluator) Evaluate(price decimal.Decimal, l *ledger.Ledger) []Action {
	if !price.IsPositive() {
		return nil
	}

	var actions []Action
	if a, ok := e.entry(price, l); ok {
		actions = append(actions, a)
	}

	for _, p := range l.OpenPositions() {
		if kind, ok := e.exit(price, p); ok {
			actions = append(actions, Action{
				Kind:       kind,
				PositionID: p.ID,
				Price:      price,
				Quantity:   p.Quantity,
			})
		}
	}
	return actions
}

func (e *Evaluator) entry(price decimal.Decimal, l *ledger.Ledger) (Action, bool) {
	ref := l.ReferencePrice()
	if ref.IsPositive() {
		trigger := ref.Mul(decimal.NewFromInt(1).Sub(fraction(e.cfg.BuyDropPercent)))
		if price.GreaterThan(trigger) {
			return Action{}, false
		}
	}

	if e.cfg.MaxPositions.IsSome() && l.Len() >= e.cfg.MaxPositions.Unwrap() {
		return Action{}, false
	}

	capital := l.RealizedCapital()
	if !capital.IsPositive() {
		return Action{}, false
	}

	qty := fraction(e.cfg.InvestPercent).Mul(capital).Div(price).Truncate(quantityScale)
	if !qty.IsPositive() || qty.Mul(price).GreaterThan(capital) {
		return Action{}, false
	}

	return Action{Kind: Buy, Price: price, Quantity: qty}, true
}

func (e *Evaluator) exit(price decimal.Decimal, p ledger.Position) (ActionKind, bool) {
	one := decimal.NewFromInt(1)

	takeProfit := p.EntryPrice.Mul(one.Add(fraction(e.cfg.TakeProfitPercent)))
	if price.GreaterThanOrEqual(takeProfit) {
		return SellTakeProfit, true
	}

	if e.cfg.StopLossPercent.IsSome() {
		stopLoss := p.EntryPrice.Mul(one.Sub(fraction(e.cfg.StopLossPercent.Unwrap())))
		if price.LessThanOrEqual(stopLoss) {
			return SellStopLoss, true
		}
	}
	return 0, false
}

// Apply books action into the ledger and re-arms the reference price to the
// executed price.
func (e *Evaluator) Apply(l *ledger.Ledger, a Action) (Fill, error) {
	switch a.Kind {
	case Buy:
		if !a.Price.IsPositive() || !a.Quantity.IsPositive() {
			return Fill{}, errors.Newf(errors.ErrCodeInvalidParameter, "buy with price=%s quantity=%s", a.Price, a.Quantity)
		}
		p := l.Open(a.Price, a.Quantity)
		l.SetReferencePrice(a.Price)
		return Fill{Action: a, Position: p}, nil

	case SellTakeProfit, SellStopLoss:
		t, ok := l.ClosePosition(a.PositionID, a.Price, a.exitKind())
		if !ok {
			return Fill{}, errors.Newf(errors.ErrCodeInvalidParameter, "no open position %q in ledger %s", a.PositionID, l.Key())
		}
		l.SetReferencePrice(a.Price)
		return Fill{Action: a, Trade: t}, nil
	}

	return Fill{}, errors.Newf(errors.ErrCodeInvalidParameter, "unknown action %s", a.Kind)
}
