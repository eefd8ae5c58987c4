package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitKind records why a position was closed.
type ExitKind string

const (
	ExitTakeProfit ExitKind = "take_profit"
	ExitStopLoss   ExitKind = "stop_loss"
	ExitManual     ExitKind = "manual"
)

// Position is an open long spot position.
type Position struct {
	ID         string          `json:"id"`
	OpenedAt   time.Time       `json:"opened_at"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Cost is the quote amount paid to open the position.
func (p Position) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.EntryPrice)
}

// Value is the position marked at price.
func (p Position) Value(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// ClosedTrade is the immutable record of a closed position.
type ClosedTrade struct {
	PositionID     string          `json:"position_id"`
	OpenedAt       time.Time       `json:"opened_at"`
	ClosedAt       time.Time       `json:"closed_at"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	ExitPrice      decimal.Decimal `json:"exit_price"`
	Quantity       decimal.Decimal `json:"quantity"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	Exit           ExitKind        `json:"exit"`
}

// Proceeds is the quote amount received when the position was sold.
func (t ClosedTrade) Proceeds() decimal.Decimal {
	return t.Quantity.Mul(t.ExitPrice)
}

// State is a detached copy of a ledger, used for persistence and display.
type State struct {
	Key             string          `json:"key"`
	Symbol          string          `json:"symbol"`
	Open            []Position      `json:"open"`
	Closed          []ClosedTrade   `json:"closed"`
	RealizedCapital decimal.Decimal `json:"realized_capital"`
	RealizedProfit  decimal.Decimal `json:"realized_profit"`
	ReferencePrice  decimal.Decimal `json:"reference_price"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
