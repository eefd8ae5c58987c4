// Package exchange places market orders for the control loop, either on
// Binance or on an in-process paper account.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderResult describes a filled market order.
type OrderResult struct {
	OrderID  string          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	// Price is the average fill price.
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status"`
	Time   time.Time       `json:"time"`
}

// Client places market orders.
type Client interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity decimal.Decimal) (OrderResult, error)
}
