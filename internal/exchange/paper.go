package exchange

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
)

// PriceLookup returns the last evaluated price of a symbol.
type PriceLookup func(symbol string) (decimal.Decimal, bool)

// Paper fills every order immediately at the last evaluated price.
type Paper struct {
	prices PriceLookup
	seq    atomic.Int64
	now    func() time.Time
}

func NewPaper(prices PriceLookup) *Paper {
	return &Paper{prices: prices, now: time.Now}
}

func (p *Paper) PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity decimal.Decimal) (OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return OrderResult{}, errors.Wrap(errors.ErrCodeConnectivity, "paper order cancelled", err)
	}
	if !quantity.IsPositive() {
		return OrderResult{}, errors.Newf(errors.ErrCodeOrderRejected, "quantity %s must be positive", quantity)
	}

	price, ok := p.prices(symbol)
	if !ok {
		return OrderResult{}, errors.Newf(errors.ErrCodeNoPrice, "no price to fill %s at", symbol)
	}

	return OrderResult{
		OrderID:  fmt.Sprintf("paper-%d", p.seq.Add(1)),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Status:   "FILLED",
		Time:     p.now(),
	}, nil
}
