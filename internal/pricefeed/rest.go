package pricefeed

import (
	"context"

	"binance-grid-bot-go/internal/binance"
	"github.com/shopspring/decimal"
)

// Rest polls the Binance ticker endpoint on every call.
type Rest struct {
	client binance.RestClientInterface
}

func NewRest(client binance.RestClientInterface) *Rest {
	return &Rest{client: client}
}

func (r *Rest) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := r.client.GetTickerPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, connectivity(err, "fetch price for %s", symbol)
	}
	return price, nil
}
