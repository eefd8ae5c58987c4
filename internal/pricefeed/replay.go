package pricefeed

import (
	"context"
	"sync"

	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
)

// Replay plays back a fixed price series per symbol and wraps around at the end.
type Replay struct {
	mu     sync.Mutex
	series map[string][]decimal.Decimal
	pos    map[string]int
}

// NewReplay creates a replay over series. Every series must be non-empty.
func NewReplay(series map[string][]decimal.Decimal) (*Replay, error) {
	r := &Replay{
		series: make(map[string][]decimal.Decimal, len(series)),
		pos:    make(map[string]int, len(series)),
	}
	for symbol, prices := range series {
		if len(prices) == 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "empty replay series for %s", symbol)
		}
		r.series[symbol] = append([]decimal.Decimal(nil), prices...)
	}
	return r, nil
}

// GetPrice returns the next price of symbol's series.
func (r *Replay) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrCodeConnectivity, "replay cancelled", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prices, ok := r.series[symbol]
	if !ok {
		return decimal.Zero, errors.Newf(errors.ErrCodeNoPrice, "no replay series for %s", symbol)
	}
	i := r.pos[symbol]
	r.pos[symbol] = (i + 1) % len(prices)
	return prices[i], nil
}

// Len returns the length of symbol's series.
func (r *Replay) Len(symbol string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series[symbol])
}
