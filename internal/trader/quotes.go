package trader

import (
	"context"
	"sync"
	"time"

	"binance-grid-bot-go/internal/pricefeed"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// quote is the outcome of one price fetch.
type quote struct {
	symbol string
	price  decimal.Decimal
	err    error
}

// fetchQuotes gets the price of every distinct symbol once, concurrently,
// each fetch bounded by timeout when it is positive. Grids sharing a symbol see the same price
// within a tick.
func fetchQuotes(ctx context.Context, src pricefeed.Source, symbols []string, timeout time.Duration, logger *zap.Logger) map[string]quote {
	seen := make(map[string]bool, len(symbols))
	var wg sync.WaitGroup
	results := make(chan quote, len(symbols))

	for _, symbol := range symbols {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			fetchCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			price, err := src.GetPrice(fetchCtx, symbol)
			if err != nil {
				logger.Warn("Failed to fetch price", zap.String("symbol", symbol), zap.Error(err))
			}
			results <- quote{symbol: symbol, price: price, err: err}
		}(symbol)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	quotes := make(map[string]quote, len(seen))
	for q := range results {
		quotes[q.symbol] = q
	}
	return quotes
}
