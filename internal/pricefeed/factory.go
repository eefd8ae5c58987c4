package pricefeed

import (
	"context"
	"time"

	"binance-grid-bot-go/internal/binance"
	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// staleAfterTicks is how many check intervals a streamed price stays usable.
const staleAfterTicks = 3

// FromConfig builds the price source selected by trading.price_feed. A stream
// source is started and lives until ctx is done.
func FromConfig(ctx context.Context, cfg *config.Config, rest binance.RestClientInterface, logger *zap.Logger) (Source, error) {
	symbols := symbolsOf(cfg.Grids)

	switch cfg.Trading.PriceFeed {
	case config.FeedRest:
		return NewRest(rest), nil

	case config.FeedStream:
		maxAge := max(staleAfterTicks*cfg.Trading.CheckInterval, time.Minute)
		s := NewStream(binance.NewStreamClient(&cfg.Binance, logger), symbols, maxAge, logger)
		s.Start(ctx)
		return s, nil

	case config.FeedReplay:
		return loadReplay(ctx, cfg, rest, symbols, logger)
	}

	return nil, errors.Newf(errors.ErrCodeUnsupportedMode, "unknown price feed %q", cfg.Trading.PriceFeed)
}

func loadReplay(ctx context.Context, cfg *config.Config, rest binance.RestClientInterface, symbols []string, logger *zap.Logger) (*Replay, error) {
	rc := cfg.Trading.Replay
	series := make(map[string][]decimal.Decimal, len(symbols))

	for _, symbol := range symbols {
		var (
			prices []decimal.Decimal
			err    error
		)
		switch rc.Source {
		case "klines":
			prices, err = LoadKlines(ctx, rest, symbol, rc.Interval, rc.Lookback, time.Now())
		case "csv":
			prices, err = LoadCSV(rc.File, symbol)
		case "random":
			prices = RandomWalk(rc.Seed, symbol, rc.Start, rc.Vol, rc.Points)
		default:
			err = errors.Newf(errors.ErrCodeUnsupportedMode, "unknown replay source %q", rc.Source)
		}
		if err != nil {
			return nil, err
		}

		logger.Info("Loaded replay series",
			zap.String("symbol", symbol),
			zap.String("source", rc.Source),
			zap.Int("points", len(prices)),
		)
		series[symbol] = prices
	}

	return NewReplay(series)
}

func symbolsOf(grids []config.Grid) []string {
	seen := make(map[string]struct{}, len(grids))
	var out []string
	for _, g := range grids {
		if _, ok := seen[g.Symbol]; ok {
			continue
		}
		seen[g.Symbol] = struct{}{}
		out = append(out, g.Symbol)
	}
	return out
}
