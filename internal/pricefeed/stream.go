package pricefeed

import (
	"context"
	"sync"
	"time"

	"binance-grid-bot-go/internal/binance"
	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// tickerStream is the part of binance.StreamClient the feed needs.
type tickerStream interface {
	Run(ctx context.Context, symbols []string, handle func(binance.MiniTicker)) error
}

type quote struct {
	price decimal.Decimal
	at    time.Time
}

// Stream caches the last streamed price of every subscribed symbol.
// GetPrice blocks until a fresh price is cached or ctx is done.
type Stream struct {
	stream  tickerStream
	symbols []string
	maxAge  time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	last    map[string]quote
	changed chan struct{}
}

// NewStream creates a stream feed. Cached prices older than maxAge are not served.
func NewStream(stream tickerStream, symbols []string, maxAge time.Duration, logger *zap.Logger) *Stream {
	return &Stream{
		stream:  stream,
		symbols: symbols,
		maxAge:  maxAge,
		logger:  logger.Named("stream-feed"),
		now:     time.Now,
		last:    make(map[string]quote, len(symbols)),
		changed: make(chan struct{}),
	}
}

// Start runs the subscription in the background until ctx is done.
func (s *Stream) Start(ctx context.Context) {
	go func() {
		if err := s.stream.Run(ctx, s.symbols, s.update); err != nil {
			s.logger.Error("Price stream exited", zap.Error(err))
		}
	}()
}

func (s *Stream) update(t binance.MiniTicker) {
	price, err := t.Price()
	if err != nil || !price.IsPositive() {
		s.logger.Warn("Ignoring invalid ticker", zap.String("symbol", t.Symbol), zap.String("price", t.Close))
		return
	}

	s.mu.Lock()
	s.last[t.Symbol] = quote{price: price, at: s.now()}
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

func (s *Stream) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	for {
		s.mu.RLock()
		q, ok := s.last[symbol]
		changed := s.changed
		s.mu.RUnlock()

		if ok && s.now().Sub(q.at) <= s.maxAge {
			return q.price, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			if ok {
				return decimal.Zero, errors.Newf(errors.ErrCodeNoPrice, "streamed price for %s is stale since %s", symbol, q.at.Format(time.RFC3339))
			}
			return decimal.Zero, errors.Newf(errors.ErrCodeNoPrice, "no streamed price for %s", symbol)
		}
	}
}
