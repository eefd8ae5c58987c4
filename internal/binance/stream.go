package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"binance-grid-bot-go/internal/config"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	streamURL        = "wss://stream.binance.com:9443"
	testnetStreamURL = "wss://stream.testnet.binance.vision"

	minStreamBackoff = time.Second
	maxStreamBackoff = 16 * time.Second
)

// MiniTicker is the 24h rolling mini ticker pushed by the <symbol>@miniTicker stream.
type MiniTicker struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// Price parses the last price of the ticker.
func (t MiniTicker) Price() (decimal.Decimal, error) {
	return decimal.NewFromString(t.Close)
}

// Time is the event time of the ticker.
func (t MiniTicker) Time() time.Time {
	return time.UnixMilli(t.EventTime)
}

type combinedMessage struct {
	Stream string     `json:"stream"`
	Data   MiniTicker `json:"data"`
}

// StreamClient consumes Binance market data websocket streams.
type StreamClient struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

// NewStreamClient creates a stream client for the configured environment.
func NewStreamClient(cfg *config.Binance, logger *zap.Logger) *StreamClient {
	url := cfg.StreamURL
	if url == "" {
		url = streamURL
		if cfg.Testnet {
			url = testnetStreamURL
		}
	}
	return &StreamClient{
		baseURL: strings.TrimSuffix(url, "/"),
		dialer:  websocket.DefaultDialer,
		logger:  logger.Named("binance-stream"),
	}
}

func (s *StreamClient) endpoint(symbols []string) string {
	names := make([]string, len(symbols))
	for i, sym := range symbols {
		names[i] = strings.ToLower(sym) + "@miniTicker"
	}
	return s.baseURL + "/stream?streams=" + strings.Join(names, "/")
}

// Run subscribes to the mini tickers of symbols and calls handle for every
// update until ctx is done. Lost connections are re-established with
// exponential backoff between 1s and 16s.
func (s *StreamClient) Run(ctx context.Context, symbols []string, handle func(MiniTicker)) error {
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to subscribe to")
	}

	backoff := minStreamBackoff
	for {
		err := s.session(ctx, symbols, handle, func() { backoff = minStreamBackoff })
		if ctx.Err() != nil {
			s.logger.Info("Stream stopped")
			return nil
		}

		s.logger.Warn("Stream disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxStreamBackoff)
	}
}

func (s *StreamClient) session(ctx context.Context, symbols []string, handle func(MiniTicker), connected func()) error {
	url := s.endpoint(symbols)
	s.logger.Info("Connecting to stream", zap.String("url", url))

	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	connected()
	s.logger.Info("Stream connected", zap.Strings("symbols", symbols))

	// ReadMessage does not observe ctx, closing the connection unblocks it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var msg combinedMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Warn("Failed to parse stream message", zap.Error(err))
			continue
		}
		if msg.Data.Symbol == "" {
			continue
		}
		handle(msg.Data)
	}
}
