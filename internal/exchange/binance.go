package exchange

import (
	"context"
	"strconv"
	"sync"
	"time"

	"binance-grid-bot-go/internal/binance"
	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type lotSize struct {
	minQty   decimal.Decimal
	stepSize decimal.Decimal
}

// Binance places orders through the Binance REST API, rounding quantities to
// each symbol's LOT_SIZE rules.
type Binance struct {
	client binance.RestClientInterface
	logger *zap.Logger

	mu    sync.Mutex
	rules map[string]lotSize
}

func NewBinance(client binance.RestClientInterface, logger *zap.Logger) *Binance {
	return &Binance{
		client: client,
		logger: logger.Named("exchange"),
	}
}

// LoadRules fetches and caches the LOT_SIZE filters of all symbols.
func (b *Binance) LoadRules(ctx context.Context) error {
	b.logger.Info("Fetching exchange information...")
	info, err := b.client.GetExchangeInfo(ctx)
	if err != nil {
		return err
	}

	rules := make(map[string]lotSize, len(info.Symbols))
	for _, s := range info.Symbols {
		f, ok := s.LotSize()
		if !ok {
			continue
		}
		step, err := decimal.NewFromString(f.StepSize)
		if err != nil {
			b.logger.Warn("Invalid LOT_SIZE step", zap.String("symbol", s.Symbol), zap.String("step", f.StepSize))
			continue
		}
		minQty, _ := decimal.NewFromString(f.MinQty)
		rules[s.Symbol] = lotSize{minQty: minQty, stepSize: step}
	}

	b.mu.Lock()
	b.rules = rules
	b.mu.Unlock()

	b.logger.Info("Cached exchange rules", zap.Int("count", len(rules)))
	return nil
}

func (b *Binance) rule(ctx context.Context, symbol string) (lotSize, bool, error) {
	b.mu.Lock()
	loaded := b.rules != nil
	b.mu.Unlock()

	if !loaded {
		if err := b.LoadRules(ctx); err != nil {
			return lotSize{}, false, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rules[symbol]
	return r, ok, nil
}

// formatQuantity floors quantity to the symbol's step size and enforces the
// minimum quantity.
func (b *Binance) formatQuantity(symbol string, quantity decimal.Decimal, r lotSize, ok bool) (decimal.Decimal, error) {
	if !ok || !r.stepSize.IsPositive() {
		b.logger.Warn("No LOT_SIZE rule for symbol, using quantity as is", zap.String("symbol", symbol))
		return quantity, nil
	}

	floored := quantity.Div(r.stepSize).Floor().Mul(r.stepSize)
	if floored.LessThan(r.minQty) || !floored.IsPositive() {
		return decimal.Zero, errors.Newf(errors.ErrCodeOrderRejected,
			"quantity %s is below minQty %s for symbol %s after rounding to step %s",
			quantity, r.minQty, symbol, r.stepSize)
	}
	return floored, nil
}

func (b *Binance) PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity decimal.Decimal) (OrderResult, error) {
	l := b.logger.With(
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("quantity", quantity.String()),
	)

	r, ok, err := b.rule(ctx, symbol)
	if err != nil {
		return OrderResult{}, err
	}
	qty, err := b.formatQuantity(symbol, quantity, r, ok)
	if err != nil {
		l.Warn("Order quantity rejected", zap.Error(err))
		return OrderResult{}, err
	}

	resp, err := b.client.CreateOrder(ctx, symbol, string(side), qty)
	if err != nil {
		return OrderResult{}, err
	}

	result := OrderResult{
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Symbol:  resp.Symbol,
		Side:    Side(resp.Side),
		Status:  resp.Status,
		Time:    time.UnixMilli(resp.TransactTime),
	}
	result.Quantity, _ = decimal.NewFromString(resp.ExecutedQuantity)
	quote, _ := decimal.NewFromString(resp.CummulativeQuoteQty)
	if result.Quantity.IsPositive() {
		result.Price = quote.Div(result.Quantity)
	}

	l.Info("Order filled",
		zap.String("order_id", result.OrderID),
		zap.String("executed_qty", result.Quantity.String()),
		zap.String("avg_price", result.Price.String()),
	)
	return result, nil
}
