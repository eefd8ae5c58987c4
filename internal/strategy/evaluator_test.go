package strategy

import (
	"testing"

	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/ledger"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func baseConfig() Config {
	return Config{
		BuyDropPercent:    d("1"),
		TakeProfitPercent: d("1.4"),
		InvestPercent:     d("10"),
		StopLossPercent:   optional.None[decimal.Decimal](),
		MaxPositions:      optional.None[int](),
	}
}

func newEvaluator(t *testing.T, cfg Config) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(cfg)
	require.NoError(t, err)
	return e
}

func armedLedger(ref string) *ledger.Ledger {
	l := ledger.New("btc", "BTCUSDT", d("1000"))
	l.SetReferencePrice(d(ref))
	return l
}

func TestEvaluate_FreshLedgerBuysImmediately(t *testing.T) {
	e := newEvaluator(t, baseConfig())
	l := ledger.New("btc", "BTCUSDT", d("1000"))

	actions := e.Evaluate(d("200"), l)

	require.Len(t, actions, 1)
	assert.Equal(t, Buy, actions[0].Kind)
	assert.True(t, actions[0].Quantity.Equal(d("0.5")), "ten percent of 1000 at 200")
}

func TestEvaluate_EntryTrigger(t *testing.T) {
	e := newEvaluator(t, baseConfig())

	testCases := []struct {
		name    string
		price   string
		wantBuy bool
	}{
		{name: "drop past trigger", price: "98.9", wantBuy: true},
		{name: "exactly at trigger", price: "99", wantBuy: true},
		{name: "drop too small", price: "99.5", wantBuy: false},
		{name: "price above reference", price: "101", wantBuy: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actions := e.Evaluate(d(tc.price), armedLedger("100"))
			if !tc.wantBuy {
				assert.Empty(t, actions)
				return
			}
			require.Len(t, actions, 1)
			assert.Equal(t, Buy, actions[0].Kind)
			assert.True(t, actions[0].Price.Equal(d(tc.price)))
		})
	}
}

func TestEvaluate_TakeProfitExample(t *testing.T) {
	e := newEvaluator(t, baseConfig())
	l := armedLedger("100")

	actions := e.Evaluate(d("98.9"), l)
	require.Len(t, actions, 1)
	fill, err := e.Apply(l, actions[0])
	require.NoError(t, err)

	// 98.9 * 1.014 = 100.2846
	assert.Empty(t, e.Evaluate(d("100.28"), l))

	actions = e.Evaluate(d("100.3"), l)
	require.Len(t, actions, 1)
	assert.Equal(t, SellTakeProfit, actions[0].Kind)
	assert.Equal(t, fill.Position.ID, actions[0].PositionID)
	assert.True(t, actions[0].Quantity.Equal(fill.Position.Quantity))
}

func TestEvaluate_StopLoss(t *testing.T) {
	cfg := baseConfig()
	cfg.StopLossPercent = optional.Some(d("5"))
	e := newEvaluator(t, cfg)

	l := armedLedger("100")
	l.Open(d("100"), d("1"))
	l.SetReferencePrice(d("100"))

	// 95 triggers both the stop loss and a new entry.
	actions := e.Evaluate(d("95"), l)
	require.Len(t, actions, 2)
	assert.Equal(t, Buy, actions[0].Kind)
	assert.Equal(t, SellStopLoss, actions[1].Kind)

	noSL := newEvaluator(t, baseConfig())
	for _, a := range noSL.Evaluate(d("50"), l) {
		assert.NotEqual(t, SellStopLoss, a.Kind, "stop loss disabled must ignore drops")
	}
}

func TestEvaluate_TakeProfitWinsTies(t *testing.T) {
	cfg := baseConfig()
	cfg.TakeProfitPercent = d("0.0001")
	cfg.StopLossPercent = optional.Some(d("99"))
	e := newEvaluator(t, cfg)

	l := armedLedger("1")
	l.Open(d("1"), d("1"))

	kind, ok := e.exit(d("2"), l.OpenPositions()[0])
	require.True(t, ok)
	assert.Equal(t, SellTakeProfit, kind)

	// Force both conditions true on the same position.
	e.cfg.TakeProfitPercent = d("-200")
	kind, ok = e.exit(d("0.001"), l.OpenPositions()[0])
	require.True(t, ok)
	assert.Equal(t, SellTakeProfit, kind)
}

func TestEvaluate_ExitsOldestFirst(t *testing.T) {
	e := newEvaluator(t, baseConfig())
	l := armedLedger("100")
	first := l.Open(d("90"), d("1"))
	second := l.Open(d("95"), d("1"))
	l.Open(d("120"), d("1"))

	actions := e.Evaluate(d("110"), l)

	var sells []string
	for _, a := range actions {
		if a.Kind == SellTakeProfit {
			sells = append(sells, a.PositionID)
		}
	}
	assert.Equal(t, []string{first.ID, second.ID}, sells)
}

func TestEvaluate_MaxPositionsCap(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxPositions = optional.Some(2)
	e := newEvaluator(t, cfg)

	l := armedLedger("100")
	l.Open(d("100"), d("1"))
	l.Open(d("99"), d("1"))

	assert.Empty(t, e.Evaluate(d("90"), l))
}

func TestEvaluate_SkipsUnaffordableBuy(t *testing.T) {
	e := newEvaluator(t, baseConfig())

	broke := ledger.New("btc", "BTCUSDT", decimal.Zero)
	assert.Empty(t, e.Evaluate(d("100"), broke))

	dust := ledger.New("btc", "BTCUSDT", d("0.000000001"))
	assert.Empty(t, e.Evaluate(d("100"), dust), "quantity truncates to zero")
}

func TestApply_TrailingReArm(t *testing.T) {
	e := newEvaluator(t, baseConfig())
	l := armedLedger("100")

	buy := e.Evaluate(d("98"), l)
	require.Len(t, buy, 1)
	_, err := e.Apply(l, buy[0])
	require.NoError(t, err)
	assert.True(t, l.ReferencePrice().Equal(d("98")))

	sell := e.Evaluate(d("100"), l)
	require.Len(t, sell, 1)
	fill, err := e.Apply(l, sell[0])
	require.NoError(t, err)

	assert.True(t, l.ReferencePrice().Equal(d("100")), "sells re-arm the trigger too")
	assert.Equal(t, ledger.ExitTakeProfit, fill.Trade.Exit)
	assert.True(t, fill.Trade.RealizedProfit.IsPositive())
	assert.Equal(t, 0, l.Len())
}

func TestApply_UnknownPosition(t *testing.T) {
	e := newEvaluator(t, baseConfig())
	l := armedLedger("100")

	_, err := e.Apply(l, Action{Kind: SellStopLoss, PositionID: "gone", Price: d("90")})

	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))
	assert.True(t, l.ReferencePrice().Equal(d("100")))
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "zero drop", mutate: func(c *Config) { c.BuyDropPercent = decimal.Zero }},
		{name: "negative take profit", mutate: func(c *Config) { c.TakeProfitPercent = d("-1") }},
		{name: "invest above 100", mutate: func(c *Config) { c.InvestPercent = d("150") }},
		{name: "stop loss 100", mutate: func(c *Config) { c.StopLossPercent = optional.Some(d("100")) }},
		{name: "zero max positions", mutate: func(c *Config) { c.MaxPositions = optional.Some(0) }},
	}

	assert.NoError(t, baseConfig().Validate())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(&cfg)

			_, err := NewEvaluator(cfg)

			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
		})
	}
}
