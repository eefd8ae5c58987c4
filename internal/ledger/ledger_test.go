package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stepClock returns a clock advancing one second per call.
func stepClock() func() time.Time {
	t := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestLedger(capital string) *Ledger {
	return New("btc-grid", "BTCUSDT", d(capital), WithClock(stepClock()))
}

func TestLedger_OpenCloseFIFOExample(t *testing.T) {
	l := newTestLedger("1000")
	l.Open(d("100"), d("1"))
	l.Open(d("110"), d("1"))

	trade, ok := l.Close(d("120"), ExitTakeProfit)
	require.True(t, ok)

	assert.True(t, trade.EntryPrice.Equal(d("100")))
	assert.True(t, trade.ExitPrice.Equal(d("120")))
	assert.True(t, trade.RealizedProfit.Equal(d("20")))
	assert.Equal(t, ExitTakeProfit, trade.Exit)

	open := l.OpenPositions()
	require.Len(t, open, 1)
	assert.True(t, open[0].EntryPrice.Equal(d("110")))
}

func TestLedger_CloseRemovesEarliestRemaining(t *testing.T) {
	l := newTestLedger("100000")
	entries := []string{"100", "101", "102", "103", "104"}
	var ids []string
	for _, e := range entries {
		ids = append(ids, l.Open(d(e), d("0.5")).ID)
	}

	for m := 1; m <= 3; m++ {
		trade, ok := l.Close(d("105"), ExitTakeProfit)
		require.True(t, ok)
		assert.Equal(t, ids[m-1], trade.PositionID)
		assert.Equal(t, len(entries)-m, l.Len())
	}

	closed := l.ClosedTrades()
	require.Len(t, closed, 3)
	for i, c := range closed {
		assert.True(t, c.EntryPrice.Equal(d(entries[i])), "close order must follow open order")
	}
}

func TestLedger_CloseEmptyIsNoop(t *testing.T) {
	l := newTestLedger("500")
	before := l.State()

	trade, ok := l.Close(d("100"), ExitStopLoss)

	assert.False(t, ok)
	assert.Equal(t, ClosedTrade{}, trade)
	assert.Equal(t, before, l.State())
}

func TestLedger_ClosePositionKeepsOrder(t *testing.T) {
	l := newTestLedger("1000")
	a := l.Open(d("100"), d("1"))
	b := l.Open(d("95"), d("1"))
	c := l.Open(d("90"), d("1"))

	trade, ok := l.ClosePosition(b.ID, d("97"), ExitTakeProfit)
	require.True(t, ok)
	assert.True(t, trade.RealizedProfit.Equal(d("2")))

	open := l.OpenPositions()
	require.Len(t, open, 2)
	assert.Equal(t, a.ID, open[0].ID)
	assert.Equal(t, c.ID, open[1].ID)

	_, ok = l.ClosePosition("missing", d("97"), ExitManual)
	assert.False(t, ok)
}

func TestLedger_CapitalAccounting(t *testing.T) {
	l := newTestLedger("1000")

	l.Open(d("100"), d("2"))
	assert.True(t, l.RealizedCapital().Equal(d("800")))
	assert.True(t, l.Equity(d("100")).Equal(d("1000")), "opening alone does not change equity")

	_, ok := l.Close(d("90"), ExitStopLoss)
	require.True(t, ok)
	assert.True(t, l.RealizedCapital().Equal(d("980")))
	assert.True(t, l.RealizedProfit().Equal(d("-20")))
	assert.True(t, l.Equity(d("90")).Equal(d("980")))
}

func TestLedger_EquityMovesByRealizedProfit(t *testing.T) {
	testCases := []struct {
		name  string
		exit  string
		delta string
	}{
		{name: "winning round trip", exit: "110", delta: "5"},
		{name: "losing round trip", exit: "96", delta: "-2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestLedger("1000")
			start := l.Equity(d("100"))

			l.Open(d("100"), d("0.5"))
			l.Close(d(tc.exit), ExitTakeProfit)

			assert.True(t, l.Equity(d(tc.exit)).Sub(start).Equal(d(tc.delta)))
		})
	}
}

func TestLedger_MarkToMarketIsLinear(t *testing.T) {
	single := newTestLedger("100000")
	double := newTestLedger("100000")
	for _, q := range []string{"0.1", "0.25", "1.5"} {
		single.Open(d("100"), d(q))
		double.Open(d("100"), d(q).Mul(decimal.NewFromInt(2)))
	}

	price := d("123.45")
	assert.True(t, double.MarkToMarket(price).Equal(single.MarkToMarket(price).Mul(decimal.NewFromInt(2))))
	assert.True(t, single.MarkToMarket(price).Equal(d("1.85").Mul(price)))
	assert.True(t, single.OpenQuantity().Equal(d("1.85")))
}

func TestLedger_OpenRejectsNonPositive(t *testing.T) {
	l := newTestLedger("100")
	assert.Panics(t, func() { l.Open(decimal.Zero, d("1")) })
	assert.Panics(t, func() { l.Open(d("100"), d("-1")) })
	assert.Equal(t, 0, l.Len())
}

func TestLedger_StateRoundTrip(t *testing.T) {
	l := newTestLedger("1000")
	l.Open(d("100"), d("1"))
	l.Open(d("98"), d("1"))
	l.Close(d("104"), ExitTakeProfit)
	l.SetReferencePrice(d("104"))

	restored := FromState(l.State())

	assert.Equal(t, l.State(), restored.State())
	assert.Equal(t, "btc-grid", restored.Key())
	assert.Equal(t, "BTCUSDT", restored.Symbol())
}

func TestLedger_StateIsDetached(t *testing.T) {
	l := newTestLedger("1000")
	l.Open(d("100"), d("1"))

	s := l.State()
	s.Open[0].Quantity = d("99")
	s.Open = append(s.Open, Position{ID: "x"})

	assert.Equal(t, 1, l.Len())
	assert.True(t, l.OpenPositions()[0].Quantity.Equal(d("1")))
}
