package equity

import (
	"testing"
	"time"

	"binance-grid-bot-go/internal/ledger"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	now := t0.Add(72 * time.Hour)
	closed := []ledger.ClosedTrade{
		{ClosedAt: now.Add(-48 * time.Hour), RealizedProfit: d("10")},
		{ClosedAt: now.Add(-30 * time.Hour), RealizedProfit: d("-4")},
		{ClosedAt: now.Add(-2 * time.Hour), RealizedProfit: d("6")},
		{ClosedAt: now.Add(-1 * time.Hour), RealizedProfit: d("-1")},
	}
	samples := []Sample{
		{Seq: 1, TotalEquity: d("1000")},
		{Seq: 2, TotalEquity: d("1200")},
		{Seq: 3, TotalEquity: d("900")},
		{Seq: 4, TotalEquity: d("1100")},
	}

	s := Summarize(closed, samples, now)

	assert.Equal(t, int64(4), s.AllTime.TotalTrades)
	assert.Equal(t, int64(2), s.AllTime.ProfitableTrades)
	assert.InDelta(t, 0.5, s.AllTime.WinRate, 1e-9)
	assert.True(t, s.AllTime.TotalProfit.Equal(d("11")))
	assert.InDelta(t, 16.0/5.0, s.AllTime.ProfitFactor, 1e-9)

	assert.Equal(t, int64(2), s.Since24h.TotalTrades)
	assert.True(t, s.Since24h.TotalProfit.Equal(d("5")))

	assert.InDelta(t, -25.0, s.MaxDrawdownPercent, 1e-9)
	assert.True(t, s.StartEquity.Equal(d("1000")))
	assert.True(t, s.CurrentEquity.Equal(d("1100")))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil, t0)

	assert.Zero(t, s.AllTime.TotalTrades)
	assert.Zero(t, s.AllTime.WinRate)
	assert.Zero(t, s.AllTime.ProfitFactor)
	assert.Zero(t, s.MaxDrawdownPercent)
}
