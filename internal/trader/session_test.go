package trader

import (
	"testing"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/ledger"
	"binance-grid-bot-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_SplitsCapital(t *testing.T) {
	cfg := twoGrids()
	cfg.Grids[0].CapitalShare = 0.7

	s, err := NewSession("id", cfg)
	require.NoError(t, err)

	st := s.Status()
	require.Len(t, st.Grids, 2)
	assert.Equal(t, "700", st.Grids[0].RealizedCapital.String())
	assert.Equal(t, "300", st.Grids[1].RealizedCapital.String())
	assert.Equal(t, "1000", st.TotalEquity.String())
	assert.False(t, st.Running)
	assert.Equal(t, config.ModeSimulate, st.Mode)
}

func TestNewSession_InvalidGrid(t *testing.T) {
	cfg := testConfig(config.Grid{Name: "bad", Symbol: "BTCUSDT", GridPercent: -1, InvestPercent: 10, TakeProfitPercent: 1})

	_, err := NewSession("id", cfg)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestSession_RestoreMatchesKeyAndSymbol(t *testing.T) {
	s, err := NewSession("id", twoGrids())
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	btc := ledger.New("btc", "BTCUSDT", d("500"), ledger.WithClock(func() time.Time { return at }))
	btc.Open(d("100"), d("1"))
	btc.SetReferencePrice(d("100"))

	restored := s.Restore(&store.Snapshot{
		Ledgers: []ledger.State{
			btc.State(),
			{Key: "eth", Symbol: "ETHBTC", RealizedCapital: d("1")},
			{Key: "gone", Symbol: "XRPUSDT", RealizedCapital: d("1")},
		},
		Equity: []equity.Sample{{Seq: 4, Timestamp: at, TotalEquity: d("1000")}},
	})
	assert.Equal(t, []string{"btc"}, restored)

	st := s.Status()
	assert.Equal(t, 1, st.Grids[0].OpenPositions)
	assert.Equal(t, "400", st.Grids[0].RealizedCapital.String())
	assert.Equal(t, "500", st.Grids[1].RealizedCapital.String(), "eth keeps its fresh ledger")

	sample, _ := s.endTick(at.Add(time.Minute))
	assert.Equal(t, int64(5), sample.Seq)
}

func TestSession_TradesNewestFirst(t *testing.T) {
	s, err := NewSession("id", twoGrids())
	require.NoError(t, err)

	clock := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := func() time.Time { clock = clock.Add(time.Minute); return clock }
	for _, g := range s.grids {
		g.ledger = ledger.New(g.Name, g.Symbol, d("500"), ledger.WithClock(tick))
	}

	btc, eth := s.grids[0].ledger, s.grids[1].ledger
	btc.Open(d("100"), d("1"))
	eth.Open(d("50"), d("1"))
	btc.Close(d("101"), ledger.ExitTakeProfit)
	eth.Close(d("51"), ledger.ExitTakeProfit)

	trades := s.Trades(0)
	require.Len(t, trades, 2)
	assert.Equal(t, "eth", trades[0].Grid)
	assert.Equal(t, "btc", trades[1].Grid)

	assert.Len(t, s.Trades(1), 1)

	summary := s.Summary(clock)
	assert.Equal(t, int64(2), summary.AllTime.TotalTrades)
	assert.Equal(t, "2", summary.AllTime.TotalProfit.String())
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	s, err := NewSession("id", testConfig())
	require.NoError(t, err)

	actions := s.evaluate(s.grids[0], d("100"))
	require.Len(t, actions, 1)
	_, err = s.apply(s.grids[0], actions[0])
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Ledgers[0].Open[0].Quantity = d("999")

	assert.Equal(t, "1", s.Positions()[0].Positions[0].Quantity.String())
	p, ok := s.LastPrice("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, "100", p.String())
}
