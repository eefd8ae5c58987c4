package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/ledger"
	"binance-grid-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixture() Snapshot {
	return Snapshot{
		Ledgers: []ledger.State{
			{
				Key:    "btc",
				Symbol: "BTCUSDT",
				Open: []ledger.Position{
					{ID: "p-2", OpenedAt: t0.Add(2 * time.Minute), EntryPrice: d("98.9"), Quantity: d("0.00150000")},
					{ID: "p-3", OpenedAt: t0.Add(3 * time.Minute), EntryPrice: d("97.8"), Quantity: d("0.0016")},
				},
				Closed: []ledger.ClosedTrade{
					{
						PositionID: "p-1", OpenedAt: t0, ClosedAt: t0.Add(time.Minute),
						EntryPrice: d("100"), ExitPrice: d("100.3"), Quantity: d("0.1"),
						RealizedProfit: d("0.03"), Exit: ledger.ExitTakeProfit,
					},
				},
				RealizedCapital: d("989.11565"),
				RealizedProfit:  d("0.03"),
				ReferencePrice:  d("97.8"),
				UpdatedAt:       t0.Add(3 * time.Minute),
			},
			{
				Key:             "eth",
				Symbol:          "ETHUSDT",
				RealizedCapital: d("500"),
				RealizedProfit:  decimal.Zero,
				ReferencePrice:  decimal.Zero,
				UpdatedAt:       t0,
			},
		},
		Equity: []equity.Sample{
			{Seq: 1, Timestamp: t0, TotalEquity: d("1500")},
			{Seq: 2, Timestamp: t0.Add(time.Minute), TotalEquity: d("1500.03")},
		},
	}
}

// canonical renders a snapshot in a form where equal content compares equal
// regardless of nil versus empty slices or decimal exponents.
func canonical(t *testing.T, snap *Snapshot) string {
	t.Helper()
	require.NotNil(t, snap)

	c := Snapshot{Equity: snap.Equity}
	if c.Equity == nil {
		c.Equity = []equity.Sample{}
	}
	for _, st := range snap.Ledgers {
		if st.Open == nil {
			st.Open = []ledger.Position{}
		}
		if st.Closed == nil {
			st.Closed = []ledger.ClosedTrade{}
		}
		c.Ledgers = append(c.Ledgers, st)
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	return string(data)
}

// drivers returns a constructor per file-backed driver; each call reopens the
// same location.
func drivers(t *testing.T) map[string]func() Store {
	dir := t.TempDir()
	return map[string]func() Store{
		"sqlite": func() Store {
			s, err := OpenSQLite(filepath.Join(dir, "bot.db"))
			require.NoError(t, err)
			return s
		},
		"csv":  func() Store { return NewCSVStore(filepath.Join(dir, "csv")) },
		"json": func() Store { return NewJSONStore(filepath.Join(dir, "json", "state.json")) },
	}
}

func TestStores_EmptyLoadReturnsNil(t *testing.T) {
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			snap, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Nil(t, snap)
		})
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			want := fixture()

			s := open()
			require.NoError(t, s.Save(ctx, want))
			require.NoError(t, s.Close())

			reopened := open()
			defer reopened.Close()
			got, err := reopened.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, canonical(t, &want), canonical(t, got))
		})
	}
}

func TestStores_SaveTwiceAppendsHistory(t *testing.T) {
	ctx := context.Background()
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			snap := fixture()
			s := open()
			require.NoError(t, s.Save(ctx, snap))

			// Close the oldest open position and record another sample.
			btc := &snap.Ledgers[0]
			pos := btc.Open[0]
			btc.Open = btc.Open[1:]
			btc.Closed = append(btc.Closed, ledger.ClosedTrade{
				PositionID: pos.ID, OpenedAt: pos.OpenedAt, ClosedAt: t0.Add(5 * time.Minute),
				EntryPrice: pos.EntryPrice, ExitPrice: d("99.2"), Quantity: pos.Quantity,
				RealizedProfit: pos.Quantity.Mul(d("0.3")), Exit: ledger.ExitTakeProfit,
			})
			snap.Equity = append(snap.Equity, equity.Sample{Seq: 3, Timestamp: t0.Add(5 * time.Minute), TotalEquity: d("1500.04")})
			require.NoError(t, s.Save(ctx, snap))
			require.NoError(t, s.Close())

			reopened := open()
			defer reopened.Close()
			got, err := reopened.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, canonical(t, &snap), canonical(t, got))
			require.Len(t, got.Ledgers[0].Closed, 2)
			assert.Equal(t, "p-2", got.Ledgers[0].Closed[1].PositionID)
			assert.Len(t, got.Ledgers[0].Open, 1)
		})
	}
}

func TestStores_ResaveAfterLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			want := fixture()
			s := open()
			require.NoError(t, s.Save(ctx, want))
			require.NoError(t, s.Close())

			// A fresh instance has no memory of what was written before.
			again := open()
			require.NoError(t, again.Save(ctx, want))
			got, err := again.Load(ctx)
			require.NoError(t, err)
			require.NoError(t, again.Close())
			assert.Equal(t, canonical(t, &want), canonical(t, got))
		})
	}
}

func TestGormStore_RecordOrder(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	defer s.Close()

	rec := OrderRecord{
		Grid: "btc", Symbol: "BTCUSDT", Side: "BUY", Reason: "buy", OrderID: "paper-1",
		PositionID: "p-1", Price: d("100"), Quantity: d("0.5"), Simulated: true, Time: t0,
	}
	require.NoError(t, s.RecordOrder(context.Background(), rec))

	var trades []models.Trade
	require.NoError(t, s.DB().Find(&trades).Error)
	require.Len(t, trades, 1)
	assert.Equal(t, "BUY", trades[0].Type)
	assert.Equal(t, "50", trades[0].QuoteQuantity.String())
	assert.Equal(t, t0.UnixMilli(), trades[0].Timestamp)
	assert.True(t, trades[0].IsSimulation)
}

func TestGormStore_LastEquitySeq(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	head, err := s.LastEquitySeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, head)

	require.NoError(t, s.Save(ctx, fixture()))
	head, err = s.LastEquitySeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), head)
}

func TestCSVStore_WritesReadableFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVStore(dir)
	require.NoError(t, s.Save(context.Background(), fixture()))

	rows, err := readCSV(filepath.Join(dir, "open_positions_btc.csv"), openHeader)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2025-03-01T12:02:00Z", "98.9", "0.0015", "p-2"}, rows[0])

	assert.FileExists(t, filepath.Join(dir, "closed_positions_eth.csv"))
	assert.FileExists(t, filepath.Join(dir, "state_eth.csv"))
	assert.FileExists(t, filepath.Join(dir, equityFile))
}

func TestCSVStore_FileKeyIsSanitized(t *testing.T) {
	assert.Equal(t, "btc_grid_1", fileKey("btc/grid 1"))
	assert.Equal(t, "eth-main", fileKey("eth-main"))
}

func TestCSVStore_CorruptStateFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeCSV(filepath.Join(dir, "state_btc.csv"), stateHeader, [][]string{
		{"btc", "BTCUSDT", "not-a-number", "0", "0", "2025-03-01T12:00:00Z"},
	}))

	_, err := NewCSVStore(dir).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	assert.Equal(t, errors.ErrCodeLoadFailed, errors.GetCode(err))
}

func TestJSONStore_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := NewJSONStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLoadFailed, errors.GetCode(err))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.Database{DSN: filepath.Join(dir, "bot.db")},
		Storage:  config.Storage{Dir: dir},
	}

	tests := []struct {
		driver string
		want   any
	}{
		{DriverSQLite, &GormStore{}},
		{DriverCSV, &CSVStore{}},
		{DriverJSON, &JSONStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg.Storage.Driver = tt.driver
			s, err := Open(context.Background(), cfg, zap.NewNop())
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}

	cfg.Storage.Driver = "mongo"
	_, err := Open(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func TestWatermark(t *testing.T) {
	snap := fixture()
	w := newWatermark()

	fresh, from := w.newClosed(snap.Ledgers[0])
	assert.Len(t, fresh, 1)
	assert.Equal(t, 0, from)
	assert.Len(t, w.newSamples(snap.Equity), 2)

	w.advance(snap)
	fresh, _ = w.newClosed(snap.Ledgers[0])
	assert.Empty(t, fresh)
	assert.Empty(t, w.newSamples(snap.Equity))

	// A shorter history than remembered starts over.
	w.closed["btc"] = 10
	fresh, from = w.newClosed(snap.Ledgers[0])
	assert.Len(t, fresh, 1)
	assert.Equal(t, 0, from)
}
