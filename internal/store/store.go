// Package store persists ledger states and the equity series between runs.
//
// Every driver implements Store; a Save followed by a Load yields an
// equivalent snapshot. The SQL drivers also keep an order journal.
package store

import (
	"context"
	"path/filepath"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Snapshot is everything the control loop needs to resume.
type Snapshot struct {
	Ledgers []ledger.State  `json:"ledgers"`
	Equity  []equity.Sample `json:"equity"`
}

// Store loads and saves snapshots. Load returns nil, nil when nothing has
// been saved yet. Errors are persistence errors.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// OrderRecord is one executed order.
type OrderRecord struct {
	Grid       string
	Symbol     string
	Side       string
	Reason     string
	OrderID    string
	PositionID string
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Profit     decimal.Decimal
	Simulated  bool
	Time       time.Time
}

// EquityHead is implemented by stores that append equity samples across
// saves. LastEquitySeq returns the highest persisted sample number, or zero.
type EquityHead interface {
	LastEquitySeq(ctx context.Context) (int64, error)
}

// Journal is implemented by stores that keep an order history.
type Journal interface {
	RecordOrder(ctx context.Context, rec OrderRecord) error
}

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverCSV      = "csv"
	DriverJSON     = "json"
)

// Open creates the store selected by storage.driver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	logger.Info("Opening store", zap.String("driver", cfg.Storage.Driver))

	switch cfg.Storage.Driver {
	case DriverSQLite:
		return OpenSQLite(cfg.Database.DSN)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.Database.PostgresURL)
	case DriverCSV:
		return NewCSVStore(cfg.Storage.Dir), nil
	case DriverJSON:
		return NewJSONStore(filepath.Join(cfg.Storage.Dir, "state.json")), nil
	}
	return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown storage driver %q", cfg.Storage.Driver)
}

// watermark remembers how much of the append-only data a SQL store has
// already written, so each Save only inserts what is new.
type watermark struct {
	closed map[string]int
	seq    int64
}

func newWatermark() watermark {
	return watermark{closed: make(map[string]int)}
}

// newClosed returns the closed trades of s not yet written and the index of
// the first one.
func (w watermark) newClosed(s ledger.State) ([]ledger.ClosedTrade, int) {
	from := w.closed[s.Key]
	if from > len(s.Closed) {
		from = 0
	}
	return s.Closed[from:], from
}

func (w watermark) newSamples(samples []equity.Sample) []equity.Sample {
	for i, s := range samples {
		if s.Seq > w.seq {
			return samples[i:]
		}
	}
	return nil
}

func (w *watermark) advance(snap Snapshot) {
	for _, s := range snap.Ledgers {
		w.closed[s.Key] = len(s.Closed)
	}
	if n := len(snap.Equity); n > 0 && snap.Equity[n-1].Seq > w.seq {
		w.seq = snap.Equity[n-1].Seq
	}
}

func loadFailed(err error, what string) error {
	return errors.Wrapf(errors.ErrCodeLoadFailed, err, "load %s", what)
}

func saveFailed(err error, what string) error {
	return errors.Wrapf(errors.ErrCodeSaveFailed, err, "save %s", what)
}
