package store

import (
	"context"
	"sync"

	"binance-grid-bot-go/internal/database"
	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/ledger"
	"binance-grid-bot-go/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatch = 500

// GormStore keeps snapshots in a gorm database. Open positions are rewritten
// on every Save, closed trades and equity samples are appended.
type GormStore struct {
	db    *gorm.DB
	owned bool

	mu   sync.Mutex
	mark watermark
}

// NewGormStore wraps an already migrated database. Close leaves it open.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, mark: newWatermark()}
}

// OpenSQLite opens and migrates the SQLite database at dsn.
func OpenSQLite(dsn string) (*GormStore, error) {
	db, err := database.NewDatabase(dsn)
	if err != nil {
		return nil, loadFailed(err, "sqlite database")
	}
	s := NewGormStore(db)
	s.owned = true
	return s, nil
}

func (s *GormStore) LastEquitySeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.WithContext(ctx).Model(&models.EquitySample{}).
		Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error
	if err != nil {
		return 0, loadFailed(err, "equity head")
	}
	return seq, nil
}

// DB exposes the underlying handle for read-only reporting.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.db.WithContext(ctx)

	var rows []models.Ledger
	if err := db.Order("grid_key").Find(&rows).Error; err != nil {
		return nil, loadFailed(err, "ledgers")
	}
	var samples []models.EquitySample
	if err := db.Order("seq").Find(&samples).Error; err != nil {
		return nil, loadFailed(err, "equity samples")
	}
	if len(rows) == 0 && len(samples) == 0 {
		return nil, nil
	}

	snap := &Snapshot{}
	for _, row := range rows {
		st := ledger.State{
			Key:             row.Key,
			Symbol:          row.Symbol,
			RealizedCapital: row.RealizedCapital,
			RealizedProfit:  row.RealizedProfit,
			ReferencePrice:  row.ReferencePrice,
			UpdatedAt:       row.UpdatedAt.UTC(),
		}

		var open []models.Position
		if err := db.Where("ledger_key = ?", row.Key).Order("seq").Find(&open).Error; err != nil {
			return nil, loadFailed(err, "open positions")
		}
		for _, p := range open {
			st.Open = append(st.Open, ledger.Position{
				ID:         p.PositionID,
				OpenedAt:   p.OpenedAt.UTC(),
				EntryPrice: p.EntryPrice,
				Quantity:   p.Quantity,
			})
		}

		var closed []models.ClosedTrade
		if err := db.Where("ledger_key = ?", row.Key).Order("seq").Find(&closed).Error; err != nil {
			return nil, loadFailed(err, "closed trades")
		}
		for _, t := range closed {
			st.Closed = append(st.Closed, ledger.ClosedTrade{
				PositionID:     t.PositionID,
				OpenedAt:       t.OpenedAt.UTC(),
				ClosedAt:       t.ClosedAt.UTC(),
				EntryPrice:     t.EntryPrice,
				ExitPrice:      t.ExitPrice,
				Quantity:       t.Quantity,
				RealizedProfit: t.RealizedProfit,
				Exit:           ledger.ExitKind(t.Exit),
			})
		}
		snap.Ledgers = append(snap.Ledgers, st)
	}

	for _, e := range samples {
		snap.Equity = append(snap.Equity, equity.Sample{
			Seq:         e.Seq,
			Timestamp:   e.Timestamp.UTC(),
			TotalEquity: e.TotalEquity,
		})
	}

	s.mark.advance(*snap)
	return snap, nil
}

func (s *GormStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, st := range snap.Ledgers {
			if err := s.saveLedger(tx, st); err != nil {
				return err
			}
		}

		var rows []models.EquitySample
		for _, e := range s.mark.newSamples(snap.Equity) {
			rows = append(rows, models.EquitySample{Seq: e.Seq, Timestamp: e.Timestamp, TotalEquity: e.TotalEquity})
		}
		if len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, insertBatch).Error; err != nil {
				return saveFailed(err, "equity samples")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mark.advance(snap)
	return nil
}

func (s *GormStore) saveLedger(tx *gorm.DB, st ledger.State) error {
	row := models.Ledger{
		Key:             st.Key,
		Symbol:          st.Symbol,
		RealizedCapital: st.RealizedCapital,
		RealizedProfit:  st.RealizedProfit,
		ReferencePrice:  st.ReferencePrice,
		UpdatedAt:       st.UpdatedAt,
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return saveFailed(err, "ledger "+st.Key)
	}

	if err := tx.Where("ledger_key = ?", st.Key).Delete(&models.Position{}).Error; err != nil {
		return saveFailed(err, "open positions")
	}
	if len(st.Open) > 0 {
		open := make([]models.Position, 0, len(st.Open))
		for i, p := range st.Open {
			open = append(open, models.Position{
				PositionID: p.ID,
				LedgerKey:  st.Key,
				Seq:        i,
				OpenedAt:   p.OpenedAt,
				EntryPrice: p.EntryPrice,
				Quantity:   p.Quantity,
			})
		}
		if err := tx.CreateInBatches(open, insertBatch).Error; err != nil {
			return saveFailed(err, "open positions")
		}
	}

	fresh, from := s.mark.newClosed(st)
	if len(fresh) == 0 {
		return nil
	}
	closed := make([]models.ClosedTrade, 0, len(fresh))
	for i, t := range fresh {
		closed = append(closed, models.ClosedTrade{
			PositionID:     t.PositionID,
			LedgerKey:      st.Key,
			Seq:            from + i,
			OpenedAt:       t.OpenedAt,
			ClosedAt:       t.ClosedAt,
			EntryPrice:     t.EntryPrice,
			ExitPrice:      t.ExitPrice,
			Quantity:       t.Quantity,
			RealizedProfit: t.RealizedProfit,
			Exit:           string(t.Exit),
		})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(closed, insertBatch).Error; err != nil {
		return saveFailed(err, "closed trades")
	}
	return nil
}

// RecordOrder appends an executed order to the trades table.
func (s *GormStore) RecordOrder(ctx context.Context, rec OrderRecord) error {
	trade := models.Trade{
		Grid:          rec.Grid,
		Symbol:        rec.Symbol,
		Type:          rec.Side,
		Reason:        rec.Reason,
		OrderID:       rec.OrderID,
		PositionID:    rec.PositionID,
		Price:         rec.Price,
		Quantity:      rec.Quantity,
		QuoteQuantity: rec.Price.Mul(rec.Quantity),
		Timestamp:     rec.Time.UnixMilli(),
		IsSimulation:  rec.Simulated,
		Profit:        rec.Profit,
	}
	if err := s.db.WithContext(ctx).Create(&trade).Error; err != nil {
		return saveFailed(err, "order "+rec.OrderID)
	}
	return nil
}

func (s *GormStore) Close() error {
	if !s.owned {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
