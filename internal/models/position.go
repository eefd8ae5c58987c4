package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open position. Seq keeps the FIFO order within a ledger.
type Position struct {
	PositionID string          `gorm:"primaryKey"`
	LedgerKey  string          `gorm:"index:idx_position_ledger_seq;not null"`
	Seq        int             `gorm:"index:idx_position_ledger_seq;not null"`
	OpenedAt   time.Time       `gorm:"not null"`
	EntryPrice decimal.Decimal `gorm:"type:text;not null"`
	Quantity   decimal.Decimal `gorm:"type:text;not null"`
}
