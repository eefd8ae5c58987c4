package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosedTrade is an append-only record of a closed position. Seq is the close
// order within the ledger.
type ClosedTrade struct {
	PositionID     string          `gorm:"primaryKey" json:"position_id"`
	LedgerKey      string          `gorm:"index:idx_closed_ledger_seq;not null" json:"ledger_key"`
	Seq            int             `gorm:"index:idx_closed_ledger_seq;not null" json:"seq"`
	OpenedAt       time.Time       `json:"opened_at"`
	ClosedAt       time.Time       `gorm:"index" json:"closed_at"`
	EntryPrice     decimal.Decimal `gorm:"type:text;not null" json:"entry_price"`
	ExitPrice      decimal.Decimal `gorm:"type:text;not null" json:"exit_price"`
	Quantity       decimal.Decimal `gorm:"type:text;not null" json:"quantity"`
	RealizedProfit decimal.Decimal `gorm:"type:text;not null" json:"realized_profit"`
	Exit           string          `json:"exit"`
}
