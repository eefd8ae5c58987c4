package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger holds the scalar state of one grid's position ledger.
// There is one row per grid.
type Ledger struct {
	Key             string          `gorm:"primaryKey;column:grid_key"`
	Symbol          string          `gorm:"not null"`
	RealizedCapital decimal.Decimal `gorm:"type:text;not null"`
	RealizedProfit  decimal.Decimal `gorm:"type:text;not null"`
	ReferencePrice  decimal.Decimal `gorm:"type:text;not null"`
	UpdatedAt       time.Time
}
