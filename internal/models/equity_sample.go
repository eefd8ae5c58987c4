package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquitySample is one point of the total equity series.
type EquitySample struct {
	Seq         int64           `gorm:"primaryKey;autoIncrement:false" json:"seq"`
	Timestamp   time.Time       `gorm:"index" json:"timestamp"`
	TotalEquity decimal.Decimal `gorm:"type:text;not null" json:"total_equity"`
}
