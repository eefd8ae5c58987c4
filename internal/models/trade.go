package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade represents an executed order in the order journal.
type Trade struct {
	gorm.Model
	Grid          string          `gorm:"index" json:"grid"`
	Symbol        string          `json:"symbol"`
	Type          string          `json:"type"` // "BUY" or "SELL"
	Reason        string          `json:"reason"`
	OrderID       string          `json:"order_id"`
	PositionID    string          `gorm:"index" json:"position_id"`
	Price         decimal.Decimal `gorm:"type:text" json:"price"`
	Quantity      decimal.Decimal `gorm:"type:text" json:"quantity"`
	QuoteQuantity decimal.Decimal `gorm:"type:text" json:"quote_quantity"`
	Timestamp     int64           `gorm:"index" json:"timestamp"`
	IsSimulation  bool            `json:"is_simulation"`
	Profit        decimal.Decimal `gorm:"type:text" json:"profit,omitempty"`
}
