package model

import "time"

// TradeLog is one closed round trip. Rows are append-only and keyed by
// (symbol, order_id) so that a replayed commit upserts instead of
// double-counting.
type TradeLog struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Symbol            string    `gorm:"size:50;uniqueIndex:idx_trade_log_symbol_order" json:"symbol"`
	OrderID           string    `gorm:"column:order_id;size:64;uniqueIndex:idx_trade_log_symbol_order" json:"order_id"`
	EntryTime         time.Time `gorm:"column:entry_time" json:"entry_time"`
	EntryPrice        float64   `gorm:"column:entry_price" json:"entry_price"`
	Quantity          int64     `gorm:"column:quantity" json:"quantity"`
	ExitTime          time.Time `gorm:"column:exit_time" json:"exit_time"`
	ExitPrice         float64   `gorm:"column:exit_price" json:"exit_price"`
	ProfitLoss        float64   `gorm:"column:profit_loss" json:"profit_loss"`
	CapitalAfterTrade float64   `gorm:"column:capital_after_trade" json:"capital_after_trade"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName keeps the legacy table name used by the dashboard.
func (TradeLog) TableName() string {
	return "trade_log"
}
