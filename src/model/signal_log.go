package model

import "time"

const (
	SignalTypeBuy  = "BUY"
	SignalTypeSell = "SELL"

	SignalColorGreen = "green"
	SignalColorRed   = "red"

	StrategyMWRSI = "MW_RSI"
)

// SignalLog records every emitted BUY/SELL signal, whether or not it
// resulted in an order.
type SignalLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"size:50;index" json:"symbol"`
	SignalType  string    `gorm:"column:signal_type;size:10" json:"signal_type"`
	SignalColor string    `gorm:"column:signal_color;size:10" json:"signal_color"`
	SignalTime  time.Time `gorm:"column:signal_time" json:"signal_time"`
	Strategy    string    `gorm:"size:30" json:"strategy"`
	Price       float64   `json:"price"`
}

// TableName keeps the legacy table name used by the dashboard.
func (SignalLog) TableName() string {
	return "signal_log"
}
