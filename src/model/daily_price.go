package model

import "time"

// DailyPrice is one end-of-day close for a symbol. The table is populated
// by a separate backfill process; this engine only ever reads it.
type DailyPrice struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StockName  string    `gorm:"column:stock_name;size:50;index" json:"stock_name"`
	PriceDate  time.Time `gorm:"column:price_date" json:"price_date"`
	ClosePrice float64   `gorm:"column:close_price" json:"close_price"`
}

// TableName Ensures that GORM uses the exact table name from the database.
func (DailyPrice) TableName() string {
	return "daily_price"
}

// PricePoint is a single (date, close) sample of an evaluation series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}
