package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mwtrader/src/database"
	"mwtrader/src/model"
)

// TradeLogRepository handles writes of closed trades. Writes are idempotent
// on (symbol, order_id) so a retried commit after a partial failure never
// produces a second row.
type TradeLogRepository struct {
	db *gorm.DB
}

// NewTradeLogRepository creates a new repository instance using the main read/write database.
func NewTradeLogRepository() *TradeLogRepository {
	logger.WithField("component", "TradeLogRepository").
		Info("Creating new TradeLogRepository with MainDB")

	return &TradeLogRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeLogRepository) WithDB(db *gorm.DB) *TradeLogRepository {
	return &TradeLogRepository{db: db}
}

// Upsert inserts the closed trade, or updates the exit side of an existing
// row with the same (symbol, order_id).
func (r *TradeLogRepository) Upsert(
	ctx context.Context,
	trade *model.TradeLog,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeLogRepository",
		"op":       "Upsert",
		"symbol":   trade.Symbol,
		"order_id": trade.OrderID,
		"pnl":      trade.ProfitLoss,
	}).Debug("Upserting trade log")

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"exit_time", "exit_price", "profit_loss", "capital_after_trade",
			}),
		}).
		Create(trade).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeLogRepository",
			"op":       "Upsert",
			"symbol":   trade.Symbol,
			"order_id": trade.OrderID,
		}).WithError(err).Error("Failed to upsert trade log")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeLogRepository",
		"op":       "Upsert",
		"trade_id": trade.ID,
	}).Info("Trade log upserted successfully")

	return nil
}

// FindLatest returns the latest closed trades ordered from newest to oldest.
func (r *TradeLogRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.TradeLog, error) {

	if limit <= 0 {
		limit = 20
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "TradeLogRepository",
		"op":    "FindLatest",
		"limit": limit,
	}).Debug("Fetching latest trades")

	var trades []model.TradeLog

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeLogRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest trades")

		return nil, err
	}

	return trades, nil
}
