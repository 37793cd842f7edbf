package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mwtrader/src/database"
	"mwtrader/src/model"
)

// DailyPriceRepository handles read-only access to the historical close
// series maintained by the external backfill process.
type DailyPriceRepository struct {
	db *gorm.DB
}

// NewDailyPriceRepository creates a new repository instance.
// It uses the ReadOnlyDB connection by default.
func NewDailyPriceRepository() *DailyPriceRepository {
	logger.WithField("component", "DailyPriceRepository").
		Info("Creating new DailyPriceRepository with ReadOnlyDB")

	return &DailyPriceRepository{
		db: database.ReadOnlyDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *DailyPriceRepository) WithDB(db *gorm.DB) *DailyPriceRepository {
	return &DailyPriceRepository{db: db}
}

// RecentCloses returns up to `days` most recent closes for a symbol in
// ascending date order. An empty result is not an error; callers treat it
// as insufficient history.
func (r *DailyPriceRepository) RecentCloses(
	ctx context.Context,
	symbol string,
	days int,
) ([]model.PricePoint, error) {

	logger.WithFields(map[string]interface{}{
		"repo":   "DailyPriceRepository",
		"op":     "RecentCloses",
		"symbol": symbol,
		"days":   days,
	}).Debug("Fetching recent closes")

	var rows []model.DailyPrice

	err := r.db.WithContext(ctx).
		Where("stock_name = ?", symbol).
		Order("price_date DESC").
		Limit(days).
		Find(&rows).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "DailyPriceRepository",
			"op":     "RecentCloses",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch recent closes")

		return nil, err
	}

	// Rows arrive newest first; flip to the ascending order the signal
	// engine expects.
	points := make([]model.PricePoint, len(rows))
	for i, row := range rows {
		points[len(rows)-1-i] = model.PricePoint{
			Date:  row.PriceDate,
			Close: row.ClosePrice,
		}
	}

	return points, nil
}
