package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mwtrader/src/database"
	"mwtrader/src/model"
)

// SignalLogRepository appends emitted signals for the external dashboard.
type SignalLogRepository struct {
	db *gorm.DB
}

// NewSignalLogRepository creates a new repository instance using the main read/write database.
func NewSignalLogRepository() *SignalLogRepository {
	logger.WithField("component", "SignalLogRepository").
		Info("Creating new SignalLogRepository with MainDB")

	return &SignalLogRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SignalLogRepository) WithDB(db *gorm.DB) *SignalLogRepository {
	return &SignalLogRepository{db: db}
}

// Create inserts a new signal row.
func (r *SignalLogRepository) Create(
	ctx context.Context,
	sig *model.SignalLog,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":        "SignalLogRepository",
		"op":          "Create",
		"symbol":      sig.Symbol,
		"signal_type": sig.SignalType,
		"price":       sig.Price,
	}).Debug("Creating signal log")

	err := r.db.WithContext(ctx).Create(sig).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SignalLogRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create signal log")

		return err
	}

	return nil
}
