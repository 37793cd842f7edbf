package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mwtrader/src/model"
)

// helper to create a new in memory gorm DB and migrate schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}

	if err := db.AutoMigrate(&model.TradeLog{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}

	return db
}

// TestUpsertIsIdempotent replays a commit for the same (symbol, order_id)
// and verifies the second write updates the exit side of the existing row
// instead of inserting a duplicate.
func TestUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := (&TradeLogRepository{}).WithDB(db)

	entry := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	exit := entry.Add(45 * time.Minute)

	first := &model.TradeLog{
		Symbol:            "SBIN",
		OrderID:           "ord-1",
		EntryTime:         entry,
		EntryPrice:        333.33,
		Quantity:          30,
		ExitTime:          exit,
		ExitPrice:         350,
		ProfitLoss:        500.10,
		CapitalAfterTrade: 10500.10,
	}
	require.NoError(t, repo.Upsert(context.Background(), first))

	replay := &model.TradeLog{
		Symbol:            "SBIN",
		OrderID:           "ord-1",
		EntryTime:         entry,
		EntryPrice:        333.33,
		Quantity:          30,
		ExitTime:          exit,
		ExitPrice:         349.50,
		ProfitLoss:        485.10,
		CapitalAfterTrade: 10485.10,
	}
	require.NoError(t, repo.Upsert(context.Background(), replay))

	var count int64
	require.NoError(t, db.Model(&model.TradeLog{}).
		Where("symbol = ? AND order_id = ?", "SBIN", "ord-1").
		Count(&count).Error)
	require.EqualValues(t, 1, count, "replayed commit must not insert a second row")

	var stored model.TradeLog
	require.NoError(t, db.Where("symbol = ? AND order_id = ?", "SBIN", "ord-1").First(&stored).Error)
	require.Equal(t, 349.50, stored.ExitPrice)
	require.Equal(t, 10485.10, stored.CapitalAfterTrade)
}

func TestUpsertDistinctOrdersInsertSeparateRows(t *testing.T) {
	db := newTestDB(t)
	repo := (&TradeLogRepository{}).WithDB(db)

	for _, orderID := range []string{"ord-a", "ord-b"} {
		trade := &model.TradeLog{
			Symbol:     "TCS",
			OrderID:    orderID,
			EntryPrice: 100,
			Quantity:   10,
			ExitPrice:  105,
			ProfitLoss: 50,
		}
		require.NoError(t, repo.Upsert(context.Background(), trade))
	}

	var count int64
	require.NoError(t, db.Model(&model.TradeLog{}).Where("symbol = ?", "TCS").Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestFindLatestOrdersNewestFirst(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := (&TradeLogRepository{}).WithDB(gdb)

	rows := sqlmock.NewRows([]string{"id", "symbol", "order_id", "profit_loss"}).
		AddRow(2, "TCS", "ord-2", -30.0).
		AddRow(1, "SBIN", "ord-1", 500.10)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trade_log" ORDER BY id DESC LIMIT $1`)).
		WithArgs(5).
		WillReturnRows(rows)

	trades, err := repo.FindLatest(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].OrderID != "ord-2" || trades[1].OrderID != "ord-1" {
		t.Fatalf("expected newest first, got %+v", trades)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestFindLatestDefaultsLimit(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := (&TradeLogRepository{}).WithDB(gdb)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trade_log" ORDER BY id DESC LIMIT $1`)).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.FindLatest(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
