package trades

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"mwtrader/src/database"
	"mwtrader/src/repository"
)

// Trades prints the most recent closed trades.
type Trades struct {
	Limit int
}

func (t *Trades) Start() error {
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	repo := repository.NewTradeLogRepository()
	rows, err := repo.FindLatest(context.Background(), t.Limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch trades")
		return err
	}

	if len(rows) == 0 {
		fmt.Println("no closed trades")
		return nil
	}

	fmt.Printf("%-12s %-14s %10s %6s %10s %10s %12s\n",
		"SYMBOL", "ORDER", "ENTRY", "QTY", "EXIT", "P/L", "CAPITAL")
	for _, row := range rows {
		fmt.Printf("%-12s %-14s %10.2f %6d %10.2f %10.2f %12.2f\n",
			row.Symbol,
			row.OrderID,
			row.EntryPrice,
			row.Quantity,
			row.ExitPrice,
			row.ProfitLoss,
			row.CapitalAfterTrade,
		)
	}

	return nil
}
