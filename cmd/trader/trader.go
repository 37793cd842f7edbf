package trader

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mwtrader/src/connectors"
	"mwtrader/src/database"
	"mwtrader/src/engine"
	"mwtrader/src/gateway"
	"mwtrader/src/position"
	"mwtrader/src/repository"
	"mwtrader/src/server"
	sig "mwtrader/src/signal"
)

// Trader wires the trading engine together and runs it until shutdown.
type Trader struct{}

func (t *Trader) Start() error {
	cfg := engine.GetConfig()
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Error("Invalid engine configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	// Initialize read-only database (historical closes)
	if err := database.InitReadOnlyDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to read-only database")
		return err
	}

	connCfg := connectors.GetConfig()
	fyers := connectors.NewFyersClient(connCfg.FyersClientID, connCfg.FyersAccessToken, connCfg.FyersBaseURL)
	telegram := connectors.NewTelegramClient(connCfg.TelegramBotToken, connCfg.TelegramChatID)

	// Sanity check against the broker: the engine trades on its own ledger,
	// but a large mismatch with the real account is worth seeing at startup.
	if funds, err := fyers.Funds(ctx); err != nil {
		logrus.WithError(err).Warn("Could not fetch broker funds at startup")
	} else {
		logrus.WithFields(logrus.Fields{
			"broker_available": funds,
			"ledger_capital":   cfg.InitialCapital,
		}).Info("Broker funds check")
	}

	ledger := position.NewLedger(decimal.NewFromFloat(cfg.InitialCapital))
	orders := gateway.New(
		logrus.WithField("component", "gateway"),
		fyers,
		cfg.StopLossPercent,
		cfg.TakeProfitPercent,
	)

	tradeRepo := repository.NewTradeLogRepository()
	signalRepo := repository.NewSignalLogRepository()
	priceRepo := repository.NewDailyPriceRepository()

	manager := position.NewManager(
		logrus.WithField("component", "position"),
		ledger,
		orders,
		tradeRepo,
		telegram,
	)

	srv := server.New(server.GetConfig().Port, func() server.Status {
		capital, updated := ledger.Snapshot()
		return server.Status{
			Capital:        capital.InexactFloat64(),
			CapitalUpdated: updated,
			Position:       manager.Current(),
		}
	})

	eng := engine.New(
		cfg,
		logrus.WithField("component", "engine"),
		fyers,
		priceRepo,
		sig.NewEngine(cfg.RSIPeriod, cfg.PatternMinDiffPercent),
		signalRepo,
		manager,
		srv.Hub(),
	)

	go func() {
		if err := srv.Run(ctx); err != nil {
			logrus.WithError(err).Error("Ops server failed")
		}
	}()

	logrus.WithField("symbols", len(cfg.Symbols)).Info("Starting trading engine")

	return eng.Run(ctx)
}
