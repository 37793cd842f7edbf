package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"mwtrader/cmd/trader"
	"mwtrader/cmd/trades"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "mwtrader CMD"
	app.Usage = "The mwtrader command line interface"

	app.Commands = []cli.Command{
		traderCMD,
		tradesCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	traderCMD = cli.Command{
		Name:        "trader",
		Usage:       "run the live trading engine",
		Action:      traderAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the MW/RSI live trading loop`,
	}
	tradesCMD = cli.Command{
		Name:      "trades",
		Usage:     "list recent closed trades",
		Action:    tradesAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "limit",
				Usage: "maximum number of trades to show",
				Value: 20,
			},
		},
		Description: `Print the latest rows from trade_log`,
	}
)

func traderAction(_ *cli.Context) error {

	logrus.Info("Starting trader CMD")

	t := &trader.Trader{}
	err := t.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func tradesAction(c *cli.Context) error {

	logrus.Info("Starting trades CMD")

	t := &trades.Trades{Limit: c.Int("limit")}
	err := t.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
