package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mwtrader/src/connectors"
)

// Status is the polled state of a submitted order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
	StatusUnknown   Status = "UNKNOWN"
)

// Terminal reports whether no further state change is expected.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// venueTickDecimals is the price precision the venue accepts.
const venueTickDecimals = 2

type brokerAPI interface {
	PlaceOrder(ctx context.Context, order connectors.OrderRequest) (string, error)
	Orderbook(ctx context.Context) ([]connectors.OrderbookEntry, error)
}

// Gateway submits bracket orders and polls their status. It never cancels:
// once placed, an order is only ever observed. Double submission is
// prevented structurally because Place is only reachable while no
// position exists.
type Gateway struct {
	log           *logrus.Entry
	broker        brokerAPI
	stopLossPct   decimal.Decimal
	takeProfitPct decimal.Decimal
}

func New(log *logrus.Entry, broker brokerAPI, stopLossPct, takeProfitPct float64) *Gateway {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Gateway{
		log:           log,
		broker:        broker,
		stopLossPct:   decimal.NewFromFloat(stopLossPct),
		takeProfitPct: decimal.NewFromFloat(takeProfitPct),
	}
}

// BracketPrices returns the absolute stop-loss and take-profit prices for
// an entry price, rounded to the venue tick precision.
func (g *Gateway) BracketPrices(price float64) (stopLoss, takeProfit decimal.Decimal) {
	p := decimal.NewFromFloat(price)
	one := decimal.NewFromInt(1)

	stopLoss = p.Mul(one.Sub(g.stopLossPct)).Round(venueTickDecimals)
	takeProfit = p.Mul(one.Add(g.takeProfitPct)).Round(venueTickDecimals)
	return stopLoss, takeProfit
}

// Place submits a limit-buy bracket order and returns the venue order id.
// The payload carries stop-loss and take-profit as rounded offsets from
// the limit price, as the venue requires.
func (g *Gateway) Place(ctx context.Context, symbol string, qty int64, price float64) (string, error) {
	stopLoss, takeProfit := g.BracketPrices(price)
	p := decimal.NewFromFloat(price)

	order := connectors.OrderRequest{
		Symbol:       connectors.VenueSymbol(symbol),
		Qty:          qty,
		Type:         connectors.OrderTypeLimit,
		Side:         connectors.OrderSideBuy,
		ProductType:  connectors.ProductTypeBracket,
		LimitPrice:   price,
		StopPrice:    0,
		Validity:     connectors.OrderValidityDay,
		StopLoss:     p.Sub(stopLoss).Round(venueTickDecimals).InexactFloat64(),
		TakeProfit:   takeProfit.Sub(p).Round(venueTickDecimals).InexactFloat64(),
		DisclosedQty: 0,
		OfflineOrder: false,
		OrderTag:     newOrderTag(),
	}

	orderID, err := g.broker.PlaceOrder(ctx, order)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"qty":    qty,
			"price":  price,
		}).WithError(err).Error("Failed to place bracket order")
		return "", err
	}

	g.log.WithFields(logrus.Fields{
		"symbol":      symbol,
		"qty":         qty,
		"entry":       price,
		"stop_loss":   stopLoss.InexactFloat64(),
		"take_profit": takeProfit.InexactFloat64(),
		"order_id":    orderID,
	}).Info("Bracket order placed")

	return orderID, nil
}

// PollStatus scans the orderbook for the order and maps the venue status
// code. The traded price is returned for terminal states; zero means the
// venue omitted it and callers fall back to the entry price.
func (g *Gateway) PollStatus(ctx context.Context, orderID string) (Status, float64, error) {
	rows, err := g.broker.Orderbook(ctx)
	if err != nil {
		return StatusUnknown, 0, fmt.Errorf("orderbook poll: %w", err)
	}

	for _, row := range rows {
		if row.ID != orderID {
			continue
		}

		g.log.WithFields(logrus.Fields{
			"order_id": orderID,
			"status":   connectors.OrderStatusName(row.Status),
		}).Debug("Order status polled")

		switch row.Status {
		case connectors.OrderStatusCodeFilled:
			return StatusFilled, row.TradedPrice, nil
		case connectors.OrderStatusCodeCancelled:
			return StatusCancelled, row.TradedPrice, nil
		default:
			return StatusPending, 0, nil
		}
	}

	return StatusUnknown, 0, nil
}

// newOrderTag generates a short client tag for tracing submissions.
func newOrderTag() string {
	return "mw-" + uuid.NewString()[:8]
}
