package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mwtrader/src/gateway"
	"mwtrader/src/model"
)

type orderGateway interface {
	Place(ctx context.Context, symbol string, qty int64, price float64) (string, error)
	PollStatus(ctx context.Context, orderID string) (gateway.Status, float64, error)
}

type tradeRecorder interface {
	Upsert(ctx context.Context, trade *model.TradeLog) error
}

type alertSink interface {
	SendAlert(ctx context.Context, message string) error
}

// Manager is the position state machine:
//
//	NONE -> PENDING -> OPEN -> CLOSING -> NONE
//
// At most one position exists at a time; the single-threaded tick loop is
// the only caller, so transitions never overlap. The CLOSING commit is
// at-least-once: the ledger is applied exactly once (guarded by a flag)
// and the trade upsert is replay-safe on (symbol, order_id).
//
// The mutex serializes transitions and lets external readers (the status
// endpoint) take consistent snapshots; the trading loop itself is the
// only writer.
type Manager struct {
	mu     sync.Mutex
	log    *logrus.Entry
	ledger *Ledger
	orders orderGateway
	trades tradeRecorder
	alerts alertSink
	now    func() time.Time

	current       *model.Position
	pendingPnL    decimal.Decimal
	pendingTrade  *model.TradeLog
	ledgerApplied bool
}

func NewManager(log *logrus.Entry, ledger *Ledger, orders orderGateway, trades tradeRecorder, alerts alertSink) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Manager{
		log:    log,
		ledger: ledger,
		orders: orders,
		trades: trades,
		alerts: alerts,
		now:    time.Now,
	}
}

// HasOpenPosition reports whether a position exists in any non-NONE state.
// While true, signal evaluation for new entries is skipped entirely.
func (m *Manager) HasOpenPosition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Current returns a copy of the in-flight position, or nil.
func (m *Manager) Current() *model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	snapshot := *m.current
	return &snapshot
}

// Ledger exposes the capital ledger for status reporting.
func (m *Manager) Ledger() *Ledger {
	return m.ledger
}

// TryEnter sizes and submits a new bracket order for symbol at the live
// price. It is a no-op when a position already exists or when the
// available capital buys zero whole shares. A failed or rejected
// submission aborts back to NONE with capital untouched and exactly one
// notification emitted.
func (m *Manager) TryEnter(ctx context.Context, symbol string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.log.WithField("symbol", symbol).
			Warn("TryEnter called with a position already in flight, skipping")
		return nil
	}

	qty := m.ledger.SizeFor(price)
	if qty <= 0 {
		m.log.WithFields(logrus.Fields{
			"symbol":  symbol,
			"price":   price,
			"capital": m.ledger.Available().InexactFloat64(),
		}).Info("Capital buys zero shares, no order placed")
		return nil
	}

	m.current = &model.Position{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: price,
		Status:     model.PositionStatusPending,
	}

	orderID, err := m.orders.Place(ctx, symbol, qty, price)
	if err != nil {
		// Abort: acknowledgment failed. Capital is untouched and the
		// request is never resubmitted.
		m.current = nil

		m.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"qty":    qty,
			"price":  price,
		}).WithError(err).Error("Order submission aborted")

		m.notify(ctx, fmt.Sprintf("Failed to place order for %s: %v", symbol, err))
		return nil
	}

	m.current.OrderID = orderID
	m.current.EntryTime = m.now()
	m.current.Status = model.PositionStatusOpen

	m.log.WithFields(logrus.Fields{
		"symbol":   symbol,
		"qty":      qty,
		"entry":    price,
		"order_id": orderID,
	}).Info("Position opened")

	m.notify(ctx, fmt.Sprintf("BUY %s: qty=%d @ %.2f (order %s)", symbol, qty, price, orderID))
	return nil
}

// Poll advances the in-flight position: an OPEN position is checked
// against the orderbook and moved to CLOSING on a terminal status; a
// CLOSING position retries its commit. Transient poll failures surface to
// the tick boundary.
func (m *Manager) Poll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}

	if m.current.Status == model.PositionStatusClosing {
		return m.commitClose(ctx)
	}

	status, tradedPrice, err := m.orders.PollStatus(ctx, m.current.OrderID)
	if err != nil {
		return fmt.Errorf("poll order status: %w", err)
	}

	if !status.Terminal() {
		m.log.WithFields(logrus.Fields{
			"symbol":   m.current.Symbol,
			"order_id": m.current.OrderID,
			"status":   status,
		}).Debug("Position still open")
		return nil
	}

	// Degraded-accuracy fallback: the venue sometimes omits tradedPrice
	// on cancelled brackets; the entry price stands in.
	exitPrice := tradedPrice
	if exitPrice <= 0 {
		exitPrice = m.current.EntryPrice
	}

	m.pendingPnL = decimal.NewFromFloat(exitPrice).
		Sub(decimal.NewFromFloat(m.current.EntryPrice)).
		Mul(decimal.NewFromInt(m.current.Quantity))

	m.pendingTrade = &model.TradeLog{
		Symbol:     m.current.Symbol,
		OrderID:    m.current.OrderID,
		EntryTime:  m.current.EntryTime,
		EntryPrice: m.current.EntryPrice,
		Quantity:   m.current.Quantity,
		ExitTime:   m.now(),
		ExitPrice:  exitPrice,
		ProfitLoss: m.pendingPnL.InexactFloat64(),
	}
	m.current.Status = model.PositionStatusClosing

	m.log.WithFields(logrus.Fields{
		"symbol":     m.current.Symbol,
		"order_id":   m.current.OrderID,
		"status":     status,
		"exit_price": exitPrice,
	}).Info("Terminal order status observed, closing position")

	return m.commitClose(ctx)
}

// commitClose applies the realized P/L to the ledger and persists the
// trade. Ledger first, persistence second: if the upsert fails the state
// stays CLOSING and only the upsert is replayed on the next tick.
func (m *Manager) commitClose(ctx context.Context) error {
	if !m.ledgerApplied {
		balance := m.ledger.Apply(m.pendingPnL)
		m.ledgerApplied = true
		m.pendingTrade.CapitalAfterTrade = balance.InexactFloat64()
	}

	if err := m.trades.Upsert(ctx, m.pendingTrade); err != nil {
		m.log.WithFields(logrus.Fields{
			"symbol":   m.pendingTrade.Symbol,
			"order_id": m.pendingTrade.OrderID,
		}).WithError(err).Error("Trade persistence failed, will retry next tick")
		return nil
	}

	m.notify(ctx, fmt.Sprintf("Trade closed: %s, P/L=%.2f, capital=%.2f",
		m.pendingTrade.Symbol, m.pendingTrade.ProfitLoss, m.pendingTrade.CapitalAfterTrade))

	m.log.WithFields(logrus.Fields{
		"symbol":   m.pendingTrade.Symbol,
		"order_id": m.pendingTrade.OrderID,
		"pnl":      m.pendingTrade.ProfitLoss,
		"capital":  m.pendingTrade.CapitalAfterTrade,
	}).Info("Position closed")

	m.current = nil
	m.pendingTrade = nil
	m.pendingPnL = decimal.Zero
	m.ledgerApplied = false

	return nil
}

// notify delivers an operator alert; delivery failures never block the loop.
func (m *Manager) notify(ctx context.Context, message string) {
	if m.alerts == nil {
		return
	}
	if err := m.alerts.SendAlert(ctx, message); err != nil {
		m.log.WithError(err).Warn("Alert delivery failed")
	}
}
