package position

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"mwtrader/src/gateway"
	"mwtrader/src/model"
)

type placedOrder struct {
	Symbol string
	Qty    int64
	Price  float64
}

type stubGateway struct {
	placeID  string
	placeErr error
	placed   []placedOrder

	status  gateway.Status
	traded  float64
	pollErr error
}

func (s *stubGateway) Place(_ context.Context, symbol string, qty int64, price float64) (string, error) {
	if s.placeErr != nil {
		return "", s.placeErr
	}
	s.placed = append(s.placed, placedOrder{symbol, qty, price})
	return s.placeID, nil
}

func (s *stubGateway) PollStatus(_ context.Context, _ string) (gateway.Status, float64, error) {
	if s.pollErr != nil {
		return gateway.StatusUnknown, 0, s.pollErr
	}
	return s.status, s.traded, nil
}

type stubRecorder struct {
	upserts []*model.TradeLog
	err     error
}

func (s *stubRecorder) Upsert(_ context.Context, trade *model.TradeLog) error {
	snapshot := *trade
	s.upserts = append(s.upserts, &snapshot)
	if s.err != nil {
		return s.err
	}
	return nil
}

type stubAlerts struct {
	messages []string
}

func (s *stubAlerts) SendAlert(_ context.Context, message string) error {
	s.messages = append(s.messages, message)
	return nil
}

func newTestManager(capital string, gw *stubGateway, rec *stubRecorder, alerts *stubAlerts) *Manager {
	nullLogger, _ := logrustest.NewNullLogger()
	ledger := NewLedger(decimal.RequireFromString(capital))
	return NewManager(logrus.NewEntry(nullLogger), ledger, gw, rec, alerts)
}

func TestTryEnterSizesAndOpens(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1"}
	rec := &stubRecorder{}
	alerts := &stubAlerts{}
	m := newTestManager("10000", gw, rec, alerts)

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gw.placed) != 1 {
		t.Fatalf("expected one order placed, got %d", len(gw.placed))
	}
	if gw.placed[0].Qty != 30 {
		t.Fatalf("expected qty floor(10000/333.33)=30, got %d", gw.placed[0].Qty)
	}

	pos := m.Current()
	if pos == nil || pos.Status != model.PositionStatusOpen {
		t.Fatalf("expected OPEN position, got %+v", pos)
	}
	if pos.OrderID != "ord-1" || pos.EntryTime.IsZero() {
		t.Fatalf("expected bound order id and entry time, got %+v", pos)
	}
	if len(alerts.messages) != 1 {
		t.Fatalf("expected one BUY alert, got %v", alerts.messages)
	}
}

func TestTryEnterZeroQuantityPlacesNothing(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1"}
	m := newTestManager("100", gw, &stubRecorder{}, &stubAlerts{})

	if err := m.TryEnter(context.Background(), "SBIN", 150); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gw.placed) != 0 {
		t.Fatalf("expected no order placed, got %d", len(gw.placed))
	}
	if m.HasOpenPosition() {
		t.Fatal("expected no position for zero quantity")
	}
}

func TestTryEnterSkipsWhilePositionExists(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1"}
	m := newTestManager("10000", gw, &stubRecorder{}, &stubAlerts{})

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.TryEnter(context.Background(), "TCS", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gw.placed) != 1 {
		t.Fatalf("expected single order despite second signal, got %d", len(gw.placed))
	}
}

// TestTryEnterAbortsOnRejection covers the failed-acknowledgment path:
// position back to NONE, capital untouched, exactly one notification,
// nothing persisted.
func TestTryEnterAbortsOnRejection(t *testing.T) {
	gw := &stubGateway{placeErr: errors.New("order rejected: insufficient margin")}
	rec := &stubRecorder{}
	alerts := &stubAlerts{}
	m := newTestManager("10000", gw, rec, alerts)

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("expected rejection to be absorbed, got %v", err)
	}

	if m.HasOpenPosition() {
		t.Fatal("expected position NONE after rejection")
	}
	if !m.Ledger().Available().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected capital untouched, got %s", m.Ledger().Available())
	}
	if len(alerts.messages) != 1 {
		t.Fatalf("expected exactly one notification, got %v", alerts.messages)
	}
	if len(rec.upserts) != 0 {
		t.Fatalf("expected no trade record, got %d", len(rec.upserts))
	}
}

func TestPollFilledClosesPosition(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1", status: gateway.StatusFilled, traded: 350}
	rec := &stubRecorder{}
	alerts := &stubAlerts{}
	m := newTestManager("10000", gw, rec, alerts)

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// pnl = (350 - 333.33) * 30 = 500.10
	want := decimal.RequireFromString("10500.10")
	if !m.Ledger().Available().Equal(want) {
		t.Fatalf("expected capital %s, got %s", want, m.Ledger().Available())
	}

	if len(rec.upserts) != 1 {
		t.Fatalf("expected one trade record, got %d", len(rec.upserts))
	}
	trade := rec.upserts[0]
	if trade.Symbol != "SBIN" || trade.OrderID != "ord-1" || trade.Quantity != 30 {
		t.Fatalf("unexpected trade record: %+v", trade)
	}
	if trade.ExitPrice != 350 {
		t.Fatalf("expected exit price 350, got %v", trade.ExitPrice)
	}
	if trade.CapitalAfterTrade != 10500.10 {
		t.Fatalf("expected capital_after_trade 10500.10, got %v", trade.CapitalAfterTrade)
	}

	if m.HasOpenPosition() {
		t.Fatal("expected position cleared after commit")
	}
	// BUY alert plus close alert
	if len(alerts.messages) != 2 {
		t.Fatalf("expected two alerts, got %v", alerts.messages)
	}
}

// TestPollPersistFailureRetries verifies at-least-once commit semantics:
// a failed upsert leaves the position CLOSING, the ledger is applied
// exactly once, and the next poll replays only the upsert.
func TestPollPersistFailureRetries(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1", status: gateway.StatusFilled, traded: 350}
	rec := &stubRecorder{err: errors.New("db down")}
	m := newTestManager("10000", gw, rec, &stubAlerts{})

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := m.Current()
	if pos == nil || pos.Status != model.PositionStatusClosing {
		t.Fatalf("expected CLOSING position after persist failure, got %+v", pos)
	}

	want := decimal.RequireFromString("10500.10")
	if !m.Ledger().Available().Equal(want) {
		t.Fatalf("expected ledger applied once, got %s", m.Ledger().Available())
	}

	rec.err = nil
	if err := m.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.HasOpenPosition() {
		t.Fatal("expected position cleared after retry")
	}
	if !m.Ledger().Available().Equal(want) {
		t.Fatalf("expected no double ledger apply, got %s", m.Ledger().Available())
	}
	if len(rec.upserts) != 2 {
		t.Fatalf("expected two upsert attempts, got %d", len(rec.upserts))
	}
	if rec.upserts[1].CapitalAfterTrade != 10500.10 {
		t.Fatalf("expected replayed record to carry capital 10500.10, got %v", rec.upserts[1].CapitalAfterTrade)
	}
}

// TestPollCancelledFallsBackToEntryPrice covers the degraded-accuracy
// fallback when the venue omits tradedPrice.
func TestPollCancelledFallsBackToEntryPrice(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1", status: gateway.StatusCancelled, traded: 0}
	rec := &stubRecorder{}
	m := newTestManager("10000", gw, rec, &stubAlerts{})

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !m.Ledger().Available().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected capital unchanged for zero pnl, got %s", m.Ledger().Available())
	}
	if len(rec.upserts) != 1 {
		t.Fatalf("expected one trade record, got %d", len(rec.upserts))
	}
	if rec.upserts[0].ExitPrice != 333.33 {
		t.Fatalf("expected exit price to fall back to entry, got %v", rec.upserts[0].ExitPrice)
	}
}

func TestPollTransientErrorSurfaces(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1", pollErr: errors.New("timeout")}
	m := newTestManager("10000", gw, &stubRecorder{}, &stubAlerts{})

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Poll(context.Background()); err == nil {
		t.Fatal("expected poll error to surface to the tick boundary")
	}

	pos := m.Current()
	if pos == nil || pos.Status != model.PositionStatusOpen {
		t.Fatalf("expected position still OPEN, got %+v", pos)
	}
}

func TestPollPendingKeepsWaiting(t *testing.T) {
	gw := &stubGateway{placeID: "ord-1", status: gateway.StatusPending}
	rec := &stubRecorder{}
	m := newTestManager("10000", gw, rec, &stubAlerts{})

	if err := m.TryEnter(context.Background(), "SBIN", 333.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := m.Current()
	if pos == nil || pos.Status != model.PositionStatusOpen {
		t.Fatalf("expected position still OPEN, got %+v", pos)
	}
	if len(rec.upserts) != 0 {
		t.Fatalf("expected no trade record while pending, got %d", len(rec.upserts))
	}
}
