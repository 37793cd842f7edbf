package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"mwtrader/src/model"
	"mwtrader/src/signal"
)

type marketData interface {
	Quotes(ctx context.Context, symbols []string) (map[string]float64, error)
}

type historyProvider interface {
	RecentCloses(ctx context.Context, symbol string, days int) ([]model.PricePoint, error)
}

type signalRecorder interface {
	Create(ctx context.Context, sig *model.SignalLog) error
}

type positionManager interface {
	HasOpenPosition() bool
	Poll(ctx context.Context) error
	TryEnter(ctx context.Context, symbol string, price float64) error
}

// EventPublisher receives engine events for live observers. Publishing
// must never block the loop.
type EventPublisher interface {
	Publish(event Event)
}

// Event is a loop occurrence pushed to the websocket feed.
type Event struct {
	Type   string    `json:"type"`
	Symbol string    `json:"symbol,omitempty"`
	Kind   string    `json:"kind,omitempty"`
	Price  float64   `json:"price,omitempty"`
	At     time.Time `json:"at"`
}

// Engine drives the fixed-cadence trading loop. One tick is: poll the
// open position, batch-fetch live prices, then evaluate symbols in a
// fixed deterministic order. A single logical thread executes the loop,
// which is what makes the at-most-one-open-position invariant hold
// without locking.
type Engine struct {
	cfg     Config
	log     *logrus.Entry
	market  marketData
	history historyProvider
	signals *signal.Engine
	sigRec  signalRecorder
	manager positionManager
	events  EventPublisher
	symbols []string
	now     func() time.Time
}

func New(
	cfg Config,
	log *logrus.Entry,
	market marketData,
	history historyProvider,
	signals *signal.Engine,
	sigRec signalRecorder,
	manager positionManager,
	events EventPublisher,
) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	// Evaluation order is fixed for the life of the process.
	symbols := make([]string, len(cfg.Symbols))
	copy(symbols, cfg.Symbols)
	sort.Strings(symbols)

	return &Engine{
		cfg:     cfg,
		log:     log,
		market:  market,
		history: history,
		signals: signals,
		sigRec:  sigRec,
		manager: manager,
		events:  events,
		symbols: symbols,
		now:     time.Now,
	}
}

// Run executes the loop until ctx is cancelled. A failed tick is logged
// and followed by an extended backoff before the loop resumes; nothing
// short of ctx cancellation stops the process.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.log.WithFields(logrus.Fields{
		"symbols":       len(e.symbols),
		"tick_interval": e.cfg.TickInterval,
	}).Info("Trading loop started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info("Trading loop stopped")
			return nil

		case <-ticker.C:
			if err := e.tickSafe(ctx); err != nil {
				e.log.WithError(err).Error("Tick failed, backing off")
				if !e.backoff(ctx) {
					e.log.Info("Trading loop stopped")
					return nil
				}
			}
		}
	}
}

// tickSafe runs one tick, converting a panic into a tick error so nothing
// escapes the tick boundary.
func (e *Engine) tickSafe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	return e.RunTick(ctx)
}

// backoff waits out the extended backoff interval. Returns false when ctx
// was cancelled during the wait.
func (e *Engine) backoff(ctx context.Context) bool {
	timer := time.NewTimer(e.cfg.BackoffInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// RunTick executes a single tick. Returned errors are transient by
// definition: the caller logs them and backs off, never terminates.
func (e *Engine) RunTick(ctx context.Context) error {
	// 1) Advance the in-flight position, if any.
	if err := e.manager.Poll(ctx); err != nil {
		return fmt.Errorf("position poll: %w", err)
	}

	// 2) One batched quote call for the whole universe.
	prices, err := e.market.Quotes(ctx, e.symbols)
	if err != nil {
		return fmt.Errorf("live quotes: %w", err)
	}

	// 3) Evaluate symbols. New entries are skipped entirely while a
	// position exists in any state.
	for _, symbol := range e.symbols {
		if e.manager.HasOpenPosition() {
			break
		}

		price, ok := prices[symbol]
		if !ok {
			continue
		}

		history, err := e.history.RecentCloses(ctx, symbol, e.cfg.LookbackDays)
		if err != nil {
			e.log.WithField("symbol", symbol).
				WithError(err).Error("History fetch failed, skipping symbol")
			continue
		}
		if len(history) == 0 {
			continue
		}

		closes := make([]float64, len(history))
		for i, point := range history {
			closes[i] = point.Close
		}

		sig := e.signals.Generate(symbol, closes, price, e.now())
		if sig.Kind == signal.KindNone {
			continue
		}

		e.recordSignal(ctx, sig)

		if sig.Kind == signal.KindBuy {
			if err := e.manager.TryEnter(ctx, symbol, price); err != nil {
				return fmt.Errorf("enter %s: %w", symbol, err)
			}
		}
	}

	return nil
}

// recordSignal persists the signal and publishes it to live observers.
// Neither failure blocks trading on the signal.
func (e *Engine) recordSignal(ctx context.Context, sig signal.Signal) {
	e.log.WithFields(logrus.Fields{
		"symbol": sig.Symbol,
		"kind":   sig.Kind,
		"price":  sig.Price,
	}).Info("Signal emitted")

	color := model.SignalColorGreen
	if sig.Kind == signal.KindSell {
		color = model.SignalColorRed
	}

	row := &model.SignalLog{
		Symbol:      sig.Symbol,
		SignalType:  string(sig.Kind),
		SignalColor: color,
		SignalTime:  sig.Time,
		Strategy:    model.StrategyMWRSI,
		Price:       sig.Price,
	}
	if err := e.sigRec.Create(ctx, row); err != nil {
		e.log.WithField("symbol", sig.Symbol).
			WithError(err).Error("Failed to persist signal")
	}

	if e.events != nil {
		e.events.Publish(Event{
			Type:   "signal",
			Symbol: sig.Symbol,
			Kind:   string(sig.Kind),
			Price:  sig.Price,
			At:     sig.Time,
		})
	}
}
