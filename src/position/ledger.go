package position

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger owns the single available-capital scalar. Apply is an atomic
// read-modify-write; sizing reads always observe the result of the most
// recent completed Apply. Decimal arithmetic keeps Apply(pnl) followed by
// Apply(-pnl) an exact round trip.
//
// No hard floor is enforced: a large enough loss can push the balance
// negative, matching the venue's own accounting.
type Ledger struct {
	mu        sync.Mutex
	available decimal.Decimal
	updatedAt time.Time
	now       func() time.Time
}

func NewLedger(initial decimal.Decimal) *Ledger {
	return &Ledger{
		available: initial,
		now:       time.Now,
	}
}

// Apply adds pnl to the available capital and returns the new balance.
func (l *Ledger) Apply(pnl decimal.Decimal) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.available = l.available.Add(pnl)
	l.updatedAt = l.now()
	return l.available
}

// Available returns the current balance.
func (l *Ledger) Available() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// Snapshot returns the balance together with the time of the last Apply.
func (l *Ledger) Snapshot() (decimal.Decimal, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available, l.updatedAt
}

// SizeFor returns floor(available / price), the whole-share quantity the
// current capital can buy. Zero when price is not positive.
func (l *Ledger) SizeFor(price float64) int64 {
	if price <= 0 {
		return 0
	}

	l.mu.Lock()
	available := l.available
	l.mu.Unlock()

	return available.Div(decimal.NewFromFloat(price)).Floor().IntPart()
}
