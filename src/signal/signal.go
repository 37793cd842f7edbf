package signal

import (
	"time"

	logger "github.com/sirupsen/logrus"
)

// rsiEpsilon prevents division by zero when a window has no losses.
const rsiEpsilon = 1e-10

// patternLength is the number of closes an M/W reversal spans.
const patternLength = 5

// Kind is the direction of an emitted signal.
type Kind string

const (
	KindBuy  Kind = "BUY"
	KindSell Kind = "SELL"
	KindNone Kind = "NONE"
)

// Pattern is the detected five-point reversal shape.
type Pattern string

const (
	PatternW    Pattern = "W"
	PatternM    Pattern = "M"
	PatternNone Pattern = ""
)

// Signal is the outcome of evaluating one symbol at one instant.
type Signal struct {
	Symbol string
	Kind   Kind
	Price  float64
	Time   time.Time
}

// ComputeRSI returns the latest RSI over a rolling window of `period`
// deltas. The second return is false while the series is too short
// (fewer than period+1 points) to produce a defined value.
func ComputeRSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gainSum, lossSum float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	rs := avgGain / (avgLoss + rsiEpsilon)
	return 100 - (100 / (1 + rs)), true
}

// DetectMWPattern inspects the last five closes of the series.
// W: down-up-down-up, each leg exceeding minDiff. M: the mirror image.
// minDiff is mean(last5) * minDiffPercent / 100.
func DetectMWPattern(closes []float64, minDiffPercent float64) Pattern {
	if len(closes) < patternLength {
		return PatternNone
	}

	last5 := closes[len(closes)-patternLength:]

	var sum float64
	for _, c := range last5 {
		sum += c
	}
	avg := sum / patternLength
	minDiff := avg * (minDiffPercent / 100)

	if last5[0] > last5[1]+minDiff &&
		last5[1] < last5[2]-minDiff &&
		last5[2] > last5[3]+minDiff &&
		last5[3] < last5[4]-minDiff {
		return PatternW
	}

	if last5[0] < last5[1]-minDiff &&
		last5[1] > last5[2]+minDiff &&
		last5[2] < last5[3]-minDiff &&
		last5[3] > last5[4]+minDiff {
		return PatternM
	}

	return PatternNone
}

// Engine turns a historical close series plus a live price into a signal.
// It holds only configuration: Generate is a pure function of its inputs,
// so identical inputs always yield an identical signal. Suppressing
// repeated signals while a position is open is the position manager's job.
type Engine struct {
	period         int
	minDiffPercent float64
}

// Thresholds for acting on a detected reversal.
const (
	rsiOversold   = 30
	rsiOverbought = 70
)

func NewEngine(period int, minDiffPercent float64) *Engine {
	return &Engine{period: period, minDiffPercent: minDiffPercent}
}

// Generate evaluates one symbol. The evaluation series is the historical
// closes (ascending) with the live price appended as the newest sample.
// BUY on a W pattern with oversold RSI; SELL on an M pattern with
// overbought RSI (recorded for the dashboard, never traded short).
func (e *Engine) Generate(symbol string, history []float64, livePrice float64, now time.Time) Signal {
	sig := Signal{Symbol: symbol, Kind: KindNone, Price: livePrice, Time: now}

	series := make([]float64, 0, len(history)+1)
	series = append(series, history...)
	series = append(series, livePrice)

	rsi, ok := ComputeRSI(series, e.period)
	if !ok {
		return sig
	}

	pattern := DetectMWPattern(series, e.minDiffPercent)

	logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"rsi":     rsi,
		"pattern": pattern,
	}).Debug("Evaluated symbol")

	switch {
	case pattern == PatternW && rsi < rsiOversold:
		sig.Kind = KindBuy
	case pattern == PatternM && rsi > rsiOverbought:
		sig.Kind = KindSell
	}

	return sig
}
