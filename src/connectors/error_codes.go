package connectors

import (
	"errors"
	"fmt"
)

// ErrorKind classifies broker/API failures so callers can decide between
// retrying, skipping the tick, or surfacing a rejection.
type ErrorKind string

const (
	// ErrKindTransient covers network errors, timeouts and 5xx responses.
	// Safe to retry or skip until the next tick.
	ErrKindTransient ErrorKind = "transient"
	// ErrKindMalformed covers responses whose shape could not be decoded.
	// Treated as absent data, never retried within the tick.
	ErrKindMalformed ErrorKind = "malformed"
	// ErrKindTerminal covers venue rejections. The exact request must not
	// be resubmitted.
	ErrKindTerminal ErrorKind = "terminal"
)

// APIError wraps a broker API failure with its classification.
type APIError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(kind ErrorKind, op string, err error) *APIError {
	return &APIError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification of err. Unclassified errors default to
// transient so the loop backs off instead of treating them as rejections.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrKindTransient
}

// IsTerminal reports whether err is a venue rejection.
func IsTerminal(err error) bool {
	return KindOf(err) == ErrKindTerminal
}

// OrderStatusNames maps venue order status codes seen in the orderbook
// feed to human-readable names for logging.
var OrderStatusNames = map[int]string{
	2: "FILLED",
	4: "CANCELLED",
	5: "REJECTED",
	6: "PENDING",
}

// Terminal orderbook status codes.
const (
	OrderStatusCodeFilled    = 2
	OrderStatusCodeCancelled = 4
)

// OrderStatusName returns a readable name for a venue status code.
// If the code is unknown, returns a generic name including the code.
func OrderStatusName(code int) string {
	if name, ok := OrderStatusNames[code]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_STATUS_%d", code)
}
