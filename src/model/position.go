package model

import "time"

// PositionStatus tracks a position through its lifecycle:
// NONE -> PENDING -> OPEN -> CLOSING -> NONE.
type PositionStatus string

const (
	PositionStatusNone    PositionStatus = "NONE"
	PositionStatusPending PositionStatus = "PENDING"
	PositionStatusOpen    PositionStatus = "OPEN"
	PositionStatusClosing PositionStatus = "CLOSING"
)

// Position is the single in-flight trade. At most one instance exists
// system-wide with a status other than NONE; it lives in memory only and
// is never persisted directly (closed trades land in trade_log).
type Position struct {
	Symbol     string
	Quantity   int64
	EntryPrice float64
	EntryTime  time.Time
	OrderID    string
	Status     PositionStatus
}
