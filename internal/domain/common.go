package domain

// Direction is the side of a trade relative to the instrument's base currency.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for long and -1 for short positions.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Opposite returns the inverse direction.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// PositionStatus represents the lifecycle state of a trading position.
type PositionStatus string

const (
	StatusCandidate PositionStatus = "candidate" // Signal produced, nothing committed yet
	StatusPending   PositionStatus = "pending"   // Resting entry order placed, not filled
	StatusOpen      PositionStatus = "open"
	StatusClosed    PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonTrailing   CloseReason = "TRAILING" // Breakeven lock hit after trailing armed
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTimeLimit  CloseReason = "TIME"     // Position exceeded the maximum holding period
	CloseReasonExternal   CloseReason = "EXTERNAL" // Forced close: end of data, shutdown, manual
)

// GovernanceState carries the risk-governance flags published by the
// supervisory agents. The bot only reads these; it never sets them.
type GovernanceState struct {
	CircuitBreakerActive bool // All new entries suspended
	EarlyWarningActive   bool // Defensive regime: trailing stops arm earlier
}
