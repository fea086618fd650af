package domain

import "time"

// Position represents a trading position held by the bot.
type Position struct {
	ID            int64          // Ledger row ID backing this position
	LegID         int            // Hedge leg that produced the position
	Instrument    string         // Instrument name (e.g., "EUR_USD")
	Direction     Direction      // Long or short
	Units         int            // Size in base-currency units
	EntryPrice    float64        // Fill price of the entry
	StopPrice     float64        // Current stop level (moves with trailing and dynamic stops)
	InitialStop   float64        // Stop level set at entry, kept for sanity fallbacks
	TargetPrice   float64        // Take-profit level
	EntryTime     time.Time      // Timestamp when the position was opened
	EntryIndex    int            // Bar index at entry (backtest bookkeeping)
	TrailingArmed bool           // Whether the breakeven lock has engaged
	Status        PositionStatus // pending, open, closed
	ClientRef     string         // Client order reference attached at submission
	BrokerTradeID string         // Broker-side trade identifier (live only)
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// PipsAt returns the direction-adjusted distance from the entry price
// to the given price, expressed in pips of the given pip size.
// Positive means the position is in profit at that price.
func (p *Position) PipsAt(price, pipSize float64) float64 {
	return (price - p.EntryPrice) / pipSize * p.Direction.Sign()
}
