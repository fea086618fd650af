package domain

import "time"

// ClosedTrade is the immutable record of a finished position. Pips are
// friction-adjusted: the round-trip friction constant has already been
// subtracted from the raw result.
type ClosedTrade struct {
	ID         int64       // Ledger row ID of the backing order, if persisted
	LegID      int         // Hedge leg that produced the trade
	Instrument string      // Instrument name (e.g., "EUR_USD")
	Direction  Direction   // Long or short
	EntryPrice float64     // Fill price of the entry
	ExitPrice  float64     // Fill price of the exit
	EntryTime  time.Time   // Timestamp when the position was opened
	ExitTime   time.Time   // Timestamp when the position was closed
	EntryIndex int         // Bar index at entry (backtest bookkeeping)
	ExitIndex  int         // Bar index at exit (backtest bookkeeping)
	Pips       float64     // Direction-adjusted result in pips, minus friction
	Win        bool        // Pips > 0 after friction
	Reason     CloseReason // Why the position was closed
	// Profit holds the account-currency result per risk variant. Backtests
	// fill one entry per configured variant; live execution fills a single
	// entry keyed by the configured variant name.
	Profit map[string]float64
}
