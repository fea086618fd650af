package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so callers can
// use errors.Is without knowing the adapter. Most of them are non-fatal to
// the enclosing cycle or backtest run: the affected leg or pair is skipped
// and evaluation continues.
var (
	// General errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Decision-core errors (per-leg / per-pair, never fatal)
	ErrDataUnavailable        = errors.New("insufficient bar history")
	ErrInstrumentUnresolvable = errors.New("no tradable instrument for currency pair")
	ErrSlotOccupied           = errors.New("open position already exists for leg/instrument")
	ErrIndicatorsUnavailable  = errors.New("indicator snapshot unavailable")

	// Broker errors
	ErrBrokerUnavailable    = errors.New("broker API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the broker")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("broker authentication failed (check API token)")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderNotFound        = errors.New("order not found at the broker")
	ErrTradeNotFound        = errors.New("trade not found at the broker")
	ErrBrokerRejected       = errors.New("order rejected by the broker")

	// Database errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
)
