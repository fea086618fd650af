package ports

import (
	"context"
	"time"

	"fxHedgeBot/internal/domain"
)

// OrderTicket is a fully priced entry order ready for submission.
// Units are signed: positive buys the base currency, negative sells it.
type OrderTicket struct {
	Instrument  string
	Units       int
	Price       float64   // Limit price, a trap offset away from current mid
	Expiry      time.Time // GTD: cancelled by the broker if unfilled by then
	StopLoss    float64   // Attached to the fill
	TakeProfit  float64   // Attached to the fill
	ClientRef   string    // Caller-generated id for ledger reconciliation
}

// OrderResult reports the broker's response to an order submission.
// Exactly one of the two shapes is populated: an immediate fill carries
// TradeID and FillPrice; a resting order carries only OrderID.
type OrderResult struct {
	OrderID   string
	TradeID   string
	FillPrice float64
	Filled    bool
	CreatedAt time.Time
}

// CloseResult reports the fill of a broker-side trade close.
type CloseResult struct {
	Price    float64
	ClosedAt time.Time
}

// BrokerOrderState is the broker-side status of a resting order.
type BrokerOrderState string

const (
	BrokerOrderPending   BrokerOrderState = "PENDING"
	BrokerOrderFilled    BrokerOrderState = "FILLED"
	BrokerOrderCancelled BrokerOrderState = "CANCELLED"
)

// OrderState reports the broker's view of a resting order. TradeID,
// FillPrice and FilledAt are populated only when State is FILLED.
type OrderState struct {
	State     BrokerOrderState
	TradeID   string
	FillPrice float64
	FilledAt  time.Time
}

// AccountClient exposes the account state needed for sizing.
type AccountClient interface {
	// GetEquity retrieves the account's current net asset value.
	GetEquity(ctx context.Context) (float64, error)
}

// OrderClient submits and closes orders at the broker.
type OrderClient interface {
	// SubmitLimitOrder places a resting limit order with attached stop and
	// target. Returns ErrBrokerRejected (wrapped) on a reject transaction.
	SubmitLimitOrder(ctx context.Context, ticket OrderTicket) (*OrderResult, error)

	// GetOrder fetches the broker-side state of a previously submitted
	// order, so resting fills and cancellations can be reconciled into
	// the ledger. Returns ErrTradeNotFound (wrapped) for unknown ids.
	GetOrder(ctx context.Context, orderID string) (*OrderState, error)

	// CloseTrade closes an open broker trade at market.
	CloseTrade(ctx context.Context, tradeID string) (*CloseResult, error)
}

// GovernanceSource exposes the read-only risk-governance flags published
// by the supervisory agents.
type GovernanceSource interface {
	Current(ctx context.Context) (domain.GovernanceState, error)
}
