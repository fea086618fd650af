package ports

import (
	"context"
	"time"

	"fxHedgeBot/internal/domain"
)

// OrderUpdate carries a partial update of a ledger order row.
// Nil fields are left untouched.
type OrderUpdate struct {
	Status        *domain.OrderStatus
	RejectReason  *domain.RejectReason
	BrokerOrderID *string
	BrokerTradeID *string
	FillPrice     *float64
	SlippagePips  *float64
	StopPrice     *float64
	FilledAt      *time.Time
	ClosedAt      *time.Time
	ExitPrice     *float64
	Pips          *float64
	CloseReason   *domain.CloseReason
}

// EquitySnapshot is one point of the account's NAV history.
type EquitySnapshot struct {
	Agent      string
	NAV        float64
	RecordedAt time.Time
}

// Ledger is the persistence surface for orders, slots, and equity history.
// The ledger owns the at-most-one-open-position-per-instrument guarantee:
// InsertOrder is an atomic conditional insert that fails with
// ErrSlotOccupied while another active row exists for the same agent and
// instrument.
type Ledger interface {
	// AcquireSlot checks whether the agent/instrument slot is free.
	// Advisory: the hard guarantee is the conditional insert below.
	AcquireSlot(ctx context.Context, agent, instrument string) error

	// InsertOrder saves a new order row and returns its assigned ID.
	// Returns ErrSlotOccupied (wrapped) if an active row already exists
	// for the same agent and instrument.
	InsertOrder(ctx context.Context, order *domain.Order) (int64, error)

	// UpdateOrder applies the non-nil fields of the update to the row.
	UpdateOrder(ctx context.Context, id int64, update OrderUpdate) error

	// QueryOpenPositions retrieves the agent's rows in the given statuses,
	// optionally filtered by instrument (empty string matches all).
	QueryOpenPositions(ctx context.Context, agent, instrument string, statuses []domain.OrderStatus) ([]*domain.Order, error)

	// RecordEquity appends an equity snapshot.
	RecordEquity(ctx context.Context, snapshot EquitySnapshot) error
}
