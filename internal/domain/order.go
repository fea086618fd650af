package domain

import "time"

// OrderStatus is the lifecycle state of a ledger order row.
type OrderStatus string

const (
	OrderSubmitted OrderStatus = "submitted" // Row inserted, broker call not yet confirmed
	OrderPending   OrderStatus = "pending"   // Resting limit order accepted by the broker
	OrderOpen      OrderStatus = "open"      // Entry filled, position live
	OrderClosed    OrderStatus = "closed"
	OrderRejected  OrderStatus = "rejected"
	OrderExpired   OrderStatus = "expired" // GTD expiry passed without a fill
	OrderCancelled OrderStatus = "cancelled"
)

// ActiveOrderStatuses are the states that occupy a leg's concurrency slot.
var ActiveOrderStatuses = []OrderStatus{OrderSubmitted, OrderPending, OrderOpen}

// RejectReason is a typed rejection cause stored on the ledger row.
// Free-text detail goes to the log, never into this column.
type RejectReason string

const (
	RejectBroker       RejectReason = "broker_rejected"
	RejectSlotOccupied RejectReason = "slot_occupied"
	RejectExpired      RejectReason = "expired"
	RejectTimeout      RejectReason = "timeout"
)

// Order is one row of the order ledger. It is inserted with status
// submitted before the broker call and updated as broker events arrive,
// so a crash mid-call still leaves an auditable record.
type Order struct {
	ID            int64
	Agent         string // Owning agent identity, partitions the ledger
	ClientRef     string // ULID attached to the broker order for reconciliation
	LegID         int
	Instrument    string
	Direction     Direction
	Units         int
	Price         float64 // Requested limit price
	StopPrice     float64
	TargetPrice   float64
	Status        OrderStatus
	RejectReason  RejectReason // Empty unless status is rejected/expired
	BrokerOrderID string
	BrokerTradeID string
	FillPrice     float64
	SlippagePips  float64 // Fill price minus requested price, direction-adjusted
	SubmittedAt   time.Time
	ExpiresAt     time.Time // GTD expiry of the resting order
	FilledAt      time.Time
	ClosedAt      time.Time
	ExitPrice     float64
	Pips          float64 // Friction-adjusted result, set on close
	CloseReason   CloseReason
}
