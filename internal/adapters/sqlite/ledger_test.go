package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Ledger, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "hedge-bot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	ledger, err := NewLedger(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		ledger.Close()
		os.RemoveAll(tmpDir)
	}

	return ledger, cleanup
}

func testOrder(instrument string) *domain.Order {
	return &domain.Order{
		Agent:       "hedge-alpha",
		ClientRef:   "01JXXTESTREF0000000000000",
		LegID:       1,
		Instrument:  instrument,
		Direction:   domain.Long,
		Units:       1666,
		Price:       1.1000,
		StopPrice:   1.0970,
		TargetPrice: 1.1060,
		Status:      domain.OrderSubmitted,
		SubmittedAt: time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2025, 4, 7, 10, 30, 0, 0, time.UTC),
	}
}

func TestLedger_InsertAndQueryOrder(t *testing.T) {
	ledger, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := testOrder("EUR_USD")
	id, err := ledger.InsertOrder(ctx, order)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.Equal(t, id, order.ID)

	orders, err := ledger.QueryOpenPositions(ctx, "hedge-alpha", "", nil)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got := orders[0]
	assert.Equal(t, order.ClientRef, got.ClientRef)
	assert.Equal(t, domain.Long, got.Direction)
	assert.Equal(t, 1666, got.Units)
	assert.Equal(t, domain.OrderSubmitted, got.Status)
	assert.Equal(t, 1.0970, got.StopPrice)
	assert.True(t, got.ExpiresAt.Equal(order.ExpiresAt))
	assert.True(t, got.FilledAt.IsZero())
}

func TestLedger_SlotGuarantee(t *testing.T) {
	ledger, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, ledger.AcquireSlot(ctx, "hedge-alpha", "EUR_USD"))
	_, err := ledger.InsertOrder(ctx, testOrder("EUR_USD"))
	require.NoError(t, err)

	// Advisory check and hard insert both refuse a second active row.
	err = ledger.AcquireSlot(ctx, "hedge-alpha", "EUR_USD")
	assert.True(t, errors.Is(err, ports.ErrSlotOccupied))

	second := testOrder("EUR_USD")
	second.ClientRef = "01JXXTESTREF0000000000001"
	_, err = ledger.InsertOrder(ctx, second)
	assert.True(t, errors.Is(err, ports.ErrSlotOccupied))

	// A different instrument or agent is unaffected.
	_, err = ledger.InsertOrder(ctx, testOrder("GBP_USD"))
	assert.NoError(t, err)
	other := testOrder("EUR_USD")
	other.Agent = "hedge-beta"
	_, err = ledger.InsertOrder(ctx, other)
	assert.NoError(t, err)
}

func TestLedger_SlotFreedByTerminalStatus(t *testing.T) {
	ledger, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := testOrder("EUR_USD")
	id, err := ledger.InsertOrder(ctx, order)
	require.NoError(t, err)

	closed := domain.OrderClosed
	reason := domain.CloseReasonTakeProfit
	closedAt := time.Date(2025, 4, 7, 14, 0, 0, 0, time.UTC)
	exitPrice := 1.1060
	pips := 58.0
	err = ledger.UpdateOrder(ctx, id, ports.OrderUpdate{
		Status:      &closed,
		ClosedAt:    &closedAt,
		ExitPrice:   &exitPrice,
		Pips:        &pips,
		CloseReason: &reason,
	})
	require.NoError(t, err)

	// Terminal status leaves the partial unique index, freeing the slot.
	require.NoError(t, ledger.AcquireSlot(ctx, "hedge-alpha", "EUR_USD"))
	next := testOrder("EUR_USD")
	next.ClientRef = "01JXXTESTREF0000000000002"
	_, err = ledger.InsertOrder(ctx, next)
	assert.NoError(t, err)
}

func TestLedger_UpdateOrder(t *testing.T) {
	ledger, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	id, err := ledger.InsertOrder(ctx, testOrder("EUR_USD"))
	require.NoError(t, err)

	open := domain.OrderOpen
	brokerOrderID := "7001"
	brokerTradeID := "7002"
	fillPrice := 1.0999
	slippage := -1.0
	filledAt := time.Date(2025, 4, 7, 10, 5, 0, 0, time.UTC)
	err = ledger.UpdateOrder(ctx, id, ports.OrderUpdate{
		Status:        &open,
		BrokerOrderID: &brokerOrderID,
		BrokerTradeID: &brokerTradeID,
		FillPrice:     &fillPrice,
		SlippagePips:  &slippage,
		FilledAt:      &filledAt,
	})
	require.NoError(t, err)

	orders, err := ledger.QueryOpenPositions(ctx, "hedge-alpha", "EUR_USD", []domain.OrderStatus{domain.OrderOpen})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "7002", orders[0].BrokerTradeID)
	assert.Equal(t, 1.0999, orders[0].FillPrice)
	assert.Equal(t, -1.0, orders[0].SlippagePips)
	// Untouched fields survive the partial update.
	assert.Equal(t, 1.0970, orders[0].StopPrice)
}

func TestLedger_UpdateOrderNotFound(t *testing.T) {
	ledger, cleanup := setupTestDB(t)
	defer cleanup()

	rejected := domain.OrderRejected
	err := ledger.UpdateOrder(context.Background(), 999, ports.OrderUpdate{Status: &rejected})
	assert.True(t, errors.Is(err, ports.ErrOrderNotFound))
}

func TestLedger_RecordEquity(t *testing.T) {
	ledger, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := ledger.RecordEquity(ctx, ports.EquitySnapshot{
		Agent:      "hedge-alpha",
		NAV:        10234.56,
		RecordedAt: time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var nav float64
	err = ledger.db.QueryRow(`SELECT nav FROM equity_snapshots WHERE agent = ?`, "hedge-alpha").Scan(&nav)
	require.NoError(t, err)
	assert.Equal(t, 10234.56, nav)
}

func TestLedger_Governance(t *testing.T) {
	ledger, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Defaults to all-clear.
	state, err := ledger.Current(ctx)
	require.NoError(t, err)
	assert.False(t, state.CircuitBreakerActive)
	assert.False(t, state.EarlyWarningActive)

	err = ledger.SetGovernance(ctx, domain.GovernanceState{CircuitBreakerActive: true, EarlyWarningActive: true})
	require.NoError(t, err)

	state, err = ledger.Current(ctx)
	require.NoError(t, err)
	assert.True(t, state.CircuitBreakerActive)
	assert.True(t, state.EarlyWarningActive)
}
