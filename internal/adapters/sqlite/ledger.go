package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/ports"

	"github.com/mattn/go-sqlite3"
)

// Ledger implements the ports.Ledger and ports.GovernanceSource interfaces
// using SQLite. The at-most-one-active-order-per-agent-and-instrument
// guarantee is enforced by a partial unique index, so it holds even across
// concurrently running processes sharing the database file.
type Ledger struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite ledger.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewLedger creates a new SQLite ledger instance.
func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite ledger")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/hedge_bot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	ledger := &Ledger{db: db, logger: cfg.Logger}

	if err := ledger.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return ledger, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (l *Ledger) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent TEXT NOT NULL,
		client_ref TEXT NOT NULL,
		leg_id INTEGER NOT NULL,
		instrument TEXT NOT NULL,
		direction TEXT NOT NULL,
		units INTEGER NOT NULL,
		price REAL NOT NULL,
		stop_price REAL NOT NULL,
		target_price REAL NOT NULL,
		status TEXT NOT NULL,
		reject_reason TEXT DEFAULT NULL,
		broker_order_id TEXT DEFAULT NULL,
		broker_trade_id TEXT DEFAULT NULL,
		fill_price REAL DEFAULT NULL,
		slippage_pips REAL DEFAULT NULL,
		submitted_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP DEFAULT NULL,
		filled_at TIMESTAMP DEFAULT NULL,
		closed_at TIMESTAMP DEFAULT NULL,
		exit_price REAL DEFAULT NULL,
		pips REAL DEFAULT NULL,
		close_reason TEXT DEFAULT NULL
	);

	-- The slot guarantee: at most one active row per agent and instrument.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_active_slot
		ON orders (agent, instrument)
		WHERE status IN ('submitted', 'pending', 'open');

	CREATE INDEX IF NOT EXISTS idx_orders_agent_status ON orders (agent, status);
	CREATE INDEX IF NOT EXISTS idx_orders_client_ref ON orders (client_ref);

	CREATE TABLE IF NOT EXISTS equity_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent TEXT NOT NULL,
		nav REAL NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_equity_agent_recorded ON equity_snapshots (agent, recorded_at);

	CREATE TABLE IF NOT EXISTS governance (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		circuit_breaker INTEGER NOT NULL DEFAULT 0,
		early_warning INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT NULL
	);
	INSERT OR IGNORE INTO governance (id) VALUES (1);
	`
	_, err := l.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db != nil {
		l.logger.Info(context.Background(), "Closing SQLite database connection")
		return l.db.Close()
	}
	return nil
}

// --- Ledger Implementation ---

// AcquireSlot checks whether the agent/instrument slot is free. Advisory
// only: the hard guarantee is the conditional insert in InsertOrder.
func (l *Ledger) AcquireSlot(ctx context.Context, agent, instrument string) error {
	const query = `
	SELECT COUNT(*) FROM orders
	WHERE agent = ? AND instrument = ? AND status IN ('submitted', 'pending', 'open')`

	var count int
	if err := l.db.QueryRowContext(ctx, query, agent, instrument).Scan(&count); err != nil {
		return fmt.Errorf("failed to check slot for %s/%s: %w", agent, instrument, err)
	}
	if count > 0 {
		return fmt.Errorf("slot for %s/%s: %w", agent, instrument, ports.ErrSlotOccupied)
	}
	return nil
}

// InsertOrder saves a new order row and returns its assigned ID. The
// partial unique index rejects a second active row for the same agent and
// instrument; that violation is surfaced as ErrSlotOccupied.
func (l *Ledger) InsertOrder(ctx context.Context, order *domain.Order) (int64, error) {
	const query = `
	INSERT INTO orders (agent, client_ref, leg_id, instrument, direction, units,
	                    price, stop_price, target_price, status, submitted_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var expiresAt sql.NullTime
	if !order.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: order.ExpiresAt, Valid: true}
	}

	result, err := l.db.ExecContext(ctx, query,
		order.Agent, order.ClientRef, order.LegID, order.Instrument, order.Direction, order.Units,
		order.Price, order.StopPrice, order.TargetPrice, order.Status, order.SubmittedAt, expiresAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("slot for %s/%s: %w", order.Agent, order.Instrument, ports.ErrSlotOccupied)
		}
		return 0, fmt.Errorf("failed to insert order for %s: %w", order.Instrument, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for order %s: %w", order.Instrument, err)
	}
	order.ID = id
	l.logger.Debug(ctx, "Order inserted", map[string]interface{}{
		"orderID":    id,
		"instrument": order.Instrument,
		"clientRef":  order.ClientRef,
	})
	return id, nil
}

// UpdateOrder applies the non-nil fields of the update to the row.
func (l *Ledger) UpdateOrder(ctx context.Context, id int64, update ports.OrderUpdate) error {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	appendSet := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Status != nil {
		appendSet("status", *update.Status)
	}
	if update.RejectReason != nil {
		appendSet("reject_reason", *update.RejectReason)
	}
	if update.BrokerOrderID != nil {
		appendSet("broker_order_id", *update.BrokerOrderID)
	}
	if update.BrokerTradeID != nil {
		appendSet("broker_trade_id", *update.BrokerTradeID)
	}
	if update.FillPrice != nil {
		appendSet("fill_price", *update.FillPrice)
	}
	if update.SlippagePips != nil {
		appendSet("slippage_pips", *update.SlippagePips)
	}
	if update.StopPrice != nil {
		appendSet("stop_price", *update.StopPrice)
	}
	if update.FilledAt != nil {
		appendSet("filled_at", *update.FilledAt)
	}
	if update.ClosedAt != nil {
		appendSet("closed_at", *update.ClosedAt)
	}
	if update.ExitPrice != nil {
		appendSet("exit_price", *update.ExitPrice)
	}
	if update.Pips != nil {
		appendSet("pips", *update.Pips)
	}
	if update.CloseReason != nil {
		appendSet("close_reason", *update.CloseReason)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)

	result, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order ID %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for order ID %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order ID %d not found for update: %w", id, ports.ErrOrderNotFound)
	}
	l.logger.Debug(ctx, "Order updated", map[string]interface{}{"orderID": id})
	return nil
}

// QueryOpenPositions retrieves the agent's rows in the given statuses,
// optionally filtered by instrument.
func (l *Ledger) QueryOpenPositions(ctx context.Context, agent, instrument string, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	if len(statuses) == 0 {
		statuses = domain.ActiveOrderStatuses
	}

	placeholders := make([]string, len(statuses))
	args := []interface{}{agent}
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, status)
	}

	query := fmt.Sprintf(`
	SELECT id, agent, client_ref, leg_id, instrument, direction, units,
	       price, stop_price, target_price, status,
	       COALESCE(reject_reason, ''), COALESCE(broker_order_id, ''), COALESCE(broker_trade_id, ''),
	       COALESCE(fill_price, 0), COALESCE(slippage_pips, 0),
	       submitted_at, expires_at, filled_at, closed_at,
	       COALESCE(exit_price, 0), COALESCE(pips, 0), COALESCE(close_reason, '')
	FROM orders
	WHERE agent = ? AND status IN (%s)`, strings.Join(placeholders, ", "))
	if instrument != "" {
		query += " AND instrument = ?"
		args = append(args, instrument)
	}
	query += " ORDER BY submitted_at ASC"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions for agent %s: %w", agent, err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order during QueryOpenPositions: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

// RecordEquity appends an equity snapshot.
func (l *Ledger) RecordEquity(ctx context.Context, snapshot ports.EquitySnapshot) error {
	const query = `INSERT INTO equity_snapshots (agent, nav, recorded_at) VALUES (?, ?, ?)`
	recordedAt := snapshot.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	if _, err := l.db.ExecContext(ctx, query, snapshot.Agent, snapshot.NAV, recordedAt); err != nil {
		return fmt.Errorf("failed to record equity for agent %s: %w", snapshot.Agent, err)
	}
	return nil
}

// --- GovernanceSource Implementation ---

// Current reads the governance flags published by the supervisory agents.
func (l *Ledger) Current(ctx context.Context) (domain.GovernanceState, error) {
	const query = `SELECT circuit_breaker, early_warning FROM governance WHERE id = 1`
	var state domain.GovernanceState
	err := l.db.QueryRowContext(ctx, query).Scan(&state.CircuitBreakerActive, &state.EarlyWarningActive)
	if err != nil {
		return domain.GovernanceState{}, fmt.Errorf("failed to read governance flags: %w", err)
	}
	return state, nil
}

// SetGovernance writes the governance flags. The trading process never
// calls this; it exists for the supervisory side and for tests.
func (l *Ledger) SetGovernance(ctx context.Context, state domain.GovernanceState) error {
	const query = `UPDATE governance SET circuit_breaker = ?, early_warning = ?, updated_at = ? WHERE id = 1`
	if _, err := l.db.ExecContext(ctx, query, state.CircuitBreakerActive, state.EarlyWarningActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write governance flags: %w", err)
	}
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanOrder scans a row into a domain.Order struct.
func scanOrder(s scanner) (*domain.Order, error) {
	o := &domain.Order{}
	var direction, status, rejectReason, closeReason string
	var expiresAt, filledAt, closedAt sql.NullTime
	err := s.Scan(
		&o.ID, &o.Agent, &o.ClientRef, &o.LegID, &o.Instrument, &direction, &o.Units,
		&o.Price, &o.StopPrice, &o.TargetPrice, &status,
		&rejectReason, &o.BrokerOrderID, &o.BrokerTradeID,
		&o.FillPrice, &o.SlippagePips,
		&o.SubmittedAt, &expiresAt, &filledAt, &closedAt,
		&o.ExitPrice, &o.Pips, &closeReason)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	o.Direction = domain.Direction(direction)
	o.Status = domain.OrderStatus(status)
	o.RejectReason = domain.RejectReason(rejectReason)
	o.CloseReason = domain.CloseReason(closeReason)
	if expiresAt.Valid {
		o.ExpiresAt = expiresAt.Time
	}
	if filledAt.Valid {
		o.FilledAt = filledAt.Time
	}
	if closedAt.Valid {
		o.ClosedAt = closedAt.Time
	}
	return o, nil
}
