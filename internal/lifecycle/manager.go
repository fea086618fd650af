// Package lifecycle owns the open-to-closed state machine of hedge
// positions and the strict priority order of the exit rules:
// take-profit, then trailing stop, then the dynamically recomputed
// stop-loss, then (if enabled) the maximum holding duration. The first
// matching rule wins; rules are never reordered.
package lifecycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/ports"
)

// DefaultFrictionPips is the round-trip friction applied to every
// closed trade when no override is configured.
const DefaultFrictionPips = 2.0

// DefaultCooldownBars is how long a leg stays ineligible after a close
// when no override is configured.
const DefaultCooldownBars = 5

// Config holds configuration for the lifecycle manager.
type Config struct {
	MaxPositions           int     // Concurrent open-position cap, default 3
	TrailingTrigger        float64 // Fraction of target that arms the trailing stop, default 0.60
	TrailingTriggerWarning float64 // Tightened trigger while the early-warning regime is active, default 0.40
	BreakevenOffsetPips    float64 // Trailing stop sits this far past entry, default 1.0
	DynamicStopMinPips     float64 // Floor of the dynamic stop offset, default 5.0
	DynamicStopATRFraction float64 // ATR share of the dynamic stop offset, default 0.25
	FrictionPips           float64 // Round-trip cost subtracted from every result, default 2.0
	CooldownBars           int     // Bars a leg stays ineligible after closing, default 5
	MaxHoldingBars         int     // Time stop; 0 disables it (the canonical exit revision)
}

// Tick is one evaluation instant for an open position. The backtest
// fills High/Low from the bar and sets Intrabar; the live executor sets
// all three prices to the current price. Indicators is nil when the
// feed has no snapshot, which freezes the dynamic stop at its last
// value for this tick.
type Tick struct {
	High, Low, Close float64
	Time             time.Time
	Index            int  // Bar index (backtest) or cycle counter (live)
	Intrabar         bool // Settle against High/Low, not just Close
	Indicators       *ports.IndicatorSnapshot
	EarlyWarning     bool // Governance regime flag, tightens the trailing trigger
}

// Manager owns all open positions exclusively: at most one per leg, at
// most MaxPositions overall. It is not safe for concurrent use; both
// drivers evaluate legs sequentially.
type Manager struct {
	cfg    Config
	logger ports.Logger

	positions     map[int]*domain.Position // keyed by leg ID
	cooldownUntil map[int]int              // leg ID -> first eligible index
}

// New creates a lifecycle manager, applying defaults for unset fields.
func New(cfg Config, logger ports.Logger) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for lifecycle manager")
	}
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 3
	}
	if cfg.TrailingTrigger <= 0 {
		cfg.TrailingTrigger = 0.60
	}
	if cfg.TrailingTriggerWarning <= 0 {
		cfg.TrailingTriggerWarning = 0.40
	}
	if cfg.BreakevenOffsetPips <= 0 {
		cfg.BreakevenOffsetPips = 1.0
	}
	if cfg.DynamicStopMinPips <= 0 {
		cfg.DynamicStopMinPips = 5.0
	}
	if cfg.DynamicStopATRFraction <= 0 {
		cfg.DynamicStopATRFraction = 0.25
	}
	if cfg.FrictionPips < 0 {
		return nil, fmt.Errorf("friction cannot be negative")
	}
	if cfg.FrictionPips == 0 {
		cfg.FrictionPips = DefaultFrictionPips
	}
	if cfg.CooldownBars < 0 {
		return nil, fmt.Errorf("cooldown cannot be negative")
	}
	if cfg.CooldownBars == 0 {
		cfg.CooldownBars = DefaultCooldownBars
	}
	return &Manager{
		cfg:           cfg,
		logger:        logger,
		positions:     make(map[int]*domain.Position),
		cooldownUntil: make(map[int]int),
	}, nil
}

// OpenCount returns the number of currently open positions.
func (m *Manager) OpenCount() int {
	return len(m.positions)
}

// AtCapacity reports whether the concurrent position cap is reached.
func (m *Manager) AtCapacity() bool {
	return len(m.positions) >= m.cfg.MaxPositions
}

// Position returns the open position for a leg, if any.
func (m *Manager) Position(legID int) (*domain.Position, bool) {
	pos, ok := m.positions[legID]
	return pos, ok
}

// CanOpen reports whether a leg may receive a new candidate at the
// given index: leg slot free, global cap not reached, cooldown elapsed.
func (m *Manager) CanOpen(legID, index int) bool {
	if _, open := m.positions[legID]; open {
		return false
	}
	if len(m.positions) >= m.cfg.MaxPositions {
		return false
	}
	return index >= m.cooldownUntil[legID]
}

// Open registers a new position. The stop must sit strictly on the loss
// side of entry and the target strictly on the profit side.
func (m *Manager) Open(ctx context.Context, pos *domain.Position) error {
	if pos == nil {
		return fmt.Errorf("nil position")
	}
	if _, open := m.positions[pos.LegID]; open {
		return fmt.Errorf("leg %d: %w", pos.LegID, ports.ErrSlotOccupied)
	}
	if len(m.positions) >= m.cfg.MaxPositions {
		return fmt.Errorf("position cap %d reached: %w", m.cfg.MaxPositions, ports.ErrSlotOccupied)
	}
	sign := pos.Direction.Sign()
	if sign*(pos.EntryPrice-pos.StopPrice) <= 0 {
		return fmt.Errorf("stop %.5f not on loss side of entry %.5f", pos.StopPrice, pos.EntryPrice)
	}
	if sign*(pos.TargetPrice-pos.EntryPrice) <= 0 {
		return fmt.Errorf("target %.5f not on profit side of entry %.5f", pos.TargetPrice, pos.EntryPrice)
	}
	pos.Status = domain.StatusOpen
	pos.InitialStop = pos.StopPrice
	m.positions[pos.LegID] = pos
	m.logger.Info(ctx, "Position opened", map[string]interface{}{
		"leg":        pos.LegID,
		"instrument": pos.Instrument,
		"direction":  pos.Direction,
		"entry":      pos.EntryPrice,
		"stop":       pos.StopPrice,
		"target":     pos.TargetPrice,
		"units":      pos.Units,
	})
	return nil
}

// Reinstate puts back a position whose broker-side close failed after
// an exit rule already fired, so the exit rules keep running for it on
// later ticks. Unlike Open it skips the stop-side validation (a
// trailing-armed stop sits past entry) and leaves InitialStop and the
// stamped cooldown untouched; a later successful close overwrites the
// cooldown.
func (m *Manager) Reinstate(ctx context.Context, pos *domain.Position) error {
	if pos == nil {
		return fmt.Errorf("nil position")
	}
	if _, open := m.positions[pos.LegID]; open {
		return fmt.Errorf("leg %d: %w", pos.LegID, ports.ErrSlotOccupied)
	}
	pos.Status = domain.StatusOpen
	m.positions[pos.LegID] = pos
	m.logger.Warn(ctx, "Position reinstated after failed close", map[string]interface{}{
		"leg":        pos.LegID,
		"instrument": pos.Instrument,
		"stop":       pos.StopPrice,
	})
	return nil
}

// Evaluate applies the exit rules to the leg's open position for one
// tick. Returns the closed trade when an exit fired, or nil. A tick for
// a leg without an open position is a no-op.
//
// Rule order is strict: take-profit, trailing stop, dynamic stop-loss,
// time stop. The one deviation is intrabar settlement while the initial
// stop is still live: when both the loss-side stop and the target are
// touched within the same bar the stop wins, because the touch order
// inside the bar is unknowable and the conservative reading loses.
func (m *Manager) Evaluate(ctx context.Context, leg domain.HedgeLeg, pipSize float64, tick Tick) *domain.ClosedTrade {
	pos, ok := m.positions[leg.ID]
	if !ok {
		return nil
	}
	sign := pos.Direction.Sign()

	if !pos.TrailingArmed {
		m.recomputeDynamicStop(ctx, pos, leg, pipSize, tick)
	}

	profitExtreme := tick.Close
	adverseExtreme := tick.Close
	if tick.Intrabar {
		if pos.Direction == domain.Long {
			profitExtreme, adverseExtreme = tick.High, tick.Low
		} else {
			profitExtreme, adverseExtreme = tick.Low, tick.High
		}
	}

	targetTouched := sign*(profitExtreme-pos.TargetPrice) >= 0
	stopTouched := sign*(pos.StopPrice-adverseExtreme) >= 0

	// Conservative intrabar bias: loss-side stop before target.
	if tick.Intrabar && !pos.TrailingArmed && stopTouched && targetTouched {
		return m.close(ctx, pos, leg, pipSize, pos.StopPrice, domain.CloseReasonStopLoss, tick)
	}

	// 1. Take-profit.
	if targetTouched {
		return m.close(ctx, pos, leg, pipSize, pos.TargetPrice, domain.CloseReasonTakeProfit, tick)
	}

	// 2. Trailing stop: arm once unrealized profit reaches the trigger
	// fraction of the target, then close on a retrace through the
	// breakeven lock.
	trigger := m.cfg.TrailingTrigger
	if tick.EarlyWarning {
		trigger = m.cfg.TrailingTriggerWarning
	}
	targetDistance := sign * (pos.TargetPrice - pos.EntryPrice)
	if !pos.TrailingArmed && sign*(profitExtreme-pos.EntryPrice) >= trigger*targetDistance {
		pos.TrailingArmed = true
		pos.StopPrice = pos.EntryPrice + sign*m.cfg.BreakevenOffsetPips*pipSize
		stopTouched = sign*(pos.StopPrice-adverseExtreme) >= 0
		m.logger.Debug(ctx, "Trailing stop armed", map[string]interface{}{
			"leg":     pos.LegID,
			"stop":    pos.StopPrice,
			"trigger": trigger,
		})
	}
	if pos.TrailingArmed {
		if stopTouched {
			return m.close(ctx, pos, leg, pipSize, pos.StopPrice, domain.CloseReasonTrailing, tick)
		}
	} else if stopTouched {
		// 3. Dynamic stop-loss.
		return m.close(ctx, pos, leg, pipSize, pos.StopPrice, domain.CloseReasonStopLoss, tick)
	}

	// 4. Maximum holding duration, only in deployments that enable it.
	if m.cfg.MaxHoldingBars > 0 && tick.Index-pos.EntryIndex >= m.cfg.MaxHoldingBars {
		return m.close(ctx, pos, leg, pipSize, tick.Close, domain.CloseReasonTimeLimit, tick)
	}

	return nil
}

// recomputeDynamicStop moves the stop to the trend reference offset by
// max(DynamicStopMinPips, DynamicStopATRFraction x ATR). A computed
// level on the wrong side of entry is a sanity violation: the leg's
// minimum stop distance from entry is substituted and the substitution
// logged; the position keeps being managed.
func (m *Manager) recomputeDynamicStop(ctx context.Context, pos *domain.Position, leg domain.HedgeLeg, pipSize float64, tick Tick) {
	if tick.Indicators == nil {
		return
	}
	sign := pos.Direction.Sign()
	offset := math.Max(m.cfg.DynamicStopMinPips*pipSize, m.cfg.DynamicStopATRFraction*tick.Indicators.ATR)
	stop := tick.Indicators.TrendStopReference - sign*offset

	if sign*(pos.EntryPrice-stop) <= 0 {
		fallback := pos.EntryPrice - sign*leg.MinStopPips*pipSize
		m.logger.Warn(ctx, "Dynamic stop on wrong side of entry, substituting fixed distance", map[string]interface{}{
			"leg":      pos.LegID,
			"computed": stop,
			"fallback": fallback,
			"entry":    pos.EntryPrice,
		})
		stop = fallback
	}
	pos.StopPrice = stop
}

// ForceClose closes a leg's position at the given price regardless of
// the exit rules (end of data, shutdown, manual intervention).
func (m *Manager) ForceClose(ctx context.Context, leg domain.HedgeLeg, pipSize, price float64, tick Tick) *domain.ClosedTrade {
	pos, ok := m.positions[leg.ID]
	if !ok {
		return nil
	}
	return m.close(ctx, pos, leg, pipSize, price, domain.CloseReasonExternal, tick)
}

func (m *Manager) close(ctx context.Context, pos *domain.Position, leg domain.HedgeLeg, pipSize, price float64, reason domain.CloseReason, tick Tick) *domain.ClosedTrade {
	pips := pos.PipsAt(price, pipSize) - m.cfg.FrictionPips

	pos.Status = domain.StatusClosed
	delete(m.positions, pos.LegID)
	m.cooldownUntil[pos.LegID] = tick.Index + m.cfg.CooldownBars

	trade := &domain.ClosedTrade{
		ID:         pos.ID,
		LegID:      pos.LegID,
		Instrument: pos.Instrument,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		EntryTime:  pos.EntryTime,
		ExitTime:   tick.Time,
		EntryIndex: pos.EntryIndex,
		ExitIndex:  tick.Index,
		Pips:       pips,
		Win:        pips > 0,
		Reason:     reason,
	}
	m.logger.Info(ctx, "Position closed", map[string]interface{}{
		"leg":        pos.LegID,
		"instrument": pos.Instrument,
		"reason":     reason,
		"exit":       price,
		"pips":       pips,
	})
	return trade
}
