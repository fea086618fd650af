// Package app drives live execution: a ticker-paced cycle that manages
// open positions through the lifecycle manager and places new entries as
// resting limit orders, with the order ledger written before every
// broker call.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxHedgeBot/config"
	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/ids"
	"fxHedgeBot/internal/instruments"
	"fxHedgeBot/internal/lifecycle"
	"fxHedgeBot/internal/ports"
	"fxHedgeBot/internal/risk"
	"fxHedgeBot/internal/strategy/gates"
	"fxHedgeBot/internal/strategy/rank"
)

// Deps bundles the ports the service orchestrates.
type Deps struct {
	Market     ports.MarketDataSource
	Account    ports.AccountClient
	Orders     ports.OrderClient
	Ledger     ports.Ledger
	Governance ports.GovernanceSource
	Indicators ports.IndicatorFeed
}

// Service orchestrates the live trading cycle.
type Service struct {
	cfg    *config.Config
	logger ports.Logger
	deps   Deps

	evaluator *gates.Evaluator
	sizer     *risk.Sizer
	manager   *lifecycle.Manager
	lookback  int
	legByID   map[int]domain.HedgeLeg

	cycle int // Monotonic cycle counter; cooldown and holding limits count in cycles
}

// NewService creates a new application service instance.
func NewService(cfg *config.Config, logger ports.Logger, deps Deps) (*Service, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Service")
	}
	if deps.Market == nil || deps.Account == nil || deps.Orders == nil ||
		deps.Ledger == nil || deps.Governance == nil || deps.Indicators == nil {
		return nil, fmt.Errorf("missing required ports for Service")
	}
	if len(cfg.Legs) == 0 {
		return nil, fmt.Errorf("at least one hedge leg must be configured")
	}
	if cfg.RiskFraction <= 0 || cfg.RiskFraction >= 1 {
		return nil, fmt.Errorf("risk fraction must be between 0 and 1")
	}

	// Live entries run the reduced gate profile; breakout and slope are
	// backtest-only filters.
	evaluator, err := gates.New(gates.Config{Required: gates.ProfileRankOnly}, logger)
	if err != nil {
		return nil, fmt.Errorf("gate evaluator: %w", err)
	}
	sizer, err := risk.New(risk.Config{}, logger)
	if err != nil {
		return nil, fmt.Errorf("risk sizer: %w", err)
	}
	manager, err := lifecycle.New(lifecycle.Config{
		CooldownBars:   cfg.CooldownBars,
		MaxHoldingBars: cfg.MaxHoldingBars,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("lifecycle manager: %w", err)
	}

	legByID := make(map[int]domain.HedgeLeg, len(cfg.Legs))
	for _, leg := range cfg.Legs {
		legByID[leg.ID] = leg
	}

	return &Service{
		cfg:       cfg,
		logger:    logger,
		deps:      deps,
		evaluator: evaluator,
		sizer:     sizer,
		manager:   manager,
		lookback:  rank.DefaultLookback,
		legByID:   legByID,
	}, nil
}

// Start begins the live execution loop. It blocks until the context is
// cancelled or a shutdown signal arrives.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting live execution service", map[string]interface{}{
		"agent":       s.cfg.Agent,
		"granularity": s.cfg.Granularity,
		"legs":        len(s.cfg.Legs),
		"cycle":       s.cfg.CycleInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.restorePositions(ctx); err != nil {
		s.logger.Error(ctx, err, "Failed to restore open positions from ledger")
		return fmt.Errorf("failed to restore open positions: %w", err)
	}

	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	// First cycle immediately; the ticker paces the rest.
	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Live execution service stopped", map[string]interface{}{
				"cycles":        s.cycle,
				"openPositions": s.manager.OpenCount(),
			})
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// restorePositions adopts ledger rows left open by a previous run, so a
// restart keeps managing live broker trades.
func (s *Service) restorePositions(ctx context.Context) error {
	rows, err := s.deps.Ledger.QueryOpenPositions(ctx, s.cfg.Agent, "", []domain.OrderStatus{domain.OrderOpen})
	if err != nil {
		return err
	}
	for _, row := range rows {
		leg, ok := s.legByID[row.LegID]
		if !ok {
			s.logger.Warn(ctx, "Open ledger row references an unconfigured leg, skipping", map[string]interface{}{
				"orderID": row.ID,
				"leg":     row.LegID,
			})
			continue
		}
		pos := &domain.Position{
			ID:            row.ID,
			LegID:         leg.ID,
			Instrument:    row.Instrument,
			Direction:     row.Direction,
			Units:         row.Units,
			EntryPrice:    row.FillPrice,
			StopPrice:     row.StopPrice,
			TargetPrice:   row.TargetPrice,
			EntryTime:     row.FilledAt,
			EntryIndex:    s.cycle,
			ClientRef:     row.ClientRef,
			BrokerTradeID: row.BrokerTradeID,
		}
		if err := s.manager.Open(ctx, pos); err != nil {
			s.logger.Error(ctx, err, "Failed to adopt open position", map[string]interface{}{"orderID": row.ID})
			continue
		}
		s.logger.Info(ctx, "Adopted open position from ledger", map[string]interface{}{
			"orderID":    row.ID,
			"instrument": row.Instrument,
			"leg":        row.LegID,
		})
	}
	return nil
}

// runCycle performs one full evaluation: governance, equity snapshot,
// pending-order reconciliation, open-position management, then entries.
func (s *Service) runCycle(ctx context.Context) {
	s.cycle++
	s.logger.Debug(ctx, "Cycle started", map[string]interface{}{"cycle": s.cycle})

	governance, err := s.deps.Governance.Current(ctx)
	if err != nil {
		// Treat an unreadable governance state as a tripped breaker.
		s.logger.Error(ctx, err, "Failed to read governance state, suspending entries this cycle")
		governance = domain.GovernanceState{CircuitBreakerActive: true}
	}

	equity, equityOK := s.snapshotEquity(ctx)
	s.reconcilePendingOrders(ctx)
	s.manageOpenPositions(ctx, governance)

	if governance.CircuitBreakerActive {
		s.logger.Info(ctx, "Circuit breaker active, no entries this cycle", map[string]interface{}{"cycle": s.cycle})
		return
	}
	if !equityOK {
		s.logger.Warn(ctx, "Equity unavailable, no entries this cycle", map[string]interface{}{"cycle": s.cycle})
		return
	}
	s.enterIdleLegs(ctx, equity)
}

// snapshotEquity fetches the account NAV and records it to the ledger.
func (s *Service) snapshotEquity(ctx context.Context) (float64, bool) {
	equity, err := s.deps.Account.GetEquity(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch account equity")
		return 0, false
	}
	if err := s.deps.Ledger.RecordEquity(ctx, ports.EquitySnapshot{
		Agent:      s.cfg.Agent,
		NAV:        equity,
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Error(ctx, err, "Failed to record equity snapshot")
	}
	return equity, true
}

// reconcilePendingOrders checks every submitted/pending ledger row
// against the broker before anything is expired. A resting order that
// filled at the broker is promoted to open and adopted into the
// lifecycle manager; a cancelled or unknown one is stamped expired.
// Rows the broker still holds, and rows that never got a broker order
// id, fall back to the GTD expiry check.
func (s *Service) reconcilePendingOrders(ctx context.Context) {
	rows, err := s.deps.Ledger.QueryOpenPositions(ctx, s.cfg.Agent, "", []domain.OrderStatus{domain.OrderSubmitted, domain.OrderPending})
	if err != nil {
		s.logger.Error(ctx, err, "Failed to query pending orders for reconciliation")
		return
	}
	now := time.Now().UTC()
	for _, row := range rows {
		cancelled := false
		if row.BrokerOrderID != "" {
			state, err := s.deps.Orders.GetOrder(ctx, row.BrokerOrderID)
			switch {
			case errors.Is(err, ports.ErrTradeNotFound):
				cancelled = true
			case err != nil:
				// Broker state unreadable: leave the row alone rather
				// than expire an order that may have filled.
				s.logger.Error(ctx, err, "Failed to reconcile resting order", map[string]interface{}{
					"orderID":       row.ID,
					"brokerOrderID": row.BrokerOrderID,
				})
				continue
			case state.State == ports.BrokerOrderFilled:
				s.adoptFilledOrder(ctx, row, state)
				continue
			case state.State == ports.BrokerOrderCancelled:
				cancelled = true
			default:
				// Still working at the broker; GTD cancellation is the
				// broker's to perform.
				continue
			}
		}
		if !cancelled && (row.ExpiresAt.IsZero() || now.Before(row.ExpiresAt)) {
			continue
		}
		expired := domain.OrderExpired
		reason := domain.RejectExpired
		if err := s.deps.Ledger.UpdateOrder(ctx, row.ID, ports.OrderUpdate{
			Status:       &expired,
			RejectReason: &reason,
		}); err != nil {
			s.logger.Error(ctx, err, "Failed to expire stale order", map[string]interface{}{"orderID": row.ID})
			continue
		}
		s.logger.Info(ctx, "Expired unfilled resting order", map[string]interface{}{
			"orderID":    row.ID,
			"instrument": row.Instrument,
			"expiresAt":  row.ExpiresAt,
		})
	}
}

// adoptFilledOrder settles a resting order the broker reports as filled:
// the ledger row becomes open and the position joins the lifecycle
// manager so the exit rules run for it from this cycle on.
func (s *Service) adoptFilledOrder(ctx context.Context, row *domain.Order, state *ports.OrderState) {
	op := "adoptFilledOrder"

	var slippage float64
	if inst, ok := instruments.Lookup(row.Instrument); ok {
		slippage = (state.FillPrice - row.Price) / inst.PipSize() * row.Direction.Sign()
	}
	open := domain.OrderOpen
	update := ports.OrderUpdate{
		Status:        &open,
		BrokerTradeID: &state.TradeID,
		FillPrice:     &state.FillPrice,
		SlippagePips:  &slippage,
		FilledAt:      &state.FilledAt,
	}
	if err := s.deps.Ledger.UpdateOrder(ctx, row.ID, update); err != nil {
		s.logger.Error(ctx, err, op+": Failed to record resting fill", map[string]interface{}{"orderID": row.ID})
		return
	}

	if _, ok := s.legByID[row.LegID]; !ok {
		s.logger.Warn(ctx, op+": Filled row references an unconfigured leg, not managed", map[string]interface{}{
			"orderID": row.ID,
			"leg":     row.LegID,
		})
		return
	}
	pos := &domain.Position{
		ID:            row.ID,
		LegID:         row.LegID,
		Instrument:    row.Instrument,
		Direction:     row.Direction,
		Units:         row.Units,
		EntryPrice:    state.FillPrice,
		StopPrice:     row.StopPrice,
		TargetPrice:   row.TargetPrice,
		EntryTime:     state.FilledAt,
		EntryIndex:    s.cycle,
		ClientRef:     row.ClientRef,
		BrokerTradeID: state.TradeID,
	}
	if err := s.manager.Open(ctx, pos); err != nil {
		s.logger.Error(ctx, err, op+": Failed to adopt filled position", map[string]interface{}{"orderID": row.ID})
		return
	}
	s.logger.Info(ctx, op+": Resting order filled, position adopted", map[string]interface{}{
		"orderID":       row.ID,
		"instrument":    row.Instrument,
		"leg":           row.LegID,
		"fillPrice":     state.FillPrice,
		"brokerTradeID": state.TradeID,
	})
}

// manageOpenPositions runs the exit rules for every open leg against the
// current price and closes fired positions through the broker.
func (s *Service) manageOpenPositions(ctx context.Context, governance domain.GovernanceState) {
	for _, leg := range s.cfg.Legs {
		pos, ok := s.manager.Position(leg.ID)
		if !ok {
			continue
		}
		inst, ok := instruments.Lookup(pos.Instrument)
		if !ok {
			s.logger.Error(ctx, ports.ErrInstrumentUnresolvable, "Open position on unknown instrument", map[string]interface{}{"instrument": pos.Instrument})
			continue
		}

		price, err := s.deps.Market.GetMidPrice(ctx, pos.Instrument)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to fetch price for open position", map[string]interface{}{"instrument": pos.Instrument})
			continue
		}

		tick := lifecycle.Tick{
			High:         price,
			Low:          price,
			Close:        price,
			Time:         time.Now().UTC(),
			Index:        s.cycle,
			EarlyWarning: governance.EarlyWarningActive,
		}
		if snapshot, err := s.deps.Indicators.Snapshot(ctx, pos.Instrument, s.cfg.Granularity); err == nil {
			tick.Indicators = &snapshot
		} else {
			// The stop keeps its last level for this tick.
			s.logger.Debug(ctx, "Indicator snapshot unavailable", map[string]interface{}{
				"instrument": pos.Instrument,
				"error":      err.Error(),
			})
		}

		trade := s.manager.Evaluate(ctx, leg, inst.PipSize(), tick)
		if trade == nil {
			continue
		}
		s.closeThroughBroker(ctx, trade, pos, leg, inst)
	}
}

// closeThroughBroker closes the broker-side trade behind a fired exit
// and settles the ledger row with the actual fill. A failed broker
// close reinstates the position in the manager, so the leg stays
// occupied and the exit retries on the next cycle.
func (s *Service) closeThroughBroker(ctx context.Context, trade *domain.ClosedTrade, pos *domain.Position, leg domain.HedgeLeg, inst instruments.Instrument) {
	op := "closeThroughBroker"
	rowID, brokerTradeID, units := pos.ID, pos.BrokerTradeID, pos.Units
	s.logger.Info(ctx, op+": Exit rule fired, closing broker trade", map[string]interface{}{
		"instrument": trade.Instrument,
		"leg":        leg.ID,
		"reason":     trade.Reason,
		"rulePrice":  trade.ExitPrice,
	})

	result, err := s.deps.Orders.CloseTrade(ctx, brokerTradeID)
	if err != nil {
		// The broker still holds the trade with its attached stop and
		// target; the ledger row stays open and the manager keeps the
		// position so the next cycle retries the close.
		s.logger.Error(ctx, err, op+": Failed to close broker trade", map[string]interface{}{
			"brokerTradeID": brokerTradeID,
			"orderID":       rowID,
		})
		if rerr := s.manager.Reinstate(ctx, pos); rerr != nil {
			s.logger.Error(ctx, rerr, op+": Failed to reinstate position after failed close", map[string]interface{}{"orderID": rowID})
		}
		return
	}

	// Settle at the actual fill, not the rule price.
	pips := (result.Price-trade.EntryPrice)/inst.PipSize()*trade.Direction.Sign() - lifecycle.DefaultFrictionPips
	trade.ExitPrice = result.Price
	trade.Pips = pips
	trade.Win = pips > 0
	trade.Profit = map[string]float64{
		s.cfg.RiskVariant: float64(units) * pips * inst.PipSize(),
	}

	closed := domain.OrderClosed
	err = s.deps.Ledger.UpdateOrder(ctx, rowID, ports.OrderUpdate{
		Status:      &closed,
		ClosedAt:    &result.ClosedAt,
		ExitPrice:   &result.Price,
		Pips:        &pips,
		CloseReason: &trade.Reason,
	})
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to settle ledger row", map[string]interface{}{"orderID": rowID})
		return
	}
	s.logger.Info(ctx, op+": Position closed", map[string]interface{}{
		"orderID":   rowID,
		"fillPrice": result.Price,
		"pips":      pips,
		"reason":    trade.Reason,
	})
}

// enterIdleLegs evaluates every idle leg for a new entry and submits
// resting limit orders sequentially with a pacing delay.
func (s *Service) enterIdleLegs(ctx context.Context, equity float64) {
	history := s.fetchRankHistory(ctx)
	if history == nil {
		return
	}
	index := s.lookback // History is fetched to exactly lookback+1 bars per pair

	ranks := rank.Rank(history, index, s.lookback, s.cfg.Currencies)

	for _, leg := range s.cfg.Legs {
		if s.manager.AtCapacity() {
			return
		}
		if !s.manager.CanOpen(leg.ID, s.cycle) {
			continue
		}
		if err := s.enterLeg(ctx, leg, ranks, history, equity); err != nil {
			s.logger.Warn(ctx, "Leg entry skipped", map[string]interface{}{
				"leg":   leg.ID,
				"error": err.Error(),
			})
		}
		if !s.pause(ctx, s.cfg.PacingDelay) {
			return
		}
	}
}

// fetchRankHistory pulls the ranking window for every required pair.
// Pairs that fail to load are skipped; ranking degrades gracefully.
func (s *Service) fetchRankHistory(ctx context.Context) map[string][]domain.Bar {
	required := instruments.Pairs(s.cfg.Currencies)
	history := make(map[string][]domain.Bar, len(required))
	for _, name := range required {
		bars, err := s.deps.Market.GetBars(ctx, name, s.cfg.Granularity, s.lookback+1)
		if err != nil {
			s.logger.Warn(ctx, "Failed to load bars for ranking", map[string]interface{}{
				"instrument": name,
				"error":      err.Error(),
			})
			continue
		}
		if len(bars) < s.lookback+1 {
			continue
		}
		history[name] = bars[len(bars)-(s.lookback+1):]
	}
	if len(history) == 0 {
		s.logger.Error(ctx, ports.ErrDataUnavailable, "No pairs loaded for ranking, skipping entries")
		return nil
	}
	return history
}

// enterLeg runs the entry pipeline for one idle leg: resolve, gate,
// size, ledger insert, broker submission, ledger settlement.
func (s *Service) enterLeg(ctx context.Context, leg domain.HedgeLeg, ranks []domain.CurrencyRank, history map[string][]domain.Bar, equity float64) error {
	op := "enterLeg"

	if leg.StrongSlot > len(ranks) || leg.WeakSlot > len(ranks) {
		return fmt.Errorf("leg slots exceed the %d-currency ranking", len(ranks))
	}
	strong := ranks[leg.StrongSlot-1].Currency
	weak := ranks[leg.WeakSlot-1].Currency
	res, ok := instruments.Resolve(strong, weak)
	if !ok {
		return fmt.Errorf("%s/%s: %w", strong, weak, ports.ErrInstrumentUnresolvable)
	}
	bars, ok := history[res.Instrument.Name]
	if !ok {
		return fmt.Errorf("no bars for %s: %w", res.Instrument.Name, ports.ErrDataUnavailable)
	}

	cand := domain.TradeCandidate{
		Leg:        leg,
		Instrument: res.Instrument.Name,
		Direction:  res.Direction(),
		Strong:     strong,
		Weak:       weak,
	}
	if result := s.evaluator.Check(ctx, cand, ranks, bars); !result.Passed {
		s.logger.Debug(ctx, op+": Gate rejected candidate", map[string]interface{}{
			"leg":        leg.ID,
			"instrument": cand.Instrument,
			"gate":       string(result.FailedGate),
		})
		return nil
	}

	plan, err := s.sizer.Plan(ctx, leg, res.Instrument, bars)
	if err != nil {
		return fmt.Errorf("risk plan: %w", err)
	}

	mid, err := s.deps.Market.GetMidPrice(ctx, cand.Instrument)
	if err != nil {
		return fmt.Errorf("mid price: %w", err)
	}

	// Trap the entry a fixed offset inside the market: a long rests below
	// mid, a short above.
	limitPrice := mid - cand.Direction.Sign()*res.Instrument.PipsToPrice(s.cfg.TrapOffsetPips)
	stop, target := plan.Apply(limitPrice, cand.Direction)
	units := plan.Units(equity, s.cfg.RiskFraction, leg.Weight)

	if err := s.deps.Ledger.AcquireSlot(ctx, s.cfg.Agent, cand.Instrument); err != nil {
		return fmt.Errorf("slot check: %w", err)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		Agent:       s.cfg.Agent,
		ClientRef:   ids.New(),
		LegID:       leg.ID,
		Instrument:  cand.Instrument,
		Direction:   cand.Direction,
		Units:       units,
		Price:       limitPrice,
		StopPrice:   stop,
		TargetPrice: target,
		Status:      domain.OrderSubmitted,
		SubmittedAt: now,
		ExpiresAt:   now.Add(s.cfg.OrderExpiry),
	}

	// Ledger before broker: a crash mid-call still leaves an auditable row.
	rowID, err := s.deps.Ledger.InsertOrder(ctx, order)
	if err != nil {
		return fmt.Errorf("ledger insert: %w", err)
	}

	ticket := ports.OrderTicket{
		Instrument: cand.Instrument,
		Units:      units * int(cand.Direction.Sign()),
		Price:      limitPrice,
		Expiry:     order.ExpiresAt,
		StopLoss:   stop,
		TakeProfit: target,
		ClientRef:  order.ClientRef,
	}
	result, err := s.deps.Orders.SubmitLimitOrder(ctx, ticket)
	if err != nil {
		s.markRejected(ctx, rowID, err)
		return fmt.Errorf("broker submission: %w", err)
	}

	if result.Filled {
		slippage := (result.FillPrice - limitPrice) / res.Instrument.PipSize() * cand.Direction.Sign()
		open := domain.OrderOpen
		update := ports.OrderUpdate{
			Status:        &open,
			BrokerTradeID: &result.TradeID,
			FillPrice:     &result.FillPrice,
			SlippagePips:  &slippage,
			FilledAt:      &result.CreatedAt,
		}
		if err := s.deps.Ledger.UpdateOrder(ctx, rowID, update); err != nil {
			s.logger.Error(ctx, err, op+": Failed to record fill", map[string]interface{}{"orderID": rowID})
		}

		pos := &domain.Position{
			ID:            rowID,
			LegID:         leg.ID,
			Instrument:    cand.Instrument,
			Direction:     cand.Direction,
			Units:         units,
			EntryPrice:    result.FillPrice,
			StopPrice:     stop,
			TargetPrice:   target,
			EntryTime:     result.CreatedAt,
			EntryIndex:    s.cycle,
			ClientRef:     order.ClientRef,
			BrokerTradeID: result.TradeID,
		}
		if err := s.manager.Open(ctx, pos); err != nil {
			return fmt.Errorf("lifecycle open: %w", err)
		}
		s.logger.Info(ctx, op+": Entry filled immediately", map[string]interface{}{
			"orderID":    rowID,
			"instrument": cand.Instrument,
			"direction":  cand.Direction,
			"units":      units,
			"fillPrice":  result.FillPrice,
			"slippage":   slippage,
		})
		return nil
	}

	pending := domain.OrderPending
	update := ports.OrderUpdate{Status: &pending, BrokerOrderID: &result.OrderID}
	if err := s.deps.Ledger.UpdateOrder(ctx, rowID, update); err != nil {
		s.logger.Error(ctx, err, op+": Failed to record resting order", map[string]interface{}{"orderID": rowID})
	}
	s.logger.Info(ctx, op+": Resting limit order placed", map[string]interface{}{
		"orderID":       rowID,
		"brokerOrderID": result.OrderID,
		"instrument":    cand.Instrument,
		"limitPrice":    limitPrice,
		"expiresAt":     order.ExpiresAt,
	})
	return nil
}

// markRejected stamps a typed rejection onto the ledger row after a
// failed broker call. No in-cycle retry; the slot frees immediately.
func (s *Service) markRejected(ctx context.Context, rowID int64, cause error) {
	rejected := domain.OrderRejected
	reason := domain.RejectBroker
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, ports.ErrTimeout) {
		reason = domain.RejectTimeout
	}
	if err := s.deps.Ledger.UpdateOrder(ctx, rowID, ports.OrderUpdate{
		Status:       &rejected,
		RejectReason: &reason,
	}); err != nil {
		s.logger.Error(ctx, err, "Failed to mark order rejected", map[string]interface{}{"orderID": rowID})
	}
}

// pause sleeps for the pacing delay, aborting early on cancellation.
// Returns false when the context ended.
func (s *Service) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
