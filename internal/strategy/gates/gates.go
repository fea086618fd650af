// Package gates implements the three-stage entry check applied to a
// trade candidate. Each gate is an independent boolean; the evaluator
// composes a configurable required subset of them. A failing gate is a
// normal no-trade outcome, never an error.
package gates

import (
	"context"
	"fmt"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/ports"
	"fxHedgeBot/internal/strategy/indicators"
)

// Gate identifies one of the entry checks.
type Gate string

const (
	// GateRank requires the candidate's currencies to occupy the leg's
	// configured rank slots at evaluation time. This restates the
	// candidate-generation condition; re-checking guards against stale
	// ranking state between generation and evaluation.
	GateRank Gate = "rank"
	// GateBreakout requires the close to exceed the extreme of the
	// preceding lookback bars (current bar excluded).
	GateBreakout Gate = "breakout"
	// GateSlope requires the regression slope of recent closes to match
	// the trade direction.
	GateSlope Gate = "slope"
)

// Profiles for the two observed deployments. The backtest requires all
// three gates; the live hedge path historically trades on rank
// divergence alone. The discrepancy is intentional and selected by
// configuration, not unified here.
var (
	ProfileAll      = []Gate{GateRank, GateBreakout, GateSlope}
	ProfileRankOnly = []Gate{GateRank}
)

// Config holds configuration for the gate evaluator.
type Config struct {
	Required []Gate // Gates that must all pass; defaults to ProfileAll
	Lookback int    // Window for breakout extremes and slope regression
}

// Result reports the outcome of an evaluation. When Passed is false,
// FailedGate names the first gate that rejected the candidate.
type Result struct {
	Passed     bool
	FailedGate Gate
}

// Evaluator runs the required gates against a candidate.
type Evaluator struct {
	cfg    Config
	slope  *indicators.Slope
	logger ports.Logger
}

// New creates a gate evaluator, applying defaults for unset fields.
func New(cfg Config, logger ports.Logger) (*Evaluator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for gate evaluator")
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 20
	}
	if len(cfg.Required) == 0 {
		cfg.Required = ProfileAll
	}
	for _, g := range cfg.Required {
		switch g {
		case GateRank, GateBreakout, GateSlope:
		default:
			return nil, fmt.Errorf("unknown gate %q", g)
		}
	}
	return &Evaluator{
		cfg:    cfg,
		slope:  indicators.NewSlope(indicators.SlopeConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.Lookback}}),
		logger: logger,
	}, nil
}

// Check runs the required gates in order and returns on the first
// failure. ranks is the full ranking at evaluation time; bars is the
// candidate instrument's history, oldest to newest, ending at the
// evaluation bar.
func (e *Evaluator) Check(ctx context.Context, cand domain.TradeCandidate, ranks []domain.CurrencyRank, bars []domain.Bar) Result {
	for _, g := range e.cfg.Required {
		var ok bool
		switch g {
		case GateRank:
			ok = e.checkRank(cand, ranks)
		case GateBreakout:
			ok = e.checkBreakout(cand.Direction, bars)
		case GateSlope:
			ok = e.checkSlope(ctx, cand.Direction, bars)
		}
		if !ok {
			e.logger.Debug(ctx, "Entry gate rejected candidate", map[string]interface{}{
				"leg":        cand.Leg.ID,
				"instrument": cand.Instrument,
				"gate":       string(g),
			})
			return Result{FailedGate: g}
		}
	}
	return Result{Passed: true}
}

func (e *Evaluator) checkRank(cand domain.TradeCandidate, ranks []domain.CurrencyRank) bool {
	var strongOK, weakOK bool
	for _, r := range ranks {
		if r.Currency == cand.Strong && r.Rank == cand.Leg.StrongSlot {
			strongOK = true
		}
		if r.Currency == cand.Weak && r.Rank == cand.Leg.WeakSlot {
			weakOK = true
		}
	}
	return strongOK && weakOK
}

// checkBreakout tests the evaluation close against the extreme of the
// preceding lookback bars. Needs lookback+1 bars: it cannot pass before
// the window is fully formed.
func (e *Evaluator) checkBreakout(direction domain.Direction, bars []domain.Bar) bool {
	if len(bars) < e.cfg.Lookback+1 {
		return false
	}
	window := bars[len(bars)-1-e.cfg.Lookback : len(bars)-1]
	current := bars[len(bars)-1].Close

	if direction == domain.Long {
		highest := window[0].High
		for _, b := range window[1:] {
			if b.High > highest {
				highest = b.High
			}
		}
		return current > highest
	}
	lowest := window[0].Low
	for _, b := range window[1:] {
		if b.Low < lowest {
			lowest = b.Low
		}
	}
	return current < lowest
}

func (e *Evaluator) checkSlope(ctx context.Context, direction domain.Direction, bars []domain.Bar) bool {
	slope, err := e.slope.Calculate(ctx, bars)
	if err != nil {
		return false
	}
	if direction == domain.Long {
		return slope > 0
	}
	return slope < 0
}
