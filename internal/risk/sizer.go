// Package risk computes dynamic stop/target distances and position size
// from account equity.
package risk

import (
	"context"
	"fmt"
	"math"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/instruments"
	"fxHedgeBot/internal/ports"
	"fxHedgeBot/internal/strategy/indicators"
)

// Config holds configuration for the risk sizer.
type Config struct {
	ATRPeriod   int     // Default 14
	ATRMultiple float64 // Stop distance multiple of ATR, default 2.0
	MinUnits    int     // Sizing floor, default 1
}

// Plan is a fully computed stop/target geometry for one candidate.
// Distances are in price units of the instrument. Fallback is set when
// the ATR was unavailable and the stop floor alone was used.
type Plan struct {
	StopDistance   float64
	TargetDistance float64
	ATR            float64
	Fallback       bool

	minUnits int
}

// Units sizes the position for the given equity and risk fraction:
// floor(equity * fraction * weight / stopDistance), floored at the
// configured minimum.
func (p Plan) Units(equity, riskFraction, legWeight float64) int {
	if p.StopDistance <= 0 {
		return p.minUnits
	}
	units := int(math.Floor(equity * riskFraction * legWeight / p.StopDistance))
	if units < p.minUnits {
		return p.minUnits
	}
	return units
}

// Sizer computes risk plans for trade candidates.
type Sizer struct {
	cfg    Config
	atr    *indicators.ATR
	logger ports.Logger
}

// New creates a risk sizer, applying defaults for unset fields.
func New(cfg Config, logger ports.Logger) (*Sizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for risk sizer")
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.ATRMultiple <= 0 {
		cfg.ATRMultiple = 2.0
	}
	if cfg.MinUnits <= 0 {
		cfg.MinUnits = 1
	}
	return &Sizer{
		cfg:    cfg,
		atr:    indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod}}),
		logger: logger,
	}, nil
}

// Plan computes the stop and target distances for a leg on the given
// instrument: stop = max(ATRMultiple x ATR, the leg's minimum stop in
// price units), target = stop x the leg's reward ratio. When the bars
// cannot support an ATR the stop floor alone is used and the plan is
// flagged as a fallback; that is not an error.
func (s *Sizer) Plan(ctx context.Context, leg domain.HedgeLeg, inst instruments.Instrument, bars []domain.Bar) (Plan, error) {
	if leg.MinStopPips <= 0 {
		return Plan{}, fmt.Errorf("leg %d has non-positive minimum stop", leg.ID)
	}
	if leg.RewardRatio <= 0 {
		return Plan{}, fmt.Errorf("leg %d has non-positive reward ratio", leg.ID)
	}

	minStop := inst.PipsToPrice(leg.MinStopPips)

	plan := Plan{minUnits: s.cfg.MinUnits}
	atr, err := s.atr.Calculate(ctx, bars)
	if err != nil {
		s.logger.Debug(ctx, "ATR unavailable, sizing from stop floor", map[string]interface{}{
			"leg":        leg.ID,
			"instrument": inst.Name,
			"reason":     err.Error(),
		})
		plan.Fallback = true
		plan.StopDistance = minStop
	} else {
		plan.ATR = atr
		plan.StopDistance = math.Max(s.cfg.ATRMultiple*atr, minStop)
	}
	plan.TargetDistance = plan.StopDistance * leg.RewardRatio
	return plan, nil
}

// Apply prices the plan onto an entry: the stop strictly on the loss
// side, the target strictly on the profit side, for either direction.
func (p Plan) Apply(entry float64, direction domain.Direction) (stop, target float64) {
	sign := direction.Sign()
	return entry - sign*p.StopDistance, entry + sign*p.TargetDistance
}
