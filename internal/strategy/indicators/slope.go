package indicators

import (
	"context"
	"fmt"

	"fxHedgeBot/internal/domain"
)

// SlopeConfig holds configuration for the regression slope indicator.
type SlopeConfig struct {
	IndicatorConfig
}

// Slope computes the ordinary least-squares slope of the last Period
// closes against their bar offsets. A positive value means closes are
// rising across the window.
type Slope struct {
	BaseIndicator
	config SlopeConfig
}

// NewSlope creates a new regression slope indicator instance.
func NewSlope(config SlopeConfig) *Slope {
	return &Slope{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator.
func (s *Slope) Name() string {
	return "SLOPE"
}

// Calculate computes the OLS slope over the last Period closes.
func (s *Slope) Calculate(ctx context.Context, bars []domain.Bar) (float64, error) {
	period := s.config.Period
	if period < 2 {
		return 0, fmt.Errorf("slope period must be at least 2, got %d", period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate slope for period %d", len(bars), period)
	}

	window := bars[len(bars)-period:]

	// x values are the offsets 0..period-1; closed form for their mean.
	n := float64(period)
	meanX := (n - 1) / 2

	var meanY float64
	for _, b := range window {
		meanY += b.Close
	}
	meanY /= n

	var num, den float64
	for i, b := range window {
		dx := float64(i) - meanX
		num += dx * (b.Close - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}
