// Package indicatorfeed computes the exit-rule indicator snapshot from
// live broker bars.
package indicatorfeed

import (
	"context"
	"fmt"

	"fxHedgeBot/internal/ports"
	"fxHedgeBot/internal/strategy/indicators"
)

// Config holds configuration for the live indicator feed.
type Config struct {
	TrendPeriod int // EMA period of the dynamic-stop reference, default 20
	ATRPeriod   int // Default 14
}

// Feed implements ports.IndicatorFeed by pulling recent bars from the
// market data source and computing the trend reference and ATR locally.
type Feed struct {
	source   ports.MarketDataSource
	logger   ports.Logger
	trendRef *indicators.MovingAverage
	atr      *indicators.ATR
	barCount int
}

// New creates a live indicator feed.
func New(cfg Config, source ports.MarketDataSource, logger ports.Logger) (*Feed, error) {
	if source == nil {
		return nil, fmt.Errorf("market data source is required for indicator feed")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for indicator feed")
	}
	if cfg.TrendPeriod <= 0 {
		cfg.TrendPeriod = 20
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}

	barCount := cfg.TrendPeriod
	if cfg.ATRPeriod+1 > barCount {
		barCount = cfg.ATRPeriod + 1
	}
	// Extra history stabilizes the EMA seed.
	barCount *= 2

	return &Feed{
		source: source,
		logger: logger,
		trendRef: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.TrendPeriod},
			Type:            indicators.ExponentialMovingAverage,
		}),
		atr:      indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod}}),
		barCount: barCount,
	}, nil
}

// Snapshot computes the indicator values for the instrument at the given
// granularity. Failures wrap ErrIndicatorsUnavailable; the caller keeps
// its current stop levels in that case.
func (f *Feed) Snapshot(ctx context.Context, instrument, granularity string) (ports.IndicatorSnapshot, error) {
	bars, err := f.source.GetBars(ctx, instrument, granularity, f.barCount)
	if err != nil {
		return ports.IndicatorSnapshot{}, fmt.Errorf("bars for %s: %v: %w", instrument, err, ports.ErrIndicatorsUnavailable)
	}

	ref, err := f.trendRef.Calculate(ctx, bars)
	if err != nil {
		return ports.IndicatorSnapshot{}, fmt.Errorf("trend reference for %s: %v: %w", instrument, err, ports.ErrIndicatorsUnavailable)
	}
	atr, err := f.atr.Calculate(ctx, bars)
	if err != nil {
		return ports.IndicatorSnapshot{}, fmt.Errorf("ATR for %s: %v: %w", instrument, err, ports.ErrIndicatorsUnavailable)
	}

	return ports.IndicatorSnapshot{TrendStopReference: ref, ATR: atr}, nil
}
