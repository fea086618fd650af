package ports

import "context"

// IndicatorSnapshot carries the externally computed indicator values the
// exit rules depend on.
type IndicatorSnapshot struct {
	TrendStopReference float64 // Reference price the dynamic stop is offset from
	ATR                float64 // Average true range of the timeframe
}

// IndicatorFeed provides indicator snapshots for an instrument/timeframe.
// Implementations return ErrIndicatorsUnavailable (wrapped) when the
// snapshot cannot be computed; callers then fall back to fixed distances.
type IndicatorFeed interface {
	Snapshot(ctx context.Context, instrument, granularity string) (IndicatorSnapshot, error)
}
