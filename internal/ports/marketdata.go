package ports

import (
	"context"

	"fxHedgeBot/internal/domain"
)

// MarketDataSource provides historical and current bar data.
type MarketDataSource interface {
	// GetBars retrieves up to count bars for the instrument at the given
	// granularity (e.g., "M15"), ordered oldest to newest. Incomplete
	// trailing bars are discarded before returning, so the last bar is
	// always a finished interval.
	GetBars(ctx context.Context, instrument, granularity string, count int) ([]domain.Bar, error)

	// GetMidPrice retrieves the current mid price for the instrument.
	GetMidPrice(ctx context.Context, instrument string) (float64, error)
}
