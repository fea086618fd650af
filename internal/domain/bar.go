package domain

import "time"

// Bar represents a single OHLCV candle at mid price.
type Bar struct {
	Instrument string    // Instrument name (e.g., "EUR_USD")
	Time       time.Time // Start time of the interval
	Open       float64   // Opening price
	High       float64   // Highest price
	Low        float64   // Lowest price
	Close      float64   // Closing price
	Volume     float64   // Tick volume for the interval
	Complete   bool      // Whether the interval has finished forming
}

// Range returns the high-low spread of the bar in price units.
func (b *Bar) Range() float64 {
	return b.High - b.Low
}
