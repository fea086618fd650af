package indicators

import (
	"context"
	"math"
	"testing"

	"fxHedgeBot/internal/domain"
)

func TestATR_Calculate(t *testing.T) {
	tests := []struct {
		name          string
		period        int
		bars          []domain.Bar
		expectedValue float64
		expectError   bool
	}{
		{
			name:   "constant range bars",
			period: 3,
			bars: []domain.Bar{
				{High: 1.0010, Low: 1.0000, Close: 1.0005},
				{High: 1.0015, Low: 1.0005, Close: 1.0010},
				{High: 1.0020, Low: 1.0010, Close: 1.0015},
				{High: 1.0025, Low: 1.0015, Close: 1.0020},
			},
			// Every true range is 0.0010, so Wilder smoothing stays there.
			expectedValue: 0.0010,
		},
		{
			name:   "gap widens true range",
			period: 2,
			bars: []domain.Bar{
				{High: 1.0010, Low: 1.0000, Close: 1.0005},
				{High: 1.0010, Low: 1.0000, Close: 1.0005},
				// Gap up: TR = |high - prevClose| = 0.0030
				{High: 1.0035, Low: 1.0030, Close: 1.0032},
			},
			// Initial ATR = 0.0010, then (0.0010*1 + 0.0030)/2 = 0.0020.
			expectedValue: 0.0020,
		},
		{
			name:        "insufficient data",
			period:      14,
			bars:        []domain.Bar{{High: 1, Low: 0.9, Close: 0.95}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atr := NewATR(ATRConfig{IndicatorConfig{Period: tt.period}})
			value, err := atr.Calculate(context.Background(), tt.bars)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(value-tt.expectedValue) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.expectedValue, value)
			}
		})
	}
}
