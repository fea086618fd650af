package indicators

import (
	"context"
	"math"
	"testing"
	"time"

	"fxHedgeBot/internal/domain"
)

func TestMovingAverage_Calculate(t *testing.T) {
	now := time.Now()
	bars := []domain.Bar{
		{Time: now.Add(-4 * time.Hour), Close: 100.0},
		{Time: now.Add(-3 * time.Hour), Close: 102.0},
		{Time: now.Add(-2 * time.Hour), Close: 101.0},
		{Time: now.Add(-1 * time.Hour), Close: 103.0},
		{Time: now, Close: 104.0},
	}

	tests := []struct {
		name          string
		config        MovingAverageConfig
		bars          []domain.Bar
		expectedValue float64
		expectError   bool
	}{
		{
			name: "SMA with sufficient data",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            SimpleMovingAverage,
			},
			bars:          bars,
			expectedValue: 102.666667, // (101 + 103 + 104) / 3
			expectError:   false,
		},
		{
			name: "EMA with sufficient data",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            ExponentialMovingAverage,
			},
			bars:          bars,
			expectedValue: 103.0,
			expectError:   false,
		},
		{
			name: "Insufficient data",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 6},
				Type:            SimpleMovingAverage,
			},
			bars:        bars,
			expectError: true,
		},
		{
			name: "Invalid MA type",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            "INVALID",
			},
			bars:        bars,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := NewMovingAverage(tt.config)
			value, err := ma.Calculate(context.Background(), tt.bars)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(value-tt.expectedValue) > 0.0001 {
				t.Errorf("Expected %f, got %f", tt.expectedValue, value)
			}
		})
	}
}
