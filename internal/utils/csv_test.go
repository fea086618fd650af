package utils

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxHedgeBot/internal/domain"
)

func TestBarsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	bars := []domain.Bar{
		{
			Time:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Instrument: "EUR_USD",
			Open:       1.1000, High: 1.1010, Low: 1.0995, Close: 1.1005,
			Volume: 1234,
		},
		{
			Time:       time.Date(2024, 3, 1, 0, 15, 0, 0, time.UTC),
			Instrument: "EUR_USD",
			Open:       1.1005, High: 1.1022, Low: 1.1001, Close: 1.1020,
			Volume: 987,
		},
	}

	require.NoError(t, WriteBarsToCSV(bars, path))
	got, err := ReadBarsFromCSV(path)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, bars[0].Time, got[0].Time)
	assert.Equal(t, "EUR_USD", got[0].Instrument)
	assert.InDelta(t, 1.1022, got[1].High, 1e-9)
	assert.True(t, got[0].Complete)
}

func TestReadBarsFromCSVMissingFile(t *testing.T) {
	_, err := ReadBarsFromCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestTradesCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	trades := []*domain.ClosedTrade{
		{
			LegID:      1,
			Instrument: "EUR_USD",
			Direction:  domain.Long,
			EntryTime:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			ExitTime:   time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
			EntryPrice: 1.1000,
			ExitPrice:  1.1050,
			Pips:       48,
			Win:        true,
			Reason:     domain.CloseReasonTakeProfit,
		},
		{
			LegID:      2,
			Instrument: "GBP_JPY",
			Direction:  domain.Short,
			EntryTime:  time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
			ExitTime:   time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
			EntryPrice: 190.500,
			ExitPrice:  190.720,
			Pips:       -24,
			Reason:     domain.CloseReasonStopLoss,
		},
	}

	require.NoError(t, WriteTradesToCSV(trades, path))
	got, err := ReadTradesFromCSV(path)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, domain.Long, got[0].Direction)
	assert.Equal(t, domain.CloseReasonTakeProfit, got[0].Reason)
	assert.True(t, got[0].Win)
	assert.Equal(t, 2, got[1].LegID)
	assert.InDelta(t, -24, got[1].Pips, 1e-9)
	assert.False(t, got[1].Win)
}
