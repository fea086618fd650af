package rank

import (
	"testing"
	"time"

	"fxHedgeBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietBars builds lookback bars of identical range and volume so no bar
// crosses the efficiency threshold (stdev is zero, threshold equals the
// mean which no bar exceeds strictly).
func quietBars(n int, level float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = domain.Bar{
			Time:     base.Add(time.Duration(i) * time.Hour),
			Open:     level,
			High:     level + 0.0010,
			Low:      level - 0.0010,
			Close:    level,
			Volume:   100,
			Complete: true,
		}
	}
	return bars
}

// withSpike marks bar i as a high-efficiency bar by inflating its volume.
func withSpike(bars []domain.Bar, i int) []domain.Bar {
	out := append([]domain.Bar(nil), bars...)
	out[i].Volume = 10000
	return out
}

func TestPairContribution(t *testing.T) {
	lookback := 20

	t.Run("break above spike high credits base", func(t *testing.T) {
		bars := withSpike(quietBars(21, 1.1000), 5)
		// Evaluation close above the spike bar's high.
		bars[20].Close = 1.1050
		base, quote := PairContribution(bars, 20, lookback)
		assert.Equal(t, 1, base)
		assert.Equal(t, -1, quote)
	})

	t.Run("break below spike low debits base", func(t *testing.T) {
		bars := withSpike(quietBars(21, 1.1000), 5)
		bars[20].Close = 1.0950
		base, quote := PairContribution(bars, 20, lookback)
		assert.Equal(t, -1, base)
		assert.Equal(t, 1, quote)
	})

	t.Run("close inside spike range contributes nothing", func(t *testing.T) {
		bars := withSpike(quietBars(21, 1.1000), 5)
		bars[20].Close = 1.1005
		base, quote := PairContribution(bars, 20, lookback)
		assert.Zero(t, base)
		assert.Zero(t, quote)
	})

	t.Run("insufficient history is skipped silently", func(t *testing.T) {
		bars := quietBars(10, 1.1000)
		base, quote := PairContribution(bars, 9, lookback)
		assert.Zero(t, base)
		assert.Zero(t, quote)
	})

	t.Run("zero-range bars do not panic", func(t *testing.T) {
		bars := quietBars(21, 1.1000)
		for i := range bars {
			bars[i].High = bars[i].Low
		}
		base, quote := PairContribution(bars, 20, lookback)
		assert.Zero(t, base)
		assert.Zero(t, quote)
	})
}

func TestRankTotality(t *testing.T) {
	history := map[string][]domain.Bar{
		"EUR_USD": withSpike(quietBars(30, 1.1000), 5),
		"GBP_USD": quietBars(30, 1.2700),
		"USD_JPY": withSpike(quietBars(30, 150.00), 8),
	}
	history["EUR_USD"][25].Close = 1.1100 // EUR breaks up against USD

	for index := 20; index < 30; index++ {
		ranks := Rank(history, index, DefaultLookback, domain.MajorCurrencies)
		require.Len(t, ranks, len(domain.MajorCurrencies))

		seen := make(map[domain.Currency]bool)
		for i, r := range ranks {
			assert.Equal(t, i+1, r.Rank)
			assert.False(t, seen[r.Currency], "currency %s ranked twice", r.Currency)
			seen[r.Currency] = true
			if i > 0 {
				assert.GreaterOrEqual(t, ranks[i-1].Score, r.Score, "scores must be descending")
			}
		}
		for _, c := range domain.MajorCurrencies {
			assert.True(t, seen[c], "currency %s missing from ranking", c)
		}
	}
}

func TestRankTieBreakIsConfiguredOrder(t *testing.T) {
	// No history at all: every currency scores zero and the ranking must
	// fall back to the configured order.
	ranks := Rank(map[string][]domain.Bar{}, 20, DefaultLookback, domain.MajorCurrencies)
	require.Len(t, ranks, len(domain.MajorCurrencies))
	for i, c := range domain.MajorCurrencies {
		assert.Equal(t, c, ranks[i].Currency)
	}
}

func TestRankDeterminism(t *testing.T) {
	history := map[string][]domain.Bar{
		"EUR_USD": withSpike(quietBars(40, 1.1000), 12),
		"GBP_JPY": withSpike(quietBars(40, 190.00), 3),
		"AUD_NZD": quietBars(40, 1.0900),
	}
	history["EUR_USD"][30].Close = 1.1100
	history["GBP_JPY"][30].Close = 189.00

	first := Rank(history, 30, DefaultLookback, domain.MajorCurrencies)
	second := Rank(history, 30, DefaultLookback, domain.MajorCurrencies)
	assert.Equal(t, first, second)
}
