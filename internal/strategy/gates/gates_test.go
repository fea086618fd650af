package gates

import (
	"context"
	"testing"

	"fxHedgeBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func testLeg() domain.HedgeLeg {
	return domain.HedgeLeg{ID: 1, Label: "alpha", StrongSlot: 1, WeakSlot: 8, Weight: 0.5, MinStopPips: 25, RewardRatio: 2.0}
}

func testRanks() []domain.CurrencyRank {
	currencies := domain.MajorCurrencies
	ranks := make([]domain.CurrencyRank, len(currencies))
	for i, c := range currencies {
		ranks[i] = domain.CurrencyRank{Currency: c, Score: len(currencies) - i, Rank: i + 1}
	}
	return ranks
}

// climbingBars returns n bars stepping up by one pip each, so the last
// close breaks the prior highs and the slope is positive.
func climbingBars(n int, start float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		level := start + float64(i)*0.0001
		bars[i] = domain.Bar{Open: level, High: level + 0.00005, Low: level - 0.00005, Close: level, Volume: 100, Complete: true}
	}
	return bars
}

func TestNew(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{Required: []Gate{"bogus"}}, &mockLogger{})
	assert.Error(t, err)

	e, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, ProfileAll, e.cfg.Required)
	assert.Equal(t, 20, e.cfg.Lookback)
}

func TestCheckAllGatesPass(t *testing.T) {
	e, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)

	cand := domain.TradeCandidate{
		Leg:        testLeg(),
		Instrument: "USD_NZD",
		Direction:  domain.Long,
		Strong:     "USD",
		Weak:       "NZD",
	}
	res := e.Check(context.Background(), cand, testRanks(), climbingBars(30, 1.1000))
	assert.True(t, res.Passed)
}

func TestRankGate(t *testing.T) {
	e, err := New(Config{Required: ProfileRankOnly}, &mockLogger{})
	require.NoError(t, err)

	cand := domain.TradeCandidate{
		Leg:       testLeg(),
		Direction: domain.Long,
		Strong:    "EUR", // EUR holds rank 2 in testRanks, not slot 1
		Weak:      "NZD",
	}
	res := e.Check(context.Background(), cand, testRanks(), nil)
	assert.False(t, res.Passed)
	assert.Equal(t, GateRank, res.FailedGate)

	// Rank-only profile ignores bars entirely.
	cand.Strong = "USD"
	res = e.Check(context.Background(), cand, testRanks(), nil)
	assert.True(t, res.Passed)
}

func TestBreakoutGateBoundary(t *testing.T) {
	e, err := New(Config{Required: []Gate{GateBreakout}}, &mockLogger{})
	require.NoError(t, err)

	cand := domain.TradeCandidate{Leg: testLeg(), Direction: domain.Long, Strong: "USD", Weak: "NZD"}

	// 20 bars: window not fully formed, cannot pass.
	res := e.Check(context.Background(), cand, testRanks(), climbingBars(20, 1.1000))
	assert.False(t, res.Passed)
	assert.Equal(t, GateBreakout, res.FailedGate)

	// 21 bars: exactly enough, the climbing close breaks the prior highs.
	res = e.Check(context.Background(), cand, testRanks(), climbingBars(21, 1.1000))
	assert.True(t, res.Passed)
}

func TestBreakoutGateDirections(t *testing.T) {
	e, err := New(Config{Required: []Gate{GateBreakout}}, &mockLogger{})
	require.NoError(t, err)

	bars := climbingBars(21, 1.1000)

	short := domain.TradeCandidate{Leg: testLeg(), Direction: domain.Short}
	res := e.Check(context.Background(), short, testRanks(), bars)
	assert.False(t, res.Passed, "rising closes must not pass a short breakout")

	// Mirror the series downward for the short case.
	falling := make([]domain.Bar, len(bars))
	for i := range bars {
		level := 1.1000 - float64(i)*0.0001
		falling[i] = domain.Bar{Open: level, High: level + 0.00005, Low: level - 0.00005, Close: level}
	}
	res = e.Check(context.Background(), short, testRanks(), falling)
	assert.True(t, res.Passed)
}

func TestSlopeGate(t *testing.T) {
	e, err := New(Config{Required: []Gate{GateSlope}}, &mockLogger{})
	require.NoError(t, err)

	long := domain.TradeCandidate{Leg: testLeg(), Direction: domain.Long}
	short := domain.TradeCandidate{Leg: testLeg(), Direction: domain.Short}
	rising := climbingBars(25, 1.1000)

	assert.True(t, e.Check(context.Background(), long, testRanks(), rising).Passed)
	assert.False(t, e.Check(context.Background(), short, testRanks(), rising).Passed)

	// Too little history fails the gate rather than erroring.
	assert.False(t, e.Check(context.Background(), long, testRanks(), rising[:5]).Passed)
}
