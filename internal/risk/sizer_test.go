package risk

import (
	"context"
	"testing"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/instruments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func eurusd(t *testing.T) instruments.Instrument {
	t.Helper()
	inst, ok := instruments.Lookup("EUR_USD")
	require.True(t, ok)
	return inst
}

// rangeBars builds bars whose true range is constant, so ATR equals it.
func rangeBars(n int, level, barRange float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{Open: level, High: level + barRange/2, Low: level - barRange/2, Close: level}
	}
	return bars
}

func TestNew(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	s, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, 14, s.cfg.ATRPeriod)
	assert.Equal(t, 2.0, s.cfg.ATRMultiple)
	assert.Equal(t, 1, s.cfg.MinUnits)
}

func TestPlanUnitsExactFormula(t *testing.T) {
	// equity 1000, risk 1%, weight 0.5, stop 0.0030 => risk amount 5
	// => floor(5 / 0.0030) = 1666 units.
	p := Plan{StopDistance: 0.0030, TargetDistance: 0.0060, minUnits: 1}
	assert.Equal(t, 1666, p.Units(1000, 0.01, 0.5))
}

func TestPlanUnitsMinimumFloor(t *testing.T) {
	p := Plan{StopDistance: 0.0030, minUnits: 1}
	assert.Equal(t, 1, p.Units(1, 0.0001, 0.1))
}

func TestPlanATRDrivenStop(t *testing.T) {
	s, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)

	leg := domain.HedgeLeg{ID: 1, StrongSlot: 1, WeakSlot: 8, Weight: 0.5, MinStopPips: 25, RewardRatio: 2.0}
	// ATR = 0.0050, so 2xATR = 0.0100 dominates the 25-pip floor.
	bars := rangeBars(30, 1.1000, 0.0050)

	plan, err := s.Plan(context.Background(), leg, eurusd(t), bars)
	require.NoError(t, err)
	assert.False(t, plan.Fallback)
	assert.InDelta(t, 0.0100, plan.StopDistance, 1e-9)
	assert.InDelta(t, 0.0200, plan.TargetDistance, 1e-9)
}

func TestPlanStopFloorDominates(t *testing.T) {
	s, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)

	leg := domain.HedgeLeg{ID: 1, MinStopPips: 25, RewardRatio: 2.0}
	// ATR = 0.0005, 2xATR = 0.0010 < 25 pips (0.0025).
	bars := rangeBars(30, 1.1000, 0.0005)

	plan, err := s.Plan(context.Background(), leg, eurusd(t), bars)
	require.NoError(t, err)
	assert.InDelta(t, 0.0025, plan.StopDistance, 1e-9)
}

func TestPlanFallbackWithoutHistory(t *testing.T) {
	s, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)

	leg := domain.HedgeLeg{ID: 1, MinStopPips: 25, RewardRatio: 2.0}
	plan, err := s.Plan(context.Background(), leg, eurusd(t), rangeBars(3, 1.1000, 0.0005))
	require.NoError(t, err)
	assert.True(t, plan.Fallback)
	assert.InDelta(t, 0.0025, plan.StopDistance, 1e-9)
	assert.InDelta(t, 0.0050, plan.TargetDistance, 1e-9)
}

func TestPlanRejectsInvalidLeg(t *testing.T) {
	s, err := New(Config{}, &mockLogger{})
	require.NoError(t, err)

	_, err = s.Plan(context.Background(), domain.HedgeLeg{ID: 1, RewardRatio: 2.0}, eurusd(t), nil)
	assert.Error(t, err)

	_, err = s.Plan(context.Background(), domain.HedgeLeg{ID: 1, MinStopPips: 25}, eurusd(t), nil)
	assert.Error(t, err)
}

func TestApplySanityBothDirections(t *testing.T) {
	p := Plan{StopDistance: 0.0030, TargetDistance: 0.0060}

	stop, target := p.Apply(1.1000, domain.Long)
	assert.Less(t, stop, 1.1000)
	assert.Greater(t, target, 1.1000)
	assert.InDelta(t, 1.0970, stop, 1e-9)
	assert.InDelta(t, 1.1060, target, 1e-9)

	stop, target = p.Apply(1.1000, domain.Short)
	assert.Greater(t, stop, 1.1000)
	assert.Less(t, target, 1.1000)
}
