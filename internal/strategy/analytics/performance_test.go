package analytics

import (
	"testing"
	"time"

	"fxHedgeBot/internal/domain"
)

func tradeAt(exit time.Time, legID int, pips, profit float64, reason domain.CloseReason) *domain.ClosedTrade {
	return &domain.ClosedTrade{
		LegID:      legID,
		Instrument: "EUR_USD",
		Direction:  domain.Long,
		EntryTime:  exit.Add(-6 * time.Hour),
		ExitTime:   exit,
		Pips:       pips,
		Win:        pips > 0,
		Reason:     reason,
		Profit:     map[string]float64{"conservative": profit},
	}
}

func TestAnalyzePerformance(t *testing.T) {
	initialBalance := 10000.0
	base := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	trades := []*domain.ClosedTrade{
		tradeAt(base, 1, 48, 100, domain.CloseReasonTakeProfit),
		tradeAt(base.Add(24*time.Hour), 2, -27, -100, domain.CloseReasonStopLoss),
	}

	metrics := AnalyzePerformance(trades, "conservative", initialBalance)

	if metrics.TotalTrades != 2 {
		t.Errorf("Expected 2 total trades, got %d", metrics.TotalTrades)
	}
	if metrics.WinningTrades != 1 {
		t.Errorf("Expected 1 winning trade, got %d", metrics.WinningTrades)
	}
	if metrics.LosingTrades != 1 {
		t.Errorf("Expected 1 losing trade, got %d", metrics.LosingTrades)
	}
	if metrics.WinRate != 0.5 {
		t.Errorf("Expected 0.5 win rate, got %f", metrics.WinRate)
	}
	if metrics.TotalProfit != 0 {
		t.Errorf("Expected 0 total profit, got %f", metrics.TotalProfit)
	}
	if metrics.TotalPips != 21 {
		t.Errorf("Expected 21 total pips, got %f", metrics.TotalPips)
	}
	if metrics.FinalBalance != initialBalance {
		t.Errorf("Expected final balance of %f, got %f", initialBalance, metrics.FinalBalance)
	}
	if metrics.AverageWin != 100 {
		t.Errorf("Expected average win of 100, got %f", metrics.AverageWin)
	}
	if metrics.AverageLoss != -100 {
		t.Errorf("Expected average loss of -100, got %f", metrics.AverageLoss)
	}
	if metrics.ProfitFactor != 1 {
		t.Errorf("Expected profit factor of 1, got %f", metrics.ProfitFactor)
	}
	if metrics.ByCloseReason[domain.CloseReasonTakeProfit] != 1 {
		t.Errorf("Expected 1 take-profit close, got %d", metrics.ByCloseReason[domain.CloseReasonTakeProfit])
	}
	if metrics.ByCloseReason[domain.CloseReasonStopLoss] != 1 {
		t.Errorf("Expected 1 stop-loss close, got %d", metrics.ByCloseReason[domain.CloseReasonStopLoss])
	}
	if got := metrics.ByLeg[1]; got.Trades != 1 || got.Wins != 1 || got.TotalPips != 48 {
		t.Errorf("Unexpected leg 1 stats: %+v", got)
	}
	if got := metrics.ByLeg[2]; got.Trades != 1 || got.Wins != 0 || got.Profit != -100 {
		t.Errorf("Unexpected leg 2 stats: %+v", got)
	}
	if len(metrics.EquityCurve) != 2 {
		t.Errorf("Expected 2 equity curve points, got %d", len(metrics.EquityCurve))
	}
	if metrics.AverageTradeDuration != 6*time.Hour {
		t.Errorf("Expected 6h average duration, got %v", metrics.AverageTradeDuration)
	}
}

func TestAnalyzePerformanceConsecutiveStreaks(t *testing.T) {
	base := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	var trades []*domain.ClosedTrade
	// W W W L L W
	results := []float64{50, 30, 20, -40, -25, 10}
	for i, pips := range results {
		trades = append(trades, tradeAt(base.Add(time.Duration(i)*24*time.Hour), 1, pips, pips*10, domain.CloseReasonTakeProfit))
	}

	metrics := AnalyzePerformance(trades, "conservative", 10000)

	if metrics.MaxConsecutiveWins != 3 {
		t.Errorf("Expected 3 max consecutive wins, got %d", metrics.MaxConsecutiveWins)
	}
	if metrics.MaxConsecutiveLosses != 2 {
		t.Errorf("Expected 2 max consecutive losses, got %d", metrics.MaxConsecutiveLosses)
	}
	if len(metrics.Drawdowns) != 1 {
		t.Fatalf("Expected 1 drawdown period, got %d", len(metrics.Drawdowns))
	}
	// Peak 11000 after three wins, trough 10350 after the two losses.
	dd := metrics.Drawdowns[0]
	if dd.StartValue != 11000 {
		t.Errorf("Expected drawdown start value of 11000, got %f", dd.StartValue)
	}
	expectedDepth := (11000.0 - 10350.0) / 11000.0
	if diff := metrics.MaxDrawdown - expectedDepth; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected max drawdown %f, got %f", expectedDepth, metrics.MaxDrawdown)
	}
}

func TestAnalyzePerformanceSortsByExitTime(t *testing.T) {
	base := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)
	trades := []*domain.ClosedTrade{
		tradeAt(base.Add(48*time.Hour), 1, 20, 200, domain.CloseReasonTakeProfit),
		tradeAt(base, 1, -10, -100, domain.CloseReasonStopLoss),
	}

	metrics := AnalyzePerformance(trades, "conservative", 10000)

	if len(metrics.EquityCurve) != 2 {
		t.Fatalf("Expected 2 equity curve points, got %d", len(metrics.EquityCurve))
	}
	if !metrics.EquityCurve[0].Time.Equal(base) {
		t.Errorf("Expected earliest exit first, got %v", metrics.EquityCurve[0].Time)
	}
	if metrics.EquityCurve[0].Value != 9900 {
		t.Errorf("Expected 9900 after first exit, got %f", metrics.EquityCurve[0].Value)
	}
	if metrics.FinalBalance != 10100 {
		t.Errorf("Expected final balance of 10100, got %f", metrics.FinalBalance)
	}
}

func TestAnalyzePerformanceEmptyTrades(t *testing.T) {
	metrics := AnalyzePerformance(nil, "conservative", 10000)
	if metrics.TotalTrades != 0 {
		t.Errorf("Expected 0 trades, got %d", metrics.TotalTrades)
	}
	if metrics.FinalBalance != 10000 {
		t.Errorf("Expected untouched balance, got %f", metrics.FinalBalance)
	}
}

func TestGetMonthlyReturns(t *testing.T) {
	trades := []*domain.ClosedTrade{
		tradeAt(time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), 1, 10, 150, domain.CloseReasonTakeProfit),
		tradeAt(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), 1, -5, -50, domain.CloseReasonStopLoss),
		tradeAt(time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC), 1, 8, 80, domain.CloseReasonTakeProfit),
	}

	metrics := AnalyzePerformance(trades, "conservative", 10000)
	monthly := metrics.GetMonthlyReturns()

	if len(monthly) != 2 {
		t.Fatalf("Expected 2 months, got %d", len(monthly))
	}
	if monthly[0].Month.Month() != time.April || monthly[0].Return != 30 {
		t.Errorf("Unexpected April return: %+v", monthly[0])
	}
	if monthly[1].Month.Month() != time.May || monthly[1].Return != 150 {
		t.Errorf("Unexpected May return: %+v", monthly[1])
	}
}
