package analytics

import (
	"math"
	"sort"
	"time"

	"fxHedgeBot/internal/domain"
)

// PerformanceMetrics holds comprehensive performance metrics for one risk
// variant of a completed run.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	TotalProfit        float64
	TotalPips          float64
	MaxDrawdown        float64
	ProfitFactor       float64
	AverageWin         float64
	AverageLoss        float64
	FinalBalance       float64
	ReturnOnInvestment float64

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	RecoveryFactor       float64
	Expectancy           float64
	RiskRewardRatio      float64
	MonthlyReturns       map[string]float64
	ByCloseReason        map[domain.CloseReason]int
	ByLeg                map[int]LegStats
	Drawdowns            []Drawdown
	EquityCurve          []EquityPoint
}

// LegStats summarizes one hedge leg's contribution.
type LegStats struct {
	Trades    int
	Wins      int
	TotalPips float64
	Profit    float64
}

// Drawdown represents a drawdown period
type Drawdown struct {
	StartTime  time.Time
	EndTime    time.Time
	StartValue float64
	EndValue   float64
	Depth      float64
	Duration   time.Duration
}

// EquityPoint represents a point on the equity curve
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// AnalyzePerformance calculates performance metrics for one risk variant.
// Each trade's account-currency result is read from its Profit entry for
// that variant; trades missing the entry contribute zero profit.
func AnalyzePerformance(trades []*domain.ClosedTrade, variant string, initialBalance float64) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		FinalBalance:   initialBalance,
		MonthlyReturns: make(map[string]float64),
		ByCloseReason:  make(map[domain.CloseReason]int),
		ByLeg:          make(map[int]LegStats),
		Drawdowns:      make([]Drawdown, 0),
		EquityCurve:    make([]EquityPoint, 0),
	}

	if len(trades) == 0 {
		return metrics
	}

	// Process in exit order so the equity curve and drawdown periods
	// follow the realized sequence.
	ordered := make([]*domain.ClosedTrade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	var currentBalance = initialBalance
	var peakBalance = initialBalance
	var currentDrawdown *Drawdown
	var consecutiveWins, consecutiveLosses int
	var maxConsecutiveWins, maxConsecutiveLosses int

	for _, trade := range ordered {
		pnl := trade.Profit[variant]

		metrics.TotalTrades++
		metrics.TotalPips += trade.Pips
		metrics.ByCloseReason[trade.Reason]++
		if trade.Win {
			metrics.WinningTrades++
			consecutiveWins++
			consecutiveLosses = 0
			metrics.AverageWin = (metrics.AverageWin*float64(metrics.WinningTrades-1) + pnl) / float64(metrics.WinningTrades)
		} else {
			metrics.LosingTrades++
			consecutiveLosses++
			consecutiveWins = 0
			metrics.AverageLoss = (metrics.AverageLoss*float64(metrics.LosingTrades-1) + pnl) / float64(metrics.LosingTrades)
		}

		if consecutiveWins > maxConsecutiveWins {
			maxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > maxConsecutiveLosses {
			maxConsecutiveLosses = consecutiveLosses
		}

		leg := metrics.ByLeg[trade.LegID]
		leg.Trades++
		if trade.Win {
			leg.Wins++
		}
		leg.TotalPips += trade.Pips
		leg.Profit += pnl
		metrics.ByLeg[trade.LegID] = leg

		currentBalance += pnl
		metrics.TotalProfit += pnl
		metrics.FinalBalance = currentBalance

		monthKey := trade.ExitTime.Format("2006-01")
		metrics.MonthlyReturns[monthKey] += pnl

		if currentBalance > peakBalance {
			peakBalance = currentBalance
			if currentDrawdown != nil {
				currentDrawdown.EndTime = trade.ExitTime
				currentDrawdown.EndValue = currentBalance
				currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
				metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
				currentDrawdown = nil
			}
		} else {
			drawdown := (peakBalance - currentBalance) / peakBalance
			if currentDrawdown == nil {
				currentDrawdown = &Drawdown{
					StartTime:  trade.ExitTime,
					StartValue: peakBalance,
					Depth:      drawdown,
				}
			} else {
				currentDrawdown.Depth = math.Max(currentDrawdown.Depth, drawdown)
			}
			if drawdown > metrics.MaxDrawdown {
				metrics.MaxDrawdown = drawdown
			}
		}

		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Time:     trade.ExitTime,
			Value:    currentBalance,
			Drawdown: (peakBalance - currentBalance) / peakBalance,
		})
	}

	// Close any open drawdown
	if currentDrawdown != nil {
		currentDrawdown.EndTime = ordered[len(ordered)-1].ExitTime
		currentDrawdown.EndValue = currentBalance
		currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
		metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades)
	if metrics.AverageLoss != 0 {
		metrics.ProfitFactor = metrics.AverageWin / -metrics.AverageLoss
		metrics.RiskRewardRatio = metrics.AverageWin / -metrics.AverageLoss
	}
	metrics.ReturnOnInvestment = (metrics.FinalBalance - initialBalance) / initialBalance
	metrics.MaxConsecutiveWins = maxConsecutiveWins
	metrics.MaxConsecutiveLosses = maxConsecutiveLosses

	var totalDuration time.Duration
	for _, trade := range ordered {
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)
	}
	metrics.AverageTradeDuration = totalDuration / time.Duration(len(ordered))

	if metrics.MaxDrawdown > 0 {
		metrics.RecoveryFactor = metrics.TotalProfit / (initialBalance * metrics.MaxDrawdown)
	}

	metrics.Expectancy = (metrics.WinRate * metrics.AverageWin) + ((1 - metrics.WinRate) * metrics.AverageLoss)

	return metrics
}

// GetMonthlyReturns returns the monthly returns as a sorted slice
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
