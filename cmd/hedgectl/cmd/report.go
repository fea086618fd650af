package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/strategy/analytics"
	"fxHedgeBot/internal/utils"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a performance report from a saved trade log",
	Long: `Report re-analyzes a trade log written by "hedgectl backtest
--trades-out" and prints the pips-based performance breakdown.

Example:
  hedgectl report --trades trades.csv`,
	RunE: runReport,
}

var (
	rpTradesFile string
	rpVariant    string
	rpEquity     float64
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&rpTradesFile, "trades", "t", "", "trade log CSV (required)")
	reportCmd.Flags().StringVar(&rpVariant, "variant", "conservative", "risk variant name for account-currency columns")
	reportCmd.Flags().Float64VarP(&rpEquity, "equity", "e", 10_000, "initial balance the log was produced with")

	reportCmd.MarkFlagRequired("trades")
}

func runReport(cmd *cobra.Command, args []string) error {
	trades, err := utils.ReadTradesFromCSV(rpTradesFile)
	if err != nil {
		return fmt.Errorf("read trades: %w", err)
	}

	metrics := analytics.AnalyzePerformance(trades, rpVariant, rpEquity)

	fmt.Printf("=== Trade Log Report: %s ===\n", rpTradesFile)
	fmt.Printf("Total Trades: %d (W %d / L %d, win rate %.1f%%)\n",
		metrics.TotalTrades, metrics.WinningTrades, metrics.LosingTrades, metrics.WinRate*100)
	fmt.Printf("Total Pips: %.1f\n", metrics.TotalPips)
	fmt.Printf("Max Consecutive: %d wins / %d losses\n",
		metrics.MaxConsecutiveWins, metrics.MaxConsecutiveLosses)
	fmt.Printf("Average Trade Duration: %s\n", metrics.AverageTradeDuration)

	fmt.Println("\nBy Close Reason:")
	reasons := make([]string, 0, len(metrics.ByCloseReason))
	for reason := range metrics.ByCloseReason {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Printf("  %-10s %d\n", reason, metrics.ByCloseReason[domain.CloseReason(reason)])
	}

	fmt.Println("\nBy Leg:")
	legs := make([]int, 0, len(metrics.ByLeg))
	for id := range metrics.ByLeg {
		legs = append(legs, id)
	}
	sort.Ints(legs)
	for _, id := range legs {
		stats := metrics.ByLeg[id]
		fmt.Printf("  leg %d: %d trades, %d wins, %.1f pips\n",
			id, stats.Trades, stats.Wins, stats.TotalPips)
	}

	return nil
}
