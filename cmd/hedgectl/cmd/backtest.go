package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fxHedgeBot/config"
	"fxHedgeBot/internal/adapters/logger"
	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/instruments"
	"fxHedgeBot/internal/strategy/backtesting"
	"fxHedgeBot/internal/utils"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars through the hedge decision core",
	Long: `Backtest replays a directory of per-instrument bar CSVs through the
ranking, gating, sizing, and exit logic, and prints the resulting
performance report.

Each file in the data directory must be named <INSTRUMENT>.csv (for
example EUR_USD.csv) and contain bars written by "hedgectl fetch-candles".

Example:
  hedgectl backtest --data ./data/M15 --equity 10000 --trades-out trades.csv`,
	RunE: runBacktest,
}

var (
	btDataDir    string
	btLegsFile   string
	btEquity     float64
	btLookback   int
	btCurrencies string
	btTradesOut  string
	btLogLevel   string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btDataDir, "data", "d", "", "directory of per-instrument bar CSVs (required)")
	backtestCmd.Flags().StringVar(&btLegsFile, "legs", "", "YAML legs file (default: compiled three-leg set)")
	backtestCmd.Flags().Float64VarP(&btEquity, "equity", "e", 10_000, "starting equity per risk variant")
	backtestCmd.Flags().IntVar(&btLookback, "lookback", 0, "ranking window in bars (default: engine default)")
	backtestCmd.Flags().StringVar(&btCurrencies, "currencies", "", "comma-separated currency universe (default: the eight majors)")
	backtestCmd.Flags().StringVar(&btTradesOut, "trades-out", "", "write the closed-trade log to this CSV")
	backtestCmd.Flags().StringVar(&btLogLevel, "log-level", "warn", "log level during the run (debug, info, warn, error)")

	backtestCmd.MarkFlagRequired("data")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	appLogger, err := logger.New(logger.Config{Level: btLogLevel})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	legs := config.DefaultLegs()
	if btLegsFile != "" {
		legs, err = config.LoadLegs(btLegsFile)
		if err != nil {
			return fmt.Errorf("legs file: %w", err)
		}
	}

	history, err := loadHistoryDir(btDataDir)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d instrument histories from %s\n", len(history), btDataDir)

	engine, err := backtesting.New(backtesting.Config{
		Legs:          legs,
		Currencies:    parseCurrencies(btCurrencies),
		Lookback:      btLookback,
		InitialEquity: btEquity,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	result, err := engine.Run(context.Background(), history)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	printBacktestResult(result)

	if btTradesOut != "" {
		if err := utils.WriteTradesToCSV(result.Trades, btTradesOut); err != nil {
			return fmt.Errorf("write trades: %w", err)
		}
		fmt.Printf("\nTrade log written to %s\n", btTradesOut)
	}
	return nil
}

// loadHistoryDir reads every <INSTRUMENT>.csv in the directory. Files
// whose name is not a known instrument are skipped with a warning.
func loadHistoryDir(dir string) (map[string][]domain.Bar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	history := make(map[string][]domain.Bar)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".csv")
		if _, ok := instruments.Lookup(name); !ok {
			fmt.Printf("Skipping %s: not a known instrument\n", entry.Name())
			continue
		}
		bars, err := utils.ReadBarsFromCSV(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		history[name] = bars
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no instrument CSVs found in %s", dir)
	}
	return history, nil
}

func parseCurrencies(list string) []domain.Currency {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	currencies := make([]domain.Currency, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			currencies = append(currencies, domain.Currency(p))
		}
	}
	return currencies
}

func printBacktestResult(result *backtesting.Result) {
	fmt.Printf("\n=== Backtest %s ===\n", result.RunID)
	fmt.Printf("Total Trades: %d (W %d / L %d, win rate %.1f%%)\n",
		result.TotalTrades, result.WinningTrades, result.LosingTrades, result.WinRate*100)
	fmt.Printf("Total Pips: %.1f (avg %.1f per trade)\n", result.TotalPips, result.AveragePips)
	fmt.Printf("Profit Factor: %.2f  Reward/Risk: %.2f  Expectancy: %.2f\n",
		result.ProfitFactor, result.RewardRiskRatio, result.Expectancy)

	variants := make([]string, 0, len(result.Variants))
	for name := range result.Variants {
		variants = append(variants, name)
	}
	sort.Strings(variants)
	fmt.Println("\nRisk Variants:")
	for _, name := range variants {
		v := result.Variants[name]
		fmt.Printf("  %-14s risk %.1f%%  final %.2f (from %.2f)  max drawdown %.2f%%\n",
			name, v.Fraction*100, v.FinalEquity, v.InitialEquity, v.MaxDrawdown*100)
	}

	fmt.Println("\nSample Split:")
	printSample("In-Sample", result.InSample)
	printSample("Out-of-Sample", result.OutOfSample)
}

func printSample(label string, s backtesting.SampleStats) {
	fmt.Printf("  %-14s %d trades, win rate %.1f%%, %.1f pips, profit factor %.2f\n",
		label, s.Trades, s.WinRate*100, s.TotalPips, s.ProfitFactor)
}
