package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fxHedgeBot/internal/adapters/broker"
	"fxHedgeBot/internal/adapters/logger"
	"fxHedgeBot/internal/utils"
)

var fetchCandlesCmd = &cobra.Command{
	Use:   "fetch-candles",
	Short: "Download broker candles and write them to CSV",
	Long: `Fetch-candles downloads completed mid-price candles from the broker
and writes them in the bar CSV format the backtest command reads.

The API token and account ID fall back to the BROKER_API_TOKEN and
BROKER_ACCOUNT_ID environment variables when the flags are not set.

Example:
  hedgectl fetch-candles -i EUR_USD -g M15 -c 5000 -o data/M15/EUR_USD.csv`,
	RunE: runFetchCandles,
}

var (
	fcToken       string
	fcAccountID   string
	fcPractice    bool
	fcInstrument  string
	fcGranularity string
	fcCount       int
	fcOut         string
)

func init() {
	rootCmd.AddCommand(fetchCandlesCmd)

	fetchCandlesCmd.Flags().StringVar(&fcToken, "token", "", "broker API token (default: env BROKER_API_TOKEN)")
	fetchCandlesCmd.Flags().StringVar(&fcAccountID, "account", "", "broker account ID (default: env BROKER_ACCOUNT_ID)")
	fetchCandlesCmd.Flags().BoolVar(&fcPractice, "practice", true, "use the practice environment")
	fetchCandlesCmd.Flags().StringVarP(&fcInstrument, "instrument", "i", "", "instrument name, e.g. EUR_USD (required)")
	fetchCandlesCmd.Flags().StringVarP(&fcGranularity, "granularity", "g", "M15", "candle granularity, e.g. M15, H1, D")
	fetchCandlesCmd.Flags().IntVarP(&fcCount, "count", "c", 500, "number of candles to request")
	fetchCandlesCmd.Flags().StringVarP(&fcOut, "out", "o", "", "output CSV path (required)")

	fetchCandlesCmd.MarkFlagRequired("instrument")
	fetchCandlesCmd.MarkFlagRequired("out")
}

func runFetchCandles(cmd *cobra.Command, args []string) error {
	token := fcToken
	if token == "" {
		token = strings.TrimSpace(os.Getenv("BROKER_API_TOKEN"))
	}
	accountID := fcAccountID
	if accountID == "" {
		accountID = strings.TrimSpace(os.Getenv("BROKER_ACCOUNT_ID"))
	}
	if token == "" {
		return fmt.Errorf("missing token: set --token or env BROKER_API_TOKEN")
	}
	if accountID == "" {
		return fmt.Errorf("missing account ID: set --account or env BROKER_ACCOUNT_ID")
	}

	appLogger, err := logger.New(logger.Config{Level: "warn"})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	client, err := broker.NewClient(broker.Config{
		Token:     token,
		AccountID: accountID,
		Practice:  fcPractice,
		Logger:    appLogger,
	})
	if err != nil {
		return fmt.Errorf("broker client: %w", err)
	}

	bars, err := client.GetBars(context.Background(), fcInstrument, fcGranularity, fcCount)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if err := utils.WriteBarsToCSV(bars, fcOut); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	fmt.Printf("Wrote %d %s candles for %s to %s\n", len(bars), fcGranularity, fcInstrument, fcOut)
	return nil
}
