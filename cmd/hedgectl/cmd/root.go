package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hedgectl",
	Short: "Research and data tooling for the multi-leg FX hedge bot",
	Long: `Hedgectl bundles the offline tooling around the hedge bot:

  - Backtesting the ranked hedge basket against historical bar data
  - Downloading broker candles to CSV for later replay
  - Re-printing performance reports from saved trade logs

The live bot itself is a separate binary; hedgectl never places orders.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
