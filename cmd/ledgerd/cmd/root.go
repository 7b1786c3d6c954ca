// Package cmd provides the ledgerd CLI commands.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pocketledger/ledger-core/config"
	"github.com/pocketledger/ledger-core/logger"
)

var (
	cfgFile string
	cfg     config.Config
	log     *slog.Logger
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerd",
	Short: "Personal finance ledger service",
	Long: `ledgerd keeps per-currency running balances consistent with a
user's transaction history. It serves the HTTP API, replays scheduled
transactions, and repairs drifted balances.

Example:
  ledgerd serve
  ledgerd replay --owner alice
  ledgerd repair --owner alice`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		log = logger.Init(cfg.LogLevel)
		return nil
	},
}

// Execute runs the CLI. Called by main.main().
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (optional)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(demoCmd)
}
