package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/pocketledger/ledger-core/currency"
	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/schedule"
	"github.com/pocketledger/ledger-core/store/sqlite"
)

var replayOwner string

// replayCmd is the external trigger for the scheduled-transaction engine;
// run it from cron or a systemd timer.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay elapsed scheduled transactions for one owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		registry := currency.NewRegistry()
		ledgerSvc := ledger.NewService(store, registry, ledger.WithLogger(log))
		engine := schedule.NewEngine(store, ledgerSvc)
		engine.Log = log

		result := engine.ApplyAll(context.Background(), ledger.OwnerID(replayOwner))
		log.Info("replay finished", "owner", replayOwner,
			"applied", result.Applied, "errors", len(result.Errors))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayOwner, "owner", "", "owner ID to replay (required)")
	replayCmd.MarkFlagRequired("owner")
}
