package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/store/sqlite"
)

var repairOwner string

// repairCmd rebuilds balances from the transaction history. Offline tool
// for a database whose balances drifted.
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Recompute an owner's balances from their transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		owner := ledger.OwnerID(repairOwner)
		if err := store.RecomputeBalances(context.Background(), owner, time.Now().UTC()); err != nil {
			return err
		}

		balances, err := store.ListBalances(context.Background(), owner)
		if err != nil {
			return err
		}
		for _, b := range balances {
			log.Info("balance recomputed", "owner", owner,
				"currency", b.Currency, "total", b.Total.String())
		}
		return nil
	},
}

func init() {
	repairCmd.Flags().StringVar(&repairOwner, "owner", "", "owner ID to repair (required)")
	repairCmd.MarkFlagRequired("owner")
}
