package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pocketledger/ledger-core/currency"
	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/schedule"
	"github.com/pocketledger/ledger-core/store/sqlite"
	"github.com/pocketledger/ledger-core/wishlist"
)

var demoOwner string

// demoCmd resets the database and seeds realistic sample data through the
// domain services, so the seeded balances are consistent by construction.
// Development and demo environments only.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Reset the database and load demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		log.Warn("resetting database for demo data", "db", cfg.DatabasePath)
		if err := store.Reset(ctx); err != nil {
			return err
		}

		registry := currency.NewRegistry()
		ledgerSvc := ledger.NewService(store, registry, ledger.WithLogger(log))
		wishSvc := wishlist.NewService(store, ledgerSvc)
		engine := schedule.NewEngine(store, ledgerSvc)
		engine.Log = log

		owner := ledger.OwnerID(demoOwner)

		type seedTx struct {
			amount, currency, direction, category, details string
		}
		for _, tx := range []seedTx{
			{"3200", "USD", "Deposit", "Income", "Monthly salary"},
			{"1200", "USD", "Withdraw", "Housing", "Rent"},
			{"86.40", "USD", "Withdraw", "Groceries", "Weekly shop"},
			{"500", "EUR", "Deposit", "Income", "Freelance invoice"},
			{"42.50", "EUR", "Withdraw", "Dining", "Dinner out"},
		} {
			if _, err := ledgerSvc.Create(ctx, ledger.CreateInput{
				Owner:     owner,
				Amount:    ledger.MustParseDecimal(tx.amount),
				Currency:  tx.currency,
				Direction: tx.direction,
				Category:  tx.category,
				Details:   tx.details,
			}); err != nil {
				return err
			}
		}

		if _, err := wishSvc.Create(ctx, wishlist.CreateInput{
			Owner:    owner,
			Price:    ledger.MustParseDecimal("249.99"),
			Currency: "USD",
			Details:  "Noise-cancelling headphones",
			Link:     "https://example.com/headphones",
			Year:     2026,
		}); err != nil {
			return err
		}

		if _, err := engine.Create(ctx, owner, schedule.TemplateInput{
			DayOfMonth: 1,
			Amount:     ledger.MustParseDecimal("3200"),
			Currency:   "USD",
			Direction:  "Deposit",
			Category:   "Income",
			Details:    "Monthly salary",
			Active:     true,
		}); err != nil {
			return err
		}

		balances, err := store.ListBalances(ctx, owner)
		if err != nil {
			return err
		}
		for _, b := range balances {
			log.Info("demo balance", "owner", owner,
				"currency", b.Currency, "total", b.Total.String())
		}
		log.Info("demo data loaded", "owner", owner)
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoOwner, "owner", "demo", "owner ID for the demo data")
}
