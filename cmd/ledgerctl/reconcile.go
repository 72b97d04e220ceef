package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gsmwallet/server/internal/db"
	"github.com/gsmwallet/server/internal/directory"
	"github.com/gsmwallet/server/internal/ledger"
	"github.com/gsmwallet/server/internal/repo"
)

func reconcileCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over unsettled ledger entries",
		Long: `Confirm or void ledger entries whose balance push did not complete.

An entry is confirmed when the customer service holds its balanceAfter and voided
otherwise. Balances are never re-pushed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.CustomerServiceURL == "" {
				return errors.New("CUSTOMER_SERVICE_URL is required for reconcile")
			}
			if batch <= 0 {
				batch = cfg.ReconcileBatch
			}

			pool, err := db.OpenPool(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			r := ledger.NewReconciler(repo.NewLedgerRepo(pool), directory.NewClient(cfg.CustomerServiceURL, cfg.InternalAPIKey), batch)
			report, err := r.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d confirmed=%d voided=%d held=%d failed=%d\n",
				report.Scanned, report.Confirmed, report.Voided, report.Held, report.Failed)
			return nil
		},
	}

	cmd.Flags().IntVarP(&batch, "batch", "n", 0, "entries per status to scan (default RECONCILE_BATCH)")
	return cmd
}
