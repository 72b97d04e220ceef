package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gsmwallet/server/internal/db"
	"github.com/gsmwallet/server/internal/ledger"
	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

func entriesCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List ledger entries by settlement status",
		Long: `List ledger entries in one status, oldest first.

Examples:
  ledgerctl entries --status unconfirmed
  ledgerctl entries -s pending -n 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := model.EntryStatus(status)
			switch st {
			case model.StatusPending, model.StatusConfirmed, model.StatusUnconfirmed, model.StatusVoid:
			default:
				return fmt.Errorf("unknown status %q", status)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := db.OpenPool(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := repo.NewLedgerRepo(pool).ListByStatus(cmd.Context(), st, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCUSTOMER\tKIND\tAMOUNT\tBEFORE\tAFTER\tOCCURRED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.CustomerID, e.Kind, ledger.FormatAmount(e.Amount),
					e.BalanceBefore.String(), e.BalanceAfter.String(), e.OccurredAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(model.StatusUnconfirmed), "pending, confirmed, unconfirmed or void")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries to print")
	return cmd
}
