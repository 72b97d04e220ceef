package main

import (
	"github.com/spf13/cobra"

	"github.com/gsmwallet/server/internal/db"
)

func migrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply the embedded goose migrations for customers, OTP challenges and ledger entries.

Examples:
  ledgerctl migrate
  ledgerctl migrate --status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := db.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if statusOnly {
				return db.Status(database)
			}
			return db.RunMigrations(database)
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "print migration status without applying")
	return cmd
}
