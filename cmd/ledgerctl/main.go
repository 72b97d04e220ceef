package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gsmwallet/server/internal/config"
)

var Version = "dev"

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	rootCmd := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Operator tooling for the GSM wallet ledger",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(entriesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ServiceCLI)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
