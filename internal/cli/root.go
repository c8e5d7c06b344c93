// Package cli wires the points-ledger commands.
package cli

import (
	"fmt"
	"os"

	"points-ledger/internal/config"
	"points-ledger/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "points-ledger",
	Short: "Points wallet ledger service",
	Long: `points-ledger keeps per-user point balances with an append-only history.
Running it without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Directory containing config.yaml")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}
