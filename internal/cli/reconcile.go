package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"points-ledger/internal/events"
	"points-ledger/internal/lock"
	"points-ledger/internal/server"
	"points-ledger/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile USERNAME",
	Short: "Compare a stored balance with the sum of its history",
	Long: `Recomputes the balance of USERNAME from its history entries and compares
it with the stored balance. Exits non-zero when they differ.`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := server.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ledger := service.NewLedgerService(store, lock.NewKeyedMutex(), events.NopPublisher{}, log)
	defer ledger.Close()
	rec, err := ledger.Reconcile(ctx, args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}

	if !rec.Consistent {
		return fmt.Errorf("balance of %q does not match its history", rec.Username)
	}
	return nil
}
