package cli

import (
	"context"
	"os/signal"
	"syscall"

	"points-ledger/internal/server"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringP("port", "p", "", "Port to listen on (overrides server.port)")
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, port, err := server.StartServer(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start server")
		return err
	}
	log.Info().Str("port", port).Msg("Server started successfully")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
