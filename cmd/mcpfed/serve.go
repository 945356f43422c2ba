package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mcpfed/internal/manager"
	"mcpfed/internal/metrics"
	"mcpfed/pkg/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the federation manager and keep it running",
		Long: `Loads $CONFIG_DIR/config.json, connects out to every configured MCP
server, and keeps the federated tool catalog and Status Cache up to
date until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if rootDebug {
		logging.Init(logging.LevelDebug, os.Stderr)
	}

	m := manager.New(metrics.NewPrometheusSink(prometheus.DefaultRegisterer))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("failed to start federation manager: %w", err)
	}

	logging.Info("CLI", "mcpfed is running, press Ctrl+C to stop")
	<-ctx.Done()

	logging.Info("CLI", "shutting down")
	shutdownErr := m.Shutdown(context.Background())
	if shutdownErr != nil {
		return fmt.Errorf("shutdown did not complete cleanly: %w", shutdownErr)
	}
	return nil
}
