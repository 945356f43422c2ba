package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcpfed/internal/config"
)

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Force a running mcpfed serve to reconcile against config.json",
		Long: `Re-reads and re-writes $CONFIG_DIR/config.json in place. A running
"mcpfed serve" process watches that file and reconciles the Service
Registry whenever it changes, so this is a lightweight way to trigger
a reconciliation pass without a separate admin API.`,
		Args: cobra.NoArgs,
		RunE: runReload,
	}
}

func runReload(cmd *cobra.Command, args []string) error {
	path := config.ConfigPath()
	cfg := config.LoadAppConfig(path)

	if err := config.WriteAppConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}

	fmt.Printf("Rewrote %s with %d configured server(s); a running mcpfed serve will reconcile shortly.\n", path, len(cfg.MCPServers))
	return nil
}
