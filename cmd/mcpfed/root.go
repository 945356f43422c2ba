package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

var rootDebug bool

var rootCmd = &cobra.Command{
	Use:   "mcpfed",
	Short: "Federate multiple MCP servers behind one managed catalog",
	Long: `mcpfed connects out to a set of configured MCP servers (stdio,
SSE, or streamable-http), keeps a unified tool catalog, and wraps every
tool call with schema validation, a transport-appropriate timeout, and
response normalization for oversized results.

Configuration is read from $CONFIG_DIR/config.json (default /config).`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command, injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the CLI entry point called from main.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpfed version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newReloadCmd())
}
