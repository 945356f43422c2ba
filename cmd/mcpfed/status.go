package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"mcpfed/internal/config"
	"mcpfed/internal/manager"
	"mcpfed/internal/statuscache"
	fmtstrings "mcpfed/pkg/strings"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached status of every configured MCP server",
		Long: `Reads $CONFIG_DIR/config.json for the set of configured servers and
the Status Cache (REDIS_URL) for each one's last known status. This is
a read-only snapshot: it does not talk to a running "mcpfed serve"
process directly, only to the store they share.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.LoadAppConfig(config.ConfigPath())

	cache := openStatusCache()
	defer cache.Close()

	keys := make([]string, 0, len(cfg.MCPServers))
	for key := range cfg.MCPServers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ctx := context.Background()
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.Bold.Sprint("KEY"),
		text.Bold.Sprint("STATUS"),
		text.Bold.Sprint("TRANSPORT"),
		text.Bold.Sprint("TOOLS"),
		text.Bold.Sprint("ERROR"),
	})

	for _, key := range keys {
		info := cache.Read(ctx, key)
		errCell := fmtstrings.ClampCell(info.ErrorDetails, fmtstrings.DefaultCellWidth)
		t.AppendRow(table.Row{key, info.Status, info.TransportType, len(info.Tools), errCell})
	}

	if len(keys) == 0 {
		fmt.Println("No servers configured.")
		return nil
	}
	t.Render()
	return nil
}

// openStatusCache mirrors manager.New's REDIS_URL handling so the status
// command reads from the same store a running "serve" process writes to.
func openStatusCache() *statuscache.Cache {
	addr := os.Getenv(manager.RedisURLEnv)
	if addr == "" {
		return statuscache.NewDisabled()
	}
	cache, err := statuscache.New([]string{addr}, 0)
	if err != nil {
		return statuscache.NewDisabled()
	}
	return cache
}
