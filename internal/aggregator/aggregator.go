// Package aggregator builds the unified, federated tool catalog out of
// every connected Managed Client's own tool list.
package aggregator

import (
	"context"
	"sort"

	"mcpfed/internal/client"
	"mcpfed/internal/registry"
)

// AggregatedTool is one entry in the federated catalog: a server's tool,
// exposed under a collision-free name.
type AggregatedTool struct {
	Name        string
	ServerKey   string
	ToolName    string
	Description string
	InputSchema map[string]interface{}
}

// ExposedName joins a serverKey and a tool's original name into the
// catalog-wide unique identifier. Because serverKey is itself unique,
// this can never collide across servers.
func ExposedName(serverKey, toolName string) string {
	return serverKey + "_" + toolName
}

// BuildCatalog snapshots every registered server's status and assembles
// the federated tool catalog. Only servers with status=connected and a
// non-empty tool list contribute; within one server, a tool name
// repeated in its own list is kept only once (first wins).
func BuildCatalog(ctx context.Context, reg *registry.Registry) []AggregatedTool {
	keys := reg.Keys()
	sort.Strings(keys)

	var catalog []AggregatedTool
	for _, key := range keys {
		mc, ok := reg.Get(key)
		if !ok {
			continue
		}

		info := mc.Status(ctx)
		if info.Status != client.StatusConnected || len(info.Tools) == 0 {
			continue
		}

		seen := make(map[string]bool, len(info.Tools))
		for _, tool := range info.Tools {
			if seen[tool.Name] {
				continue
			}
			seen[tool.Name] = true

			catalog = append(catalog, AggregatedTool{
				Name:        ExposedName(key, tool.Name),
				ServerKey:   key,
				ToolName:    tool.Name,
				Description: tool.Description,
				InputSchema: NormalizeInputSchema(tool.InputSchema),
			})
		}
	}
	return catalog
}
