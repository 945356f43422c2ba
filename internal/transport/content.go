package transport

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// collapseMCPContent applies the same content-collapsing rule used by
// internal/stdiorpc to the mcp.Content values returned by the
// mark3labs/mcp-go SSE and streamable-HTTP clients.
func collapseMCPContent(parts []mcp.Content) interface{} {
	if len(parts) == 0 {
		return []mcp.Content{}
	}

	var texts []string
	for _, p := range parts {
		switch v := p.(type) {
		case mcp.TextContent:
			texts = append(texts, v.Text)
		case mcp.ImageContent:
			texts = append(texts, "[Image: content omitted]")
		default:
			data, err := json.Marshal(v)
			if err != nil {
				texts = append(texts, "")
				continue
			}
			texts = append(texts, string(data))
		}
	}

	if len(texts) == 1 {
		if _, ok := parts[0].(mcp.TextContent); ok {
			return texts[0]
		}
	}
	return strings.Join(texts, "\n\n")
}
