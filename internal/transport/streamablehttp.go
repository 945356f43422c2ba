package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"mcpfed/internal/config"
	"mcpfed/pkg/logging"
)

// StreamableHTTPTransport wraps mark3labs/mcp-go's streamable-HTTP client.
// A supplied sessionId makes the session sticky; otherwise
// the SDK negotiates an anonymous session.
type StreamableHTTPTransport struct {
	cfg config.Transport

	mu     sync.RWMutex
	client client.MCPClient
}

// NewStreamableHTTPTransport builds a StreamableHTTPTransport for the given
// transport config.
func NewStreamableHTTPTransport(cfg config.Transport) *StreamableHTTPTransport {
	return &StreamableHTTPTransport{cfg: cfg}
}

// Open establishes the HTTP session and performs the MCP initialize
// exchange.
func (t *StreamableHTTPTransport) Open(ctx context.Context) error {
	headers := t.cfg.Headers
	if t.cfg.SessionID != "" {
		headers = mergedHeaders(headers, "Mcp-Session-Id", t.cfg.SessionID)
	}

	var opts []transport.StreamableHTTPCOption
	if len(headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(headers))
	}

	c, err := client.NewStreamableHttpClient(t.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("streamable-http transport: create client: %w", err)
	}

	if _, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo:      mcp.Implementation{Name: clientName, Version: "1.0.0"},
			Capabilities:    mcp.ClientCapabilities{},
		},
	}); err != nil {
		c.Close()
		return fmt.Errorf("streamable-http transport: initialize: %w", err)
	}

	t.mu.Lock()
	t.client = c
	t.mu.Unlock()

	logging.Debug("StreamableHTTPTransport", "session established for %s", t.cfg.URL)
	return nil
}

// mergedHeaders returns a copy of base with key/value added, without
// mutating the caller's map.
func mergedHeaders(base map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[key] = value
	return out
}

func (t *StreamableHTTPTransport) activeClient() (client.MCPClient, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.client == nil {
		return nil, fmt.Errorf("streamable-http transport: not open")
	}
	return t.client, nil
}

// Tools lists the server's tool catalog.
func (t *StreamableHTTPTransport) Tools(ctx context.Context) ([]ToolDescriptor, error) {
	c, err := t.activeClient()
	if err != nil {
		return nil, err
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("streamable-http transport: list tools: %w", err)
	}

	out := make([]ToolDescriptor, len(result.Tools))
	for i, tool := range result.Tools {
		out[i] = ToolDescriptor{Name: tool.Name, Description: tool.Description, InputSchema: tool.InputSchema}
	}
	return out, nil
}

// Call invokes toolName with args.
func (t *StreamableHTTPTransport) Call(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	c, err := t.activeClient()
	if err != nil {
		return nil, err
	}

	result, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: toolName, Arguments: args},
	})
	if err != nil {
		return nil, fmt.Errorf("streamable-http transport: call tool: %w", err)
	}
	if result.IsError {
		return nil, fmt.Errorf("streamable-http transport: %s", collapseMCPContent(result.Content))
	}
	return collapseMCPContent(result.Content), nil
}

// Health performs a tool re-list within 5s.
func (t *StreamableHTTPTransport) Health(ctx context.Context) bool {
	c, err := t.activeClient()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = c.ListTools(ctx, mcp.ListToolsRequest{})
	return err == nil
}

// Close tears down the HTTP session.
func (t *StreamableHTTPTransport) Close() error {
	t.mu.Lock()
	c := t.client
	t.client = nil
	t.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
