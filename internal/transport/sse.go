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

const protocolVersion = "2024-11-05"

// SSETransport wraps mark3labs/mcp-go's SSE client. Unlike stdio, the wire
// handshake itself is delegated to the SDK; only the contract surface
// (Open/Tools/Call/Close/Health) is ours.
type SSETransport struct {
	cfg config.Transport

	mu     sync.RWMutex
	client client.MCPClient
}

// NewSSETransport builds an SSETransport for the given transport config.
func NewSSETransport(cfg config.Transport) *SSETransport {
	return &SSETransport{cfg: cfg}
}

// defaultUserAgent identifies mcpfed on outbound SSE connections when the
// config doesn't supply its own User-Agent header.
const defaultUserAgent = "mcpfed/1.0"

// Open establishes the SSE stream and performs the MCP initialize exchange.
func (t *SSETransport) Open(ctx context.Context) error {
	headers := t.cfg.Headers
	if _, ok := headers["User-Agent"]; !ok {
		headers = mergedHeaders(headers, "User-Agent", defaultUserAgent)
	}

	opts := []transport.ClientOption{transport.WithHeaders(headers)}

	c, err := client.NewSSEMCPClient(t.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("sse transport: create client: %w", err)
	}

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("sse transport: start: %w", err)
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
		return fmt.Errorf("sse transport: initialize: %w", err)
	}

	t.mu.Lock()
	t.client = c
	t.mu.Unlock()

	logging.Debug("SSETransport", "session established for %s", t.cfg.URL)
	return nil
}

func (t *SSETransport) activeClient() (client.MCPClient, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.client == nil {
		return nil, fmt.Errorf("sse transport: not open")
	}
	return t.client, nil
}

// Tools lists the server's tool catalog.
func (t *SSETransport) Tools(ctx context.Context) ([]ToolDescriptor, error) {
	c, err := t.activeClient()
	if err != nil {
		return nil, err
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("sse transport: list tools: %w", err)
	}

	out := make([]ToolDescriptor, len(result.Tools))
	for i, tool := range result.Tools {
		out[i] = ToolDescriptor{Name: tool.Name, Description: tool.Description, InputSchema: tool.InputSchema}
	}
	return out, nil
}

// Call invokes toolName with args.
func (t *SSETransport) Call(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	c, err := t.activeClient()
	if err != nil {
		return nil, err
	}

	result, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: toolName, Arguments: args},
	})
	if err != nil {
		return nil, fmt.Errorf("sse transport: call tool: %w", err)
	}
	if result.IsError {
		return nil, fmt.Errorf("sse transport: %s", collapseMCPContent(result.Content))
	}
	return collapseMCPContent(result.Content), nil
}

// Health performs a tool re-list within 5s.
func (t *SSETransport) Health(ctx context.Context) bool {
	c, err := t.activeClient()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = c.ListTools(ctx, mcp.ListToolsRequest{})
	return err == nil
}

// Close aborts the SSE stream.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	c := t.client
	t.client = nil
	t.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
