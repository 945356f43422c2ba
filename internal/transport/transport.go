// Package transport implements the three MCP wire drivers (stdio, SSE,
// streamable-HTTP) behind one common interface.
package transport

import (
	"context"
	"fmt"

	"mcpfed/internal/config"
)

// ToolDescriptor is the transport-agnostic shape of one tool entry,
// independent of whether it came from stdiorpc or mark3labs/mcp-go.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema interface{}
}

// Transport is the common contract every driver implements: open a
// session, enumerate tools, invoke one, tear down, and report health.
type Transport interface {
	Open(ctx context.Context) error
	Tools(ctx context.Context) ([]ToolDescriptor, error)
	Call(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error)
	Close() error
	Health(ctx context.Context) bool
}

// NewTransport builds the appropriate driver for cfg.Transport.Type.
func NewTransport(cfg config.ServerConfig) (Transport, error) {
	switch cfg.Transport.Type {
	case config.TransportStdio:
		return NewStdioTransport(cfg.Transport), nil
	case config.TransportSSE:
		return NewSSETransport(cfg.Transport), nil
	case config.TransportStreamableHTTP:
		return NewStreamableHTTPTransport(cfg.Transport), nil
	default:
		return nil, fmt.Errorf("transport: unsupported type %q", cfg.Transport.Type)
	}
}
