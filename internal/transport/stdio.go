package transport

import (
	"context"
	"fmt"
	"sync"

	"mcpfed/internal/config"
	"mcpfed/internal/stdiorpc"
	"mcpfed/pkg/logging"
)

const clientName = "mcpfed"

// StdioTransport spawns a child process and speaks hand-framed JSON-RPC to
// it via internal/stdiorpc, rather than mark3labs/mcp-go's stdio client, so
// the exact outgoing frame sequence stays under our control.
type StdioTransport struct {
	cfg config.Transport

	mu   sync.RWMutex
	conn *stdiorpc.Conn
}

// NewStdioTransport builds a StdioTransport for the given transport config.
func NewStdioTransport(cfg config.Transport) *StdioTransport {
	return &StdioTransport{cfg: cfg}
}

// Open spawns the child process and performs the initialize handshake.
func (t *StdioTransport) Open(ctx context.Context) error {
	conn, err := stdiorpc.Dial(ctx, t.cfg.Command, t.cfg.Args, t.cfg.Env, t.cfg.Cwd)
	if err != nil {
		return fmt.Errorf("stdio transport: spawn %s: %w", t.cfg.Command, err)
	}

	if err := conn.Initialize(ctx, clientName); err != nil {
		conn.Close()
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	logging.Debug("StdioTransport", "session established for %s", t.cfg.Command)
	return nil
}

// Tools lists the child's tool catalog.
func (t *StdioTransport) Tools(ctx context.Context) ([]ToolDescriptor, error) {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("stdio transport: not open")
	}

	descs, err := conn.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ToolDescriptor, len(descs))
	for i, d := range descs {
		out[i] = ToolDescriptor{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
	}
	return out, nil
}

// Call invokes toolName with args and returns the collapsed result.
func (t *StdioTransport) Call(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("stdio transport: not open")
	}

	callCtx, cancel := context.WithTimeout(ctx, stdiorpc.CallTimeout)
	defer cancel()
	return conn.Call(callCtx, toolName, args)
}

// Health reports whether the child process is still usable.
func (t *StdioTransport) Health(ctx context.Context) bool {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Health(ctx)
}

// Close terminates the child process.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
