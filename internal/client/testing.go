package client

import (
	"mcpfed/internal/config"
	"mcpfed/internal/metrics"
	"mcpfed/internal/transport"
)

// NewForTesting builds a ManagedClient against a caller-supplied
// transport factory, for other packages' tests that need a working
// Managed Client without spawning a real process or dialing a real
// network endpoint.
func NewForTesting(key string, cfg config.ServerConfig, sink metrics.Sink, factory func(config.ServerConfig) (transport.Transport, error)) *ManagedClient {
	return newWithTransportFactory(key, cfg, sink, factory)
}
