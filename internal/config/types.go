// Package config loads and normalizes the MCP federation manager's server
// configuration and watches it for changes.
package config

import "encoding/json"

// TransportType identifies which of the three supported wire transports a
// server uses.
type TransportType string

const (
	TransportStdio          TransportType = "stdio"
	TransportSSE            TransportType = "sse"
	TransportStreamableHTTP TransportType = "streamable-http"
)

// Transport is the normalized, tagged-variant transport configuration for one
// server. Only the fields relevant to Type are meaningful; the loader copies
// an explicit transport block as given and does not clear the others.
type Transport struct {
	Type TransportType `json:"type"`

	// stdio
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Stderr  string            `json:"stderr,omitempty"`

	// sse / streamable-http
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
}

// RetryConfig overrides the Managed Client's default backoff schedule.
type RetryConfig struct {
	MaxRetries        int     `json:"maxRetries,omitempty"`
	BaseDelayMs       int     `json:"baseDelayMs,omitempty"`
	MaxDelayMs        int     `json:"maxDelayMs,omitempty"`
	BackoffMultiplier float64 `json:"backoffMultiplier,omitempty"`
}

// ServerConfig is the normalized, canonical shape of one entry in
// AppConfig.MCPServers. Raw/legacy JSON is normalized into this shape by
// Normalize before anything else inspects it.
type ServerConfig struct {
	Label     string                     `json:"label,omitempty"`
	Enabled   bool                       `json:"enabled"`
	Transport Transport                  `json:"transport"`
	Schemas   map[string]json.RawMessage `json:"schemas,omitempty"`
	Retry     *RetryConfig               `json:"retry,omitempty"`
	TimeoutMs int                        `json:"timeoutMs,omitempty"`
}

// AppConfig is the top-level parsed configuration document.
type AppConfig struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// rawServerConfig captures every field, canonical and legacy, that may
// appear in a server's JSON object, prior to normalization.
type rawServerConfig struct {
	Label    string `json:"label,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Disabled *bool  `json:"disabled,omitempty"`

	Transport *rawTransport `json:"transport,omitempty"`

	// legacy stdio fallback
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`

	// legacy sse fallback
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// deprecated transportType + httpSettings
	TransportType string           `json:"transportType,omitempty"`
	HTTPSettings  *rawHTTPSettings `json:"httpSettings,omitempty"`

	Schemas   map[string]json.RawMessage `json:"schemas,omitempty"`
	Retry     *RetryConfig               `json:"retry,omitempty"`
	TimeoutMs int                        `json:"timeoutMs,omitempty"`
}

type rawTransport struct {
	Type      string            `json:"type,omitempty"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	Stderr    string            `json:"stderr,omitempty"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
}

type rawHTTPSettings struct {
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type rawAppConfig struct {
	MCPServers map[string]rawServerConfig `json:"mcpServers"`
}
