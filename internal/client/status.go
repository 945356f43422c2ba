package client

import "time"

// Status is the lifecycle state of a Managed Client.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusConnected     Status = "connected"
	StatusNoToolsFound  Status = "no_tools_found"
	StatusError         Status = "error"
	StatusDisabled      Status = "disabled"
)

// ToolDescriptor is the aggregator-facing shape of one tool a Managed
// Client exposes.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema interface{} `json:"inputSchema"`
}

// ManagedServerInfo is the serialized snapshot published to the Status
// Cache and returned by the admin `GET /status` surface.
type ManagedServerInfo struct {
	Key           string           `json:"key"`
	Label         string           `json:"label,omitempty"`
	Status        Status           `json:"status"`
	TransportType string           `json:"transportType,omitempty"`
	Tools         []ToolDescriptor `json:"tools"`
	ErrorDetails  string           `json:"errorDetails,omitempty"`
	LastUpdated   time.Time        `json:"lastUpdated"`
	// NextRetryAt is set only for a remote (sse/streamable-http) client
	// parked in status=error after UnreachableThreshold consecutive
	// failed initialization cycles: the Poller won't re-dial it before
	// this time.
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
}
