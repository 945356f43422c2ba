// Package invocation implements the Invocation Wrapper: the single
// choke point every tool call passes through between the Tool
// Aggregator and a Managed Client. It derives a callId, optionally
// validates arguments against a registered JSON Schema, dispatches with
// a transport-appropriate timeout, triggers Response Normalization on
// oversized string results, and records metrics for every outcome.
//
// Failures are never panics: every error path returns a *CallError
// value describing the classified failure, matching the calling
// runtime's expectation of a structured result rather than an
// exception.
package invocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mcpfed/internal/client"
	"mcpfed/internal/config"
	"mcpfed/internal/metrics"
	"mcpfed/internal/normalizer"
	"mcpfed/internal/registry"
	"mcpfed/pkg/logging"
)

// NormalizeThreshold is the minimum string result length that triggers
// Response Normalization.
const NormalizeThreshold = 5000

// DefaultStdioInvokeTimeout bounds a dispatch against a stdio-backed
// Managed Client.
const DefaultStdioInvokeTimeout = 90 * time.Second

// DefaultNetworkInvokeTimeout bounds a dispatch against an SSE or
// streamable-HTTP backed Managed Client.
const DefaultNetworkInvokeTimeout = 30 * time.Second

// CallError is the uniform error shape returned (never thrown) by
// Invoke. Kind is one of the client.ErrorKind values;
// "schema_validation_error" is the one kind that originates in this package
// rather than in a Managed Client.
type CallError struct {
	Error     bool   `json:"error"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	ToolName  string `json:"toolName"`
	ServerKey string `json:"serverKey"`
}

func newCallError(kind, serverKey, toolName, message string) *CallError {
	return &CallError{Error: true, Kind: kind, Message: message, ToolName: toolName, ServerKey: serverKey}
}

// Wrapper is the process-wide Invocation Wrapper. It holds the registry
// of live Managed Clients, an optional per-tool schema validator, and
// the metrics sink every call reports to.
type Wrapper struct {
	registry  *registry.Registry
	metrics   metrics.Sink
	validator *SchemaRegistry
}

// New builds a Wrapper over reg. sink may be nil.
func New(reg *registry.Registry, sink metrics.Sink) *Wrapper {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Wrapper{registry: reg, metrics: sink, validator: NewSchemaRegistry()}
}

// RegisterSchema compiles schemaJSON (a JSON Schema document) and binds
// it to exposedToolName, so future Invoke calls for that tool validate
// args before dispatch. Passing an empty schemaJSON clears any prior
// validator for the tool.
func (w *Wrapper) RegisterSchema(exposedToolName, schemaJSON string) error {
	return w.validator.Register(exposedToolName, schemaJSON)
}

// Invoke dispatches one call. callID is derived automatically when
// empty. A nil CallError means success; otherwise it describes the
// classified failure.
func (w *Wrapper) Invoke(ctx context.Context, exposedToolName, serverKey, toolName string, args map[string]interface{}, callID string) (interface{}, *CallError) {
	startedAt := time.Now()
	if callID == "" {
		callID = uuid.NewString()
	}

	if err := w.validator.Validate(exposedToolName, args); err != nil {
		w.metrics.RecordInvocationError(serverKey, toolName, string(client.ErrKindSchemaValidationError))
		logging.Warn("Invocation", "callId=%s schema validation failed for %s: %v", callID, exposedToolName, err)
		return nil, newCallError(string(client.ErrKindSchemaValidationError), serverKey, toolName, err.Error())
	}

	mc, ok := w.registry.Get(serverKey)
	if !ok {
		w.metrics.RecordInvocationError(serverKey, toolName, string(client.ErrKindConnectionError))
		return nil, newCallError(string(client.ErrKindConnectionError), serverKey, toolName, "server not registered")
	}

	info := mc.Status(ctx)
	timeoutCtx, cancel := context.WithTimeout(ctx, timeoutFor(info.TransportType))
	defer cancel()

	result, err := mc.Invoke(timeoutCtx, toolName, args)
	duration := time.Since(startedAt)
	if err != nil {
		kind := classifyInvokeError(timeoutCtx, err)
		w.metrics.RecordInvocationError(serverKey, toolName, kind)
		logging.Warn("Invocation", "callId=%s %s.%s failed after %s: %v", callID, serverKey, toolName, duration, err)
		return nil, newCallError(kind, serverKey, toolName, err.Error())
	}

	outputKind := kindOf(result)
	outputBytes := sizeOf(result)

	if text, ok := result.(string); ok && len(text) >= NormalizeThreshold {
		normalized := normalizer.Normalize(toolName, text)
		w.metrics.RecordNormalization(toolName, len(text), sizeOf(normalized))
		result = normalized
		outputKind = kindOf(result)
		outputBytes = sizeOf(result)
	}

	w.metrics.RecordInvocation(serverKey, toolName, duration, true, outputBytes, outputKind)
	return result, nil
}

// classifyInvokeError maps a Managed Client failure to one of the
// Invocation Wrapper's error kinds. A *client.Error already carries its
// own classification; anything else is attributed to the call's own
// context (deadline exceeded → timeout, canceled → aborted) or, failing
// that, treated as a generic execution error.
func classifyInvokeError(ctx context.Context, err error) string {
	var clientErr *client.Error
	if errors.As(err, &clientErr) {
		return string(clientErr.Kind)
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return string(client.ErrKindTimeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return string(client.ErrKindAborted)
	default:
		return string(client.ErrKindExecutionError)
	}
}

func timeoutFor(transportType string) time.Duration {
	if config.TransportType(transportType) == config.TransportStdio {
		return DefaultStdioInvokeTimeout
	}
	return DefaultNetworkInvokeTimeout
}

// kindOf reports the outputKind metrics label for a dispatch result: the
// "type" field of a structured map result, or a typeof-style label for
// anything else.
func kindOf(v interface{}) string {
	if k, ok := v.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	if m, ok := v.(map[string]interface{}); ok {
		if t, ok := m["type"].(string); ok {
			return t
		}
		return "object"
	}
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []interface{}:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// sizeOf reports outputBytes: a string's length, or the length of its
// JSON-serialized form for anything else.
func sizeOf(v interface{}) int {
	if s, ok := v.(string); ok {
		return len(s)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(encoded)
}
