// Package stdiorpc implements the newline-delimited JSON-RPC 2.0 framing
// used to talk to a stdio MCP child process directly, bypassing mcp-go's
// stdio client so the exact outgoing frame sequence (initialize →
// notifications/initialized → tools/call) stays under our control.
package stdiorpc

import (
	"encoding/json"
	"fmt"
	"strings"
)

const protocolVersion = "2024-11-05"

// request is an outgoing JSON-RPC request or notification. Notifications
// omit ID.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// response is an incoming JSON-RPC message. Only requests we issued carry a
// matching ID; server-initiated notifications (no ID) are ignored by the
// correlation table.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return e.Message
}

type clientCapabilities struct {
	Tools struct{} `json:"tools"`
}

type implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    clientCapabilities `json:"capabilities"`
	ClientInfo      implementation     `json:"clientInfo"`
}

func initializeRequest(clientName string) request {
	return request{
		JSONRPC: "2.0",
		ID:      "init",
		Method:  "initialize",
		Params: initializeParams{
			ProtocolVersion: protocolVersion,
			ClientInfo:      implementation{Name: clientName, Version: "1.0.0"},
		},
	}
}

func initializedNotification() request {
	return request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
		Params:  struct{}{},
	}
}

type toolsListParams struct{}

func toolsListRequest(id string) request {
	return request{JSONRPC: "2.0", ID: id, Method: "tools/list", Params: toolsListParams{}}
}

type callToolParams struct {
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments"`
}

func toolsCallRequest(id, toolName string, args interface{}) request {
	return request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params:  callToolParams{Name: toolName, Arguments: args},
	}
}

// ToolDescriptor is the wire shape of one entry in a tools/list result.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

type toolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// contentPart is one element of a tools/call result's content array. Only
// the fields relevant to collapsing are decoded; unrecognized types are
// re-marshaled verbatim.
type contentPart struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	raw  json.RawMessage `json:"-"`
}

func (c *contentPart) UnmarshalJSON(data []byte) error {
	type alias contentPart
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = contentPart(a)
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

type callToolResult struct {
	Content []contentPart `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// collapseContent flattens a tools/call content array: text parts
// concatenate with a double-newline separator, image parts emit a
// placeholder, anything else is JSON-stringified. A single text part
// unwraps to a bare string; zero parts returns the raw content slice.
func collapseContent(parts []contentPart) interface{} {
	if len(parts) == 0 {
		return []contentPart{}
	}

	var texts []string
	for _, p := range parts {
		switch p.Type {
		case "text":
			texts = append(texts, p.Text)
		case "image":
			texts = append(texts, "[Image: content omitted]")
		default:
			texts = append(texts, string(p.raw))
		}
	}

	if len(texts) == 1 && parts[0].Type == "text" {
		return texts[0]
	}
	return strings.Join(texts, "\n\n")
}

// CallError is returned by Conn.Call when the server reported an execution
// error rather than a transport failure.
type CallError struct {
	Message string
}

func (e *CallError) Error() string {
	return e.Message
}

func newCallError(format string, args ...interface{}) *CallError {
	return &CallError{Message: fmt.Sprintf(format, args...)}
}
