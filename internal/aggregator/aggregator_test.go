package aggregator

import (
	"context"
	"encoding/json"
	"testing"

	"mcpfed/internal/client"
	"mcpfed/internal/config"
	"mcpfed/internal/registry"
	"mcpfed/internal/transport"
)

type fakeTransport struct {
	tools []transport.ToolDescriptor
}

func (f *fakeTransport) Open(ctx context.Context) error { return nil }
func (f *fakeTransport) Tools(ctx context.Context) ([]transport.ToolDescriptor, error) {
	return f.tools, nil
}
func (f *fakeTransport) Call(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	return nil, nil
}
func (f *fakeTransport) Close() error                    { return nil }
func (f *fakeTransport) Health(ctx context.Context) bool { return true }

func enabledCfg() config.ServerConfig {
	return config.ServerConfig{
		Enabled:   true,
		Transport: config.Transport{Type: config.TransportStdio, Command: "fake"},
	}
}

func disabledCfg() config.ServerConfig {
	return config.ServerConfig{
		Enabled:   false,
		Transport: config.Transport{Type: config.TransportStdio, Command: "fake"},
	}
}

func registerFake(t *testing.T, reg *registry.Registry, key string) {
	t.Helper()
	reg.Register(key, enabledCfg())
	mc, ok := reg.Get(key)
	if !ok {
		t.Fatalf("expected %s to be registered", key)
	}
	// Status() awaits initialization, settling the Managed Client against
	// the fake transport before any test reads its tool catalog.
	mc.Status(context.Background())
}

func newRegistryWithFactory(tools map[string][]transport.ToolDescriptor) *registry.Registry {
	return registry.NewForTesting(func(key string, cfg config.ServerConfig) *client.ManagedClient {
		return client.NewForTesting(key, cfg, nil, func(config.ServerConfig) (transport.Transport, error) {
			return &fakeTransport{tools: tools[key]}, nil
		})
	})
}

func TestBuildCatalogIncludesConnectedServerTools(t *testing.T) {
	reg := newRegistryWithFactory(map[string][]transport.ToolDescriptor{
		"s1": {{Name: "ping", Description: "pings"}, {Name: "echo"}},
	})
	registerFake(t, reg, "s1")

	catalog := BuildCatalog(context.Background(), reg)
	if len(catalog) != 2 {
		t.Fatalf("expected 2 tools, got %d: %+v", len(catalog), catalog)
	}
	names := map[string]bool{}
	for _, tool := range catalog {
		names[tool.Name] = true
		if tool.ServerKey != "s1" {
			t.Fatalf("expected ServerKey=s1, got %s", tool.ServerKey)
		}
	}
	if !names["s1_ping"] || !names["s1_echo"] {
		t.Fatalf("expected s1_ping and s1_echo, got %v", names)
	}
}

func TestBuildCatalogDedupesDuplicateToolNamesWithinAServer(t *testing.T) {
	reg := newRegistryWithFactory(map[string][]transport.ToolDescriptor{
		"s1": {{Name: "ping", Description: "first"}, {Name: "ping", Description: "second"}},
	})
	registerFake(t, reg, "s1")

	catalog := BuildCatalog(context.Background(), reg)
	if len(catalog) != 1 {
		t.Fatalf("expected exactly 1 deduped tool, got %d", len(catalog))
	}
	if catalog[0].Description != "first" {
		t.Fatalf("expected first-wins, got description %q", catalog[0].Description)
	}
}

func TestBuildCatalogSkipsServerWithNoTools(t *testing.T) {
	reg := newRegistryWithFactory(map[string][]transport.ToolDescriptor{
		"s1": nil,
	})
	registerFake(t, reg, "s1")

	catalog := BuildCatalog(context.Background(), reg)
	if len(catalog) != 0 {
		t.Fatalf("expected empty catalog for a server with no tools, got %v", catalog)
	}
}

func TestBuildCatalogSkipsDisabledServers(t *testing.T) {
	reg := registry.New(nil)
	reg.Register("s1", disabledCfg())

	catalog := BuildCatalog(context.Background(), reg)
	if len(catalog) != 0 {
		t.Fatalf("expected empty catalog for a disabled server, got %v", catalog)
	}
}

func TestBuildCatalogNormalizesInputSchemaPerTool(t *testing.T) {
	reg := newRegistryWithFactory(map[string][]transport.ToolDescriptor{
		"s1": {{Name: "search", InputSchema: nil}},
	})
	registerFake(t, reg, "s1")

	catalog := BuildCatalog(context.Background(), reg)
	if len(catalog) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(catalog))
	}
	if catalog[0].InputSchema["type"] != "object" {
		t.Fatalf("expected normalized schema type=object, got %v", catalog[0].InputSchema)
	}
}

func TestExposedNameJoinsServerKeyAndToolName(t *testing.T) {
	if got := ExposedName("srv", "ping"); got != "srv_ping" {
		t.Fatalf("expected srv_ping, got %s", got)
	}
}

func TestNormalizeInputSchemaMissingBecomesEmptyObject(t *testing.T) {
	got := NormalizeInputSchema(nil)
	want := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	assertSchemaEqual(t, got, want)
}

func TestNormalizeInputSchemaNonObjectBecomesEmptyObject(t *testing.T) {
	got := NormalizeInputSchema("not a schema")
	want := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	assertSchemaEqual(t, got, want)
}

func TestNormalizeInputSchemaWrapsNonObjectTypeWithProperties(t *testing.T) {
	raw := map[string]interface{}{
		"type":       "array",
		"properties": map[string]interface{}{"x": map[string]interface{}{"type": "string"}},
	}
	got := NormalizeInputSchema(raw)
	if got["type"] != "object" {
		t.Fatalf("expected wrapped type=object, got %v", got["type"])
	}
}

func TestNormalizeInputSchemaCoercesPropertyMissingType(t *testing.T) {
	raw := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"description": "search text"},
		},
	}
	got := NormalizeInputSchema(raw)
	props := got["properties"].(map[string]interface{})
	query := props["query"].(map[string]interface{})
	if query["type"] != "string" {
		t.Fatalf("expected coerced type=string, got %v", query["type"])
	}
	if query["description"] != "search text" {
		t.Fatalf("expected description to survive coercion")
	}
}

func TestNormalizeInputSchemaMalformedPropertyBecomesStringPlaceholder(t *testing.T) {
	raw := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"bad": "not-an-object"},
	}
	got := NormalizeInputSchema(raw)
	props := got["properties"].(map[string]interface{})
	bad := props["bad"].(map[string]interface{})
	if bad["type"] != "string" {
		t.Fatalf("expected placeholder type=string, got %v", bad["type"])
	}
	if bad["description"] != "Malformed schema for bad" {
		t.Fatalf("expected malformed-schema description, got %v", bad["description"])
	}
}

func TestNormalizeInputSchemaAcceptsRawJSONMessage(t *testing.T) {
	raw := json.RawMessage(`{"type":"object","properties":{"n":{"type":"number"}}}`)
	got := NormalizeInputSchema(raw)
	props := got["properties"].(map[string]interface{})
	n := props["n"].(map[string]interface{})
	if n["type"] != "number" {
		t.Fatalf("expected preserved type=number, got %v", n["type"])
	}
}

func TestNormalizeInputSchemaAcceptsArbitraryStruct(t *testing.T) {
	type schema struct {
		Type       string                            `json:"type"`
		Properties map[string]map[string]interface{} `json:"properties"`
	}
	raw := schema{Type: "object", Properties: map[string]map[string]interface{}{
		"q": {"type": "string"},
	}}
	got := NormalizeInputSchema(raw)
	if got["type"] != "object" {
		t.Fatalf("expected type=object, got %v", got["type"])
	}
}

func assertSchemaEqual(t *testing.T, got, want map[string]interface{}) {
	t.Helper()
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Fatalf("schema mismatch:\n got:  %s\n want: %s", gotJSON, wantJSON)
	}
}
