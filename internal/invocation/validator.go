package invocation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaRegistry holds one compiled JSON Schema per exposed tool name.
// Tools with no registered schema are never validated; this mirrors the
// optional, opt-in nature of the Zod-like validation the wrapper
// supports.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewSchemaRegistry builds an empty SchemaRegistry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaJSON and binds it to exposedToolName. Passing
// an empty schemaJSON removes any existing validator for the tool.
func (r *SchemaRegistry) Register(exposedToolName, schemaJSON string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(schemaJSON) == "" {
		delete(r.schemas, exposedToolName)
		return nil
	}

	compiler := jsonschema.NewCompiler()
	resourceName := exposedToolName + ".json"
	if err := compiler.AddResource(resourceName, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("invocation: invalid schema for %s: %w", exposedToolName, err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("invocation: schema compilation failed for %s: %w", exposedToolName, err)
	}

	r.schemas[exposedToolName] = schema
	return nil
}

// Validate checks args against the schema registered for
// exposedToolName. A tool with no registered schema always passes.
func (r *SchemaRegistry) Validate(exposedToolName string, args map[string]interface{}) error {
	r.mu.RLock()
	schema, ok := r.schemas[exposedToolName]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	// jsonschema validates decoded JSON values, so args (already a Go
	// map) round-trips through json.Marshal/Unmarshal to get the same
	// numeric/interface{} representation a parsed JSON document would
	// have.
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	return schema.Validate(decoded)
}
