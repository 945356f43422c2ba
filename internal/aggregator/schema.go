package aggregator

import (
	"encoding/json"
	"fmt"
)

// emptySchema is substituted whenever a tool's inputSchema is missing or
// not representable as a JSON object.
func emptySchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

// toSchemaMap normalizes the many concrete shapes a Transport can hand
// back for inputSchema (json.RawMessage from the hand-framed stdio
// driver, an mcp.ToolInputSchema struct from mark3labs/mcp-go, or
// already a plain map) into a single map[string]interface{}, without
// this package needing to import either driver's types.
func toSchemaMap(raw interface{}) (map[string]interface{}, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		return v, true
	case json.RawMessage:
		return unmarshalObject(v)
	case []byte:
		return unmarshalObject(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return unmarshalObject(encoded)
	}
}

func unmarshalObject(data []byte) (map[string]interface{}, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}

// NormalizeInputSchema applies the parameter normalization rules to one
// tool's raw inputSchema:
//   - missing or not a JSON object                      -> {type:"object", properties:{}}
//   - an object whose type isn't "object" but has properties -> wrapped as {type:"object", properties}
//   - each property lacking a string "type"              -> coerced to carry one
func NormalizeInputSchema(raw interface{}) map[string]interface{} {
	m, ok := toSchemaMap(raw)
	if !ok {
		return emptySchema()
	}

	typeVal, _ := m["type"].(string)
	props, hasProps := m["properties"]

	if typeVal != "object" {
		if !hasProps {
			return emptySchema()
		}
		m = map[string]interface{}{"type": "object", "properties": props}
	}

	propsMap, ok := m["properties"].(map[string]interface{})
	if !ok || propsMap == nil {
		m["properties"] = map[string]interface{}{}
		return m
	}

	normalized := make(map[string]interface{}, len(propsMap))
	for name, val := range propsMap {
		normalized[name] = normalizeProperty(name, val)
	}
	m["properties"] = normalized
	return m
}

// normalizeProperty ensures one property schema carries a string "type":
// an object missing one is coerced to "string"; a non-object value is
// replaced outright with a placeholder string schema.
func normalizeProperty(name string, val interface{}) interface{} {
	obj, ok := val.(map[string]interface{})
	if !ok {
		return map[string]interface{}{
			"type":        "string",
			"description": fmt.Sprintf("Malformed schema for %s", name),
		}
	}
	if _, hasType := obj["type"].(string); hasType {
		return obj
	}

	coerced := make(map[string]interface{}, len(obj)+1)
	for k, v := range obj {
		coerced[k] = v
	}
	coerced["type"] = "string"
	return coerced
}
