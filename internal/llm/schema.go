package llm

import (
	"google.golang.org/genai"
)

// toGeminiSchema converts a JSON Schema map into the genai schema type.
// Keywords genai has no field for (additionalProperties, $schema) are dropped.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		out.Type = geminiType(t)
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if enum := stringList(schema["enum"]); len(enum) > 0 {
		out.Enum = enum
	}
	if req := stringList(schema["required"]); len(req) > 0 {
		out.Required = req
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(prop)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}
	if n, ok := toInt64(schema["minItems"]); ok {
		out.MinItems = &n
	}
	if n, ok := toInt64(schema["maxItems"]); ok {
		out.MaxItems = &n
	}
	if n, ok := toInt64(schema["minLength"]); ok {
		out.MinLength = &n
	}
	if f, ok := toFloat64(schema["minimum"]); ok {
		out.Minimum = &f
	}
	if f, ok := toFloat64(schema["maximum"]); ok {
		out.Maximum = &f
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
