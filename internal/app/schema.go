package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// SchemaValidationError describes a deterministic schema-validation failure.
type SchemaValidationError struct {
	Path    string
	Message string
}

// Error renders the schema-validation failure.
func (e SchemaValidationError) Error() string {
	path := strings.TrimSpace(e.Path)
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("%s: %s", path, e.Message)
}

// Schema is the JSON Schema subset used to constrain model replies.
// It is sent with the request and used again to validate the reply.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	MinLength  *int               `json:"minLength,omitempty"`
}

var supportedSchemaTypes = []string{"object", "array", "string", "number", "integer", "boolean"}

// compileSchema decodes and checks a schema document.
func compileSchema(raw string) (*Schema, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	var schema Schema
	if err := dec.Decode(&schema); err != nil {
		return nil, SchemaValidationError{Path: "$", Message: fmt.Sprintf("invalid schema: %v", err)}
	}
	if err := schema.check("$"); err != nil {
		return nil, err
	}
	return &schema, nil
}

func mustCompileSchema(raw string) *Schema {
	schema, err := compileSchema(raw)
	if err != nil {
		panic(err)
	}
	return schema
}

// check validates one schema node recursively and canonicalizes its type.
func (s *Schema) check(path string) error {
	s.Type = strings.TrimSpace(strings.ToLower(s.Type))
	if !slices.Contains(supportedSchemaTypes, s.Type) {
		return SchemaValidationError{Path: path + ".type", Message: fmt.Sprintf("unsupported type %q", s.Type)}
	}
	if s.MinLength != nil && *s.MinLength < 0 {
		return SchemaValidationError{Path: path + ".minLength", Message: "must be >= 0"}
	}
	for idx, field := range s.Required {
		if _, ok := s.Properties[field]; !ok {
			return SchemaValidationError{Path: fmt.Sprintf("%s.required[%d]", path, idx), Message: fmt.Sprintf("unknown property %q", field)}
		}
	}
	for _, key := range sortedKeys(s.Properties) {
		child := s.Properties[key]
		if child == nil {
			return SchemaValidationError{Path: path + ".properties." + key, Message: "must be an object"}
		}
		if err := child.check(path + ".properties." + key); err != nil {
			return err
		}
	}
	if s.Type == "array" {
		if s.Items == nil {
			return SchemaValidationError{Path: path + ".items", Message: "array schema requires items"}
		}
		return s.Items.check(path + ".items")
	}
	return nil
}

// ValidatePayload validates raw JSON bytes against the schema.
func (s *Schema) ValidatePayload(payload []byte) error {
	if s == nil {
		return nil
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return SchemaValidationError{Path: "$", Message: "empty payload"}
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return SchemaValidationError{Path: "$", Message: fmt.Sprintf("invalid JSON payload: %v", err)}
	}
	return s.validate(decoded, "$")
}

func (s *Schema) validate(value any, path string) error {
	switch s.Type {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return SchemaValidationError{Path: path, Message: "expected object"}
		}
		for _, key := range s.Required {
			if _, exists := obj[key]; !exists {
				return SchemaValidationError{Path: path, Message: fmt.Sprintf("missing required field %q", key)}
			}
		}
		for _, key := range sortedKeys(obj) {
			child, ok := s.Properties[key]
			if !ok {
				continue
			}
			if err := child.validate(obj[key], path+"."+key); err != nil {
				return err
			}
		}
		return nil
	case "array":
		items, ok := value.([]any)
		if !ok {
			return SchemaValidationError{Path: path, Message: "expected array"}
		}
		for idx, item := range items {
			if err := s.Items.validate(item, fmt.Sprintf("%s[%d]", path, idx)); err != nil {
				return err
			}
		}
		return nil
	case "string":
		text, ok := value.(string)
		if !ok {
			return SchemaValidationError{Path: path, Message: "expected string"}
		}
		if s.MinLength != nil && len(strings.TrimSpace(text)) < *s.MinLength {
			return SchemaValidationError{Path: path, Message: fmt.Sprintf("string length must be >= %d", *s.MinLength)}
		}
		return nil
	case "number":
		if _, ok := value.(float64); !ok {
			return SchemaValidationError{Path: path, Message: "expected number"}
		}
		return nil
	case "integer":
		number, ok := value.(float64)
		if !ok || number != float64(int64(number)) {
			return SchemaValidationError{Path: path, Message: "expected integer"}
		}
		return nil
	case "boolean":
		if _, ok := value.(bool); !ok {
			return SchemaValidationError{Path: path, Message: "expected boolean"}
		}
		return nil
	default:
		return SchemaValidationError{Path: path, Message: fmt.Sprintf("unsupported type %q", s.Type)}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// stripCodeFences removes a markdown code fence wrapping a model reply.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(strings.TrimPrefix(text, "```"), "json")
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
