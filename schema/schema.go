package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents an argument validation failure with the field
// path of the first violation found.
type ValidationError struct {
	Field  string `json:"field"`  // Dotted path of the offending field ("" for the root)
	Reason string `json:"reason"` // Human-readable cause
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Reason)
}

// Schema pairs the raw JSON Schema map (advertised to model providers) with a
// compiled validator. Schemas are immutable after Compile and safe for
// concurrent use.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Compile compiles a raw schema map into a Schema with a compiled validator.
// Returns an error if the schema itself is invalid.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, errors.New("schema: nil schema")
	}

	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	schemaData, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. Use for schemas defined
// at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the underlying map[string]any representation. This is what is
// advertised to model providers as the tool's parameter schema.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks raw arguments against the schema and returns the typed
// argument map. The pipeline:
//
//  1. Unknown top-level keys are rejected.
//  2. Omitted keys with a declared default are filled in.
//  3. Compatible primitives are coerced toward the declared type (numeric
//     strings to numbers, integral floats to integers).
//  4. The compiled validator runs over the result; the first violation is
//     returned as *ValidationError including its field path.
//
// The input map is never mutated. Validating an already-valid, already-typed
// map returns an equal map (idempotence).
func (s *Schema) Validate(args map[string]any) (map[string]any, error) {
	if s == nil || s.compiled == nil {
		return args, nil
	}
	if args == nil {
		args = map[string]any{}
	}

	props, _ := s.raw["properties"].(map[string]any)

	for key := range args {
		if _, known := props[key]; !known {
			return nil, &ValidationError{Field: key, Reason: "unknown field"}
		}
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	for name, p := range props {
		prop, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if _, present := out[name]; !present {
			if def, hasDefault := prop["default"]; hasDefault {
				out[name] = coerce(def, prop)
			}
			continue
		}
		out[name] = coerce(out[name], prop)
	}

	if err := s.compiled.Validate(out); err != nil {
		return nil, asValidationError(err)
	}

	return out, nil
}

// coerce nudges a value toward the declared primitive type where the
// conversion is lossless. Structurally wrong shapes are left untouched so the
// compiled validator reports them.
func coerce(v any, prop map[string]any) any {
	typ, _ := prop["type"].(string)

	switch typ {
	case "number":
		switch n := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		case int:
			return float64(n)
		}
	case "integer":
		switch n := v.(type) {
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return float64(i)
			}
		case int:
			return float64(n)
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
	}

	return v
}

// asValidationError converts a compiled-validator error into the package's
// ValidationError carrying the deepest cause's field path.
func asValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Reason: err.Error()}
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	return &ValidationError{
		Field:  strings.Join(leaf.InstanceLocation, "."),
		Reason: leaf.Error(),
	}
}
