package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaValidator compiles and caches JSON Schema documents for tool
// parameter validation (spec §3 "parameter_schema is a declarative
// validator"). Compilation happens once per distinct schema document and is
// safe for concurrent use across dispatcher goroutines.
type SchemaValidator struct {
	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

// NewSchemaValidator constructs an empty, ready-to-use validator cache.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate checks args against the tool's parameter_schema, returning a flat
// list of human-readable validation errors (empty on success).
func (v *SchemaValidator) Validate(schemaDoc []byte, args map[string]any) ([]string, error) {
	if len(schemaDoc) == 0 {
		return nil, nil
	}
	sch, err := v.compile(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("tools: compile schema: %w", err)
	}
	if err := sch.Validate(map[string]any(args)); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return flattenValidationError(ve), nil
		}
		return []string{err.Error()}, nil
	}
	return nil, nil
}

func (v *SchemaValidator) compile(doc []byte) (*jsonschema.Schema, error) {
	key := string(doc)
	v.mu.Lock()
	defer v.mu.Unlock()
	if sch, ok := v.cache[key]; ok {
		return sch, nil
	}
	var schemaDoc any
	if err := json.Unmarshal(doc, &schemaDoc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	const resource = "mem://tool-schema.json"
	if err := c.AddResource(resource, schemaDoc); err != nil {
		return nil, err
	}
	sch, err := c.Compile(resource)
	if err != nil {
		return nil, err
	}
	v.cache[key] = sch
	return sch, nil
}

func flattenValidationError(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, e.Error())
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
