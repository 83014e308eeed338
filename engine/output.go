package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// outputSchemaCache compiles an agent's output_schema once and reuses it
// across turns; unlike tool parameter schemas (always objects), an output
// schema can constrain any JSON value, so this does not share
// tools.SchemaValidator's map[string]any-only Validate signature.
var outputSchemaCache sync.Map // map[string]*jsonschema.Schema, keyed by schema doc

func compileOutputSchema(doc []byte) (*jsonschema.Schema, error) {
	key := string(doc)
	if cached, ok := outputSchemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	var raw any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("engine: invalid output_schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	const resource = "mem://output-schema.json"
	if err := c.AddResource(resource, raw); err != nil {
		return nil, err
	}
	sch, err := c.Compile(resource)
	if err != nil {
		return nil, err
	}
	outputSchemaCache.Store(key, sch)
	return sch, nil
}

// validateOutputSchema parses content as JSON and checks it against the
// agent's output_schema (spec §4.1 "if agent.output_schema: parse; on
// failure emit decode_error; Error(DecodeError)").
func validateOutputSchema(schemaDoc []byte, content string) error {
	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return fmt.Errorf("output does not parse as JSON: %w", err)
	}
	sch, err := compileOutputSchema(schemaDoc)
	if err != nil {
		return err
	}
	if err := sch.Validate(decoded); err != nil {
		return err
	}
	return nil
}
