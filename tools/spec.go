package tools

import "encoding/json"

// AnyJSONCodec is a pre-built codec for the `any` type, used when a tool's
// payload or result type is not known at compile time.
var AnyJSONCodec = JSONCodec[any]{
	ToJSON: json.Marshal,
	FromJSON: func(data []byte) (any, error) {
		if len(data) == 0 {
			return nil, nil
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	},
}

// JSONCodec serializes and deserializes strongly typed values to and from
// JSON, letting callers attach a concrete Go type to a tool's schema without
// the dispatcher itself needing to know it.
type JSONCodec[T any] struct {
	ToJSON   func(T) ([]byte, error)
	FromJSON func([]byte) (T, error)
}

// TypeSpec describes the payload or result schema for a tool, independent of
// the dispatcher's runtime map[string]any view of arguments.
type TypeSpec struct {
	// Name is the Go identifier associated with the type, used in generated
	// documentation and error messages.
	Name string
	// Schema is the JSON Schema document describing the type.
	Schema []byte
	// ExampleJSON is a canonical example payload for the type. The dispatcher
	// does not read it; validation-error envelopes carry only the schema
	// validator's messages.
	ExampleJSON []byte
	// Codec serializes and deserializes values matching the type.
	Codec JSONCodec[any]
}

// ToolSpec is the descriptive metadata layer around a Tool: everything a
// registry, policy engine, or UI needs to reason about a tool without
// invoking it. A Tool only needs ParameterSchema to run; ToolSpec is optional
// enrichment attached by the agent author.
type ToolSpec struct {
	Name        Ident
	Description string
	// Tags carries free-form labels a policy engine can match against when
	// computing a dynamic allowlist (SPEC_FULL §9.1).
	Tags []string
	// Meta carries arbitrary design-time annotations, for example a
	// human-facing display name or a risk classification.
	Meta map[string][]string
	// TerminalRun marks a tool whose result is itself the user-facing output
	// (SPEC_FULL §9, "Agent-as-tool nesting"). The engine does not read
	// ToolSpec, so the flag does not change the turn loop.
	TerminalRun bool
	// IsAgentTool marks a tool implemented by running another agent inline
	// rather than a plain function (SPEC_FULL §9, grounded on the teacher's
	// ExecuteAgentInline). AgentName is only meaningful when this is true.
	IsAgentTool bool
	AgentName   string
	Payload     TypeSpec
	Result      TypeSpec
}
