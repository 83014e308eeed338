package tools

import (
	"context"
	"encoding/json"
)

// ClarificationToolName is the synthetic tool name an agent author invokes
// internally to request user input mid-turn (spec §4.2 "a tool's execute
// function may itself signal that user clarification is required").
const ClarificationToolName Ident = "request_user_clarification"

// ClarificationArgs is the argument shape the synthetic tool expects.
type ClarificationArgs struct {
	Question string                `json:"question"`
	Options  []ClarificationOption `json:"options,omitempty"`
	Context  map[string]any        `json:"context,omitempty"`
}

// ClarificationOption mirrors agent.ClarificationOption's JSON shape; the
// synthetic tool collects its options with it before encoding them into the
// trigger payload.
type ClarificationOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// clarificationParamSchema is the JSON Schema advertised for the synthetic
// clarification tool so it validates like any other tool call.
const clarificationParamSchema = `{
  "type": "object",
  "properties": {
    "question": {"type": "string"},
    "options": {
      "type": "array",
      "minItems": 2,
      "items": {
        "type": "object",
        "properties": {"id": {"type": "string"}, "label": {"type": "string"}},
        "required": ["id", "label"]
      }
    },
    "context": {"type": "object"}
  },
  "required": ["question", "options"]
}`

// NewClarificationTool builds the synthetic tool the engine appends to an
// agent's effective tool set when engine.Config.AllowClarification is set,
// whether or not the agent already has a tool of this name. Its execute
// function never runs business logic: it just emits the "_clarification_trigger"
// envelope the dispatcher recognizes in step 10, carrying the question and
// options back out as an interruption.
func NewClarificationTool() Tool {
	return Tool{
		Name:            ClarificationToolName,
		Description:     "Ask the user a clarifying question before continuing.",
		ParameterSchema: []byte(clarificationParamSchema),
		Execute: func(_ context.Context, args map[string]any, _ map[string]any) (any, error) {
			question, _ := args["question"].(string)
			var opts []ClarificationOption
			if raw, ok := args["options"].([]any); ok {
				for _, o := range raw {
					if om, ok := o.(map[string]any); ok {
						id, _ := om["id"].(string)
						label, _ := om["label"].(string)
						opts = append(opts, ClarificationOption{ID: id, Label: label})
					}
				}
			}
			ctxData, _ := args["context"].(map[string]any)
			out := map[string]any{
				"_clarification_trigger": true,
				"question":               question,
				"options":                opts,
				"context":                ctxData,
			}
			b, err := json.Marshal(out)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
