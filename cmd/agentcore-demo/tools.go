package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/tools"
)

// staticInstruction wraps a fixed system prompt string as an
// engine.InstructionFn, ignoring run state. Agents that need state-derived
// instructions aren't expressible from YAML and fall outside this demo's
// scope.
func staticInstruction(text string) func(agent.RunState) string {
	return func(agent.RunState) string { return text }
}

// demoTools is the fixed catalog of Tool values an agent registry file can
// reference by name. A tool's behavior is Go code (tools.Tool.Execute), so
// the registry file can only select among tools known at compile time, not
// define new ones.
var demoTools = map[string]tools.Tool{
	"calculator":  calculatorTool(),
	"get_weather": weatherTool(),
	"book_flight": bookFlightTool(),
}

func availableToolNames() string {
	names := make([]string, 0, len(demoTools))
	for name := range demoTools {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func calculatorTool() tools.Tool {
	return tools.Tool{
		Name:        "calculator",
		Description: "Evaluates a simple arithmetic expression of the form '<a> <op> <b>'.",
		ParameterSchema: []byte(`{
			"type": "object",
			"properties": {
				"a": {"type": "number"},
				"op": {"type": "string", "enum": ["+", "-", "*", "/"]},
				"b": {"type": "number"}
			},
			"required": ["a", "op", "b"]
		}`),
		Execute: func(_ context.Context, args map[string]any, _ map[string]any) (any, error) {
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			op, _ := args["op"].(string)
			switch op {
			case "+":
				return a + b, nil
			case "-":
				return a - b, nil
			case "*":
				return a * b, nil
			case "/":
				if b == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				return a / b, nil
			default:
				return nil, fmt.Errorf("unsupported operator %q", op)
			}
		},
	}
}

func weatherTool() tools.Tool {
	return tools.Tool{
		Name:        "get_weather",
		Description: "Looks up the current weather for a named city (demo data, not a real forecast).",
		ParameterSchema: []byte(`{
			"type": "object",
			"properties": {"city": {"type": "string"}},
			"required": ["city"]
		}`),
		Execute: func(_ context.Context, args map[string]any, _ map[string]any) (any, error) {
			city, _ := args["city"].(string)
			if city == "" {
				return nil, fmt.Errorf("city is required")
			}
			return fmt.Sprintf("%s is 18C and partly cloudy", city), nil
		},
	}
}

// bookFlightTool requires human approval before executing, demonstrating the
// dispatcher's approval gate (spec §4.2).
func bookFlightTool() tools.Tool {
	return tools.Tool{
		Name:        "book_flight",
		Description: "Books a flight. Requires human approval before it executes.",
		ParameterSchema: []byte(`{
			"type": "object",
			"properties": {
				"origin": {"type": "string"},
				"destination": {"type": "string"}
			},
			"required": ["origin", "destination"]
		}`),
		NeedsApprovalFn: func(context.Context, map[string]any) bool { return true },
		Execute: func(_ context.Context, args map[string]any, _ map[string]any) (any, error) {
			origin, _ := args["origin"].(string)
			dest, _ := args["destination"].(string)
			return fmt.Sprintf("booked %s -> %s", origin, dest), nil
		},
	}
}
