package agent_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agentcore-ai/agentcore/agent"
)

// Invariant 1 (spec §8): every tool_call in an assistant message is answered
// by exactly one tool-role reply carrying the same ToolCallID, and that
// reply immediately follows the assistant message in Messages order. This
// property constructs a RunState from a random batch of tool calls and their
// replies-in-order and checks the pairing holds.
func TestInvariant_ToolReplyPairing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every tool_call has exactly one same-ID reply directly after it", prop.ForAll(
		func(calls []agent.ToolCall) bool {
			msgs := buildPairedConversation(calls)
			return toolRepliesArePaired(msgs, calls)
		},
		genToolCalls(),
	))

	properties.TestingRun(t)
}

// Invariant 2 (spec §8, glossary "Halted placeholder"): a tool-role message
// whose envelope status is "halted" or "awaiting_clarification" must never
// be reported as a resolved reply by agent.ToolReplyStatus consumers — the
// status round-trips exactly through the JSON envelope with no coercion.
func TestInvariant_HaltedPlaceholderStatusRoundTrips(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	statuses := []string{
		"executed", "approved_and_executed", "halted", "tool_not_found",
		"validation_error", "approval_denied", "execution_error", "awaiting_clarification",
	}

	properties.Property("ToolReplyStatus recovers exactly the encoded status", prop.ForAll(
		func(idx int) bool {
			status := statuses[idx%len(statuses)]
			body, err := json.Marshal(map[string]any{"status": status, "tool_name": "x"})
			if err != nil {
				return false
			}
			return agent.ToolReplyStatus(string(body)) == status
		},
		gen.IntRange(0, 1000),
	))

	properties.Property("malformed content never resolves a status", prop.ForAll(
		func(garbage string) bool {
			return agent.ToolReplyStatus("not json: "+garbage) == ""
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Invariant (spec §5 "State is treated as immutable"): RunState.Clone
// produces a copy whose Messages, Context, Approvals, and Clarifications can
// be mutated freely without the original observing any change.
func TestInvariant_RunStateCloneIsIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("mutating a clone never mutates the source", prop.ForAll(
		func(turnCount int, text string) bool {
			original := agent.RunState{
				RunID:     "run-1",
				TurnCount: turnCount,
				Messages:  []agent.Message{{Role: agent.RoleUser, Text: text}},
				Context:   map[string]any{"k": "v"},
				Approvals: map[string]agent.ApprovalValue{
					"call-1": {Status: agent.ApprovalPending},
				},
				Clarifications: map[string]string{"clar-1": "answer"},
			}

			clone := original.Clone()
			clone.Messages[0].Text = "mutated"
			clone.Messages = append(clone.Messages, agent.Message{Role: agent.RoleAssistant, Text: "extra"})
			clone.Context["k"] = "mutated"
			clone.Context["new"] = true
			clone.Approvals["call-1"] = agent.ApprovalValue{Status: agent.ApprovalApproved}
			clone.Approvals["call-2"] = agent.ApprovalValue{Status: agent.ApprovalRejected}
			clone.Clarifications["clar-1"] = "mutated"
			clone.Clarifications["clar-2"] = "new"

			if original.Messages[0].Text != text {
				return false
			}
			if len(original.Messages) != 1 {
				return false
			}
			if original.Context["k"] != "v" {
				return false
			}
			if _, ok := original.Context["new"]; ok {
				return false
			}
			if original.Approvals["call-1"].Status != agent.ApprovalPending {
				return false
			}
			if _, ok := original.Approvals["call-2"]; ok {
				return false
			}
			if original.Clarifications["clar-1"] != "answer" {
				return false
			}
			if _, ok := original.Clarifications["clar-2"]; ok {
				return false
			}
			return true
		},
		gen.IntRange(0, 50),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Invariant (spec §7 "Propagation policy"): RunError.Is matches any other
// *RunError sharing the same Code, and a zero-value target Code acts as a
// wildcard — this is what lets callers write
// errors.Is(err, &RunError{Code: agent.ErrMaxTurnsExceeded}) regardless of
// the other fields populated on either side.
func TestInvariant_RunErrorIsMatchesByCodeOnly(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	codes := []agent.RunErrorCode{
		agent.ErrMaxTurnsExceeded, agent.ErrModelBehavior, agent.ErrDecode,
		agent.ErrInputGuardrailTripwire, agent.ErrOutputGuardrailTripwire,
		agent.ErrToolCall, agent.ErrHandoff, agent.ErrAgentNotFound, agent.ErrPolicyDenied,
	}

	properties.Property("same code matches, different code does not", prop.ForAll(
		func(i, j int, msg string) bool {
			ci, cj := codes[i%len(codes)], codes[j%len(codes)]
			e := &agent.RunError{Code: ci, Msg: msg}
			target := &agent.RunError{Code: cj}

			matches := errors.Is(e, target)
			if ci == cj && !matches {
				return false
			}
			if ci != cj && matches {
				return false
			}
			return true
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
		gen.AlphaString(),
	))

	properties.Property("a zero-Code target matches any RunError", prop.ForAll(
		func(i int, msg string) bool {
			e := &agent.RunError{Code: codes[i%len(codes)], Msg: msg}
			return errors.Is(e, &agent.RunError{})
		},
		gen.IntRange(0, 1000),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// --- generators and fixtures ---

func genToolCalls() gopter.Gen {
	return gen.IntRange(1, 6).FlatMap(func(n any) gopter.Gen {
		return gen.SliceOfN(n.(int), genToolCall())
	}, reflect.TypeOf([]agent.ToolCall{}))
}

func genToolCall() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 1_000_000),
		gen.AlphaString(),
	).Map(func(vals []any) agent.ToolCall {
		idx := vals[0].(int)
		name := vals[1].(string)
		if name == "" {
			name = "tool"
		}
		return agent.ToolCall{ID: idString(idx), FunctionName: name, ArgumentsJSON: "{}"}
	})
}

func idString(n int) string {
	return "call-" + strconv.Itoa(n)
}

// buildPairedConversation constructs the canonical shape persisted storage
// keeps for a resolved tool round: one assistant message carrying every
// ToolCall, followed immediately by one tool-role reply per call, in order,
// each tagged with the matching ToolCallID.
func buildPairedConversation(calls []agent.ToolCall) []agent.Message {
	out := make([]agent.Message, 0, len(calls)+1)
	out = append(out, agent.Message{Role: agent.RoleAssistant, ToolCalls: calls})
	for _, c := range calls {
		body, _ := json.Marshal(map[string]any{"status": "executed", "tool_name": c.FunctionName})
		out = append(out, agent.Message{Role: agent.RoleTool, ToolCallID: c.ID, Text: string(body)})
	}
	return out
}

// toolRepliesArePaired checks invariant 1 against a built conversation:
// for every tool_call on the assistant message, the very next message in
// sequence is a tool-role reply carrying that exact ToolCallID.
func toolRepliesArePaired(msgs []agent.Message, calls []agent.ToolCall) bool {
	if len(msgs) == 0 || msgs[0].Role != agent.RoleAssistant {
		return false
	}
	if len(msgs) != len(calls)+1 {
		return false
	}
	for i, c := range calls {
		reply := msgs[i+1]
		if reply.Role != agent.RoleTool {
			return false
		}
		if reply.ToolCallID != c.ID {
			return false
		}
		if agent.ToolReplyStatus(reply.Text) == "" {
			return false
		}
	}
	return true
}
