package engine

import (
	"encoding/json"

	"github.com/agentcore-ai/agentcore/agent"
)

// toolEnvelopeProbe reads just the fields the engine needs out of a tool
// reply's canonical JSON envelope, without depending on the dispatcher's
// internal envelope type.
type toolEnvelopeProbe struct {
	Status          string `json:"status"`
	ToolName        string `json:"tool_name"`
	ClarificationID string `json:"clarification_id"`
}

func parseToolEnvelope(text string) toolEnvelopeProbe {
	var p toolEnvelopeProbe
	_ = json.Unmarshal([]byte(text), &p)
	return p
}

// pendingToolCalls scans messages for a trailing assistant message whose
// tool_calls are not all answered by a genuine (non-halted) tool reply. This
// is how approval-interruption resume works (spec §4.1 "If the last message
// is an assistant with unanswered tool_calls, the engine dispatches them
// immediately without asking the model again"): after an Interrupted
// outcome, the caller updates approvals and calls Run again with the same
// FinalState, whose messages still end in the assistant's tool_calls
// followed only by halted placeholders (or nothing).
//
// Only calls still halted are returned; calls that already have a genuine
// reply, or that are parked awaiting a clarification answer (handled
// separately, see pendingClarification), are left untouched.
func pendingToolCalls(messages []agent.Message) (assistantIndex int, pending []agent.ToolCall, ok bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		switch m.Role {
		case agent.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				return 0, nil, false
			}
			answered := make(map[string]string, len(m.ToolCalls))
			for j := i + 1; j < len(messages); j++ {
				reply := messages[j]
				if reply.Role == agent.RoleTool && reply.ToolCallID != "" {
					answered[reply.ToolCallID] = parseToolEnvelope(reply.Text).Status
				}
			}
			var pend []agent.ToolCall
			for _, tc := range m.ToolCalls {
				if status, has := answered[tc.ID]; !has || status == "halted" {
					pend = append(pend, tc)
				}
			}
			if len(pend) == 0 {
				return 0, nil, false
			}
			return i, pend, true
		case agent.RoleTool:
			continue // skip over trailing tool replies/placeholders, keep looking back
		default:
			return 0, nil, false
		}
	}
	return 0, nil, false
}

// pendingClarification finds a trailing tool reply parked awaiting a
// clarification answer that the caller has since supplied via
// state.Clarifications (spec §4.1 "if state.clarifications has unresumed
// entry on last tool msg: rewrite that placeholder to
// clarification_provided; recurse").
func pendingClarification(messages []agent.Message, clarifications map[string]string) (index int, answer string, ok bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == agent.RoleAssistant {
			return 0, "", false
		}
		if m.Role != agent.RoleTool {
			continue
		}
		env := parseToolEnvelope(m.Text)
		if env.Status != "awaiting_clarification" || env.ClarificationID == "" {
			continue
		}
		if ans, has := clarifications[env.ClarificationID]; has {
			return i, ans, true
		}
	}
	return 0, "", false
}

// rewriteClarificationReply replaces an awaiting_clarification placeholder
// with a resolved reply carrying the caller-supplied answer, so the next
// model call sees it as an ordinary tool result.
func rewriteClarificationReply(m agent.Message, answer string) agent.Message {
	env := parseToolEnvelope(m.Text)
	body, _ := json.Marshal(map[string]any{
		"status":    "clarification_provided",
		"result":    answer,
		"tool_name": env.ToolName,
	})
	m.Text = string(body)
	return m
}

// replacePlaceholders drops any existing halted replies for the given call
// IDs (they are superseded once the call actually resolves) and appends the
// dispatcher's fresh replies in their place, preserving message order.
func replacePlaceholders(messages []agent.Message, resolvedIDs map[string]struct{}, fresh []agent.Message) []agent.Message {
	out := make([]agent.Message, 0, len(messages)+len(fresh))
	for _, m := range messages {
		if m.Role == agent.RoleTool {
			if _, resolved := resolvedIDs[m.ToolCallID]; resolved {
				continue
			}
		}
		out = append(out, m)
	}
	out = append(out, fresh...)
	return out
}
