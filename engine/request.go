package engine

import (
	"encoding/json"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/tools"
)

// buildRequest translates run state plus the agent's system prompt and
// effective tool set into a provider-agnostic model.Request.
func buildRequest(state agent.RunState, instruction string, effTools []tools.Tool, modelName string) model.Request {
	var messages []model.Message
	if instruction != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Parts: []model.Part{model.TextPart{Text: instruction}}})
	}
	messages = append(messages, toModelMessages(state.Messages)...)

	defs := make([]model.ToolDefinition, 0, len(effTools))
	for _, t := range effTools {
		defs = append(defs, model.ToolDefinition{
			Name:        string(t.Name),
			Description: t.Description,
			InputSchema: json.RawMessage(t.ParameterSchema),
		})
	}

	return model.Request{
		RunID:    string(state.RunID),
		Model:    modelName,
		Messages: messages,
		Tools:    defs,
	}
}

// toModelMessages folds agent.Message conversation history into the
// provider-agnostic Part union, grouping consecutive tool-role replies into
// a single user-role message carrying one ToolResultPart per reply — the
// shape every provider adapter (Anthropic, OpenAI, Bedrock) expects a tool
// result to arrive in.
func toModelMessages(messages []agent.Message) []model.Message {
	out := make([]model.Message, 0, len(messages))
	for i := 0; i < len(messages); {
		m := messages[i]
		switch m.Role {
		case agent.RoleTool:
			var parts []model.Part
			for i < len(messages) && messages[i].Role == agent.RoleTool {
				tm := messages[i]
				i++
				if isUnresolvedPlaceholder(parseToolEnvelope(tm.Text).Status) {
					// Halted and awaiting-clarification placeholders exist only to
					// keep persisted storage 1:1 with the assistant's tool_calls;
					// they are never replayed to the model.
					continue
				}
				parts = append(parts, model.ToolResultPart{
					ToolUseID: tm.ToolCallID,
					Content:   parseJSONOrRaw(tm.Text),
					IsError:   isErrorStatus(parseToolEnvelope(tm.Text).Status),
				})
			}
			if len(parts) > 0 {
				out = append(out, model.Message{Role: model.RoleUser, Parts: parts})
			}
		case agent.RoleAssistant:
			var parts []model.Part
			if text := m.Content(); text != "" {
				parts = append(parts, model.TextPart{Text: text})
			}
			for _, tc := range m.ToolCalls {
				args := tc.ArgumentsJSON
				if args == "" {
					args = "{}"
				}
				parts = append(parts, model.ToolUsePart{ID: tc.ID, Name: tc.FunctionName, Input: json.RawMessage(args)})
			}
			out = append(out, model.Message{Role: model.RoleAssistant, Parts: parts})
			i++
		case agent.RoleSystem:
			out = append(out, model.Message{Role: model.RoleSystem, Parts: []model.Part{model.TextPart{Text: m.Content()}}})
			i++
		default: // agent.RoleUser
			out = append(out, model.Message{Role: model.RoleUser, Parts: []model.Part{model.TextPart{Text: m.Content()}}})
			i++
		}
	}
	return out
}

func isUnresolvedPlaceholder(status string) bool {
	return status == "halted" || status == "awaiting_clarification"
}

func isErrorStatus(status string) bool {
	switch status {
	case "validation_error", "execution_error", "tool_not_found", "approval_denied":
		return true
	default:
		return false
	}
}

func parseJSONOrRaw(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	return text
}

func lastUserText(messages []agent.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == agent.RoleUser {
			return messages[i].Content()
		}
	}
	return ""
}
