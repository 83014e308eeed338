package engine

import (
	"context"
	"fmt"

	"github.com/agentcore-ai/agentcore/agent"
)

// RunNested drives a fresh run against a different registered agent from
// within a tool's Execute function, translating the nested run's terminal
// outcome into a plain string a Tool can return directly (spec §9.1
// "Agent-as-tool nesting", grounded on runtime.ExecuteAgentInline). It is a
// generalization of handoff (spec §4.1) for callers who want sub-agent
// composition without transferring the parent run's current_agent_name: the
// nested run shares the parent's TraceID for correlation but gets its own
// RunID, and is driven through the same Run entry point every top-level
// invocation uses.
func (e *Engine) RunNested(ctx context.Context, nestedAgentName string, parent agent.RunState, userText string, cfg Config) (string, error) {
	if _, ok := e.Registry[nestedAgentName]; !ok {
		return "", agent.NewAgentNotFound(nestedAgentName)
	}

	initial := agent.RunState{
		RunID:            agent.RunID(string(parent.RunID) + "/" + nestedAgentName),
		TraceID:          parent.TraceID,
		CurrentAgentName: nestedAgentName,
		Messages: []agent.Message{
			{Role: agent.RoleUser, Text: userText},
		},
	}

	result := e.Run(ctx, initial, cfg)
	switch result.Outcome.Kind {
	case agent.OutcomeCompleted:
		return result.Outcome.Output.Text, nil
	case agent.OutcomeInterrupted:
		return "", fmt.Errorf("nested run into %q interrupted with %d pending interruption(s)", nestedAgentName, len(result.Outcome.Interruptions))
	default:
		return "", result.Outcome.Err
	}
}
