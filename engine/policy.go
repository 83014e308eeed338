package engine

import (
	"context"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/tools"
)

// policyFailureCountKey tracks consecutive tool-dispatch rounds that ended
// with no successful call, in state.Context, so a policy.Engine's
// MaxConsecutiveFailedToolCalls cap survives across turns without adding a
// new field to agent.RunState (spec §9.1 "Policy engine hook").
const policyFailureCountKey = "agentcore:policy:consecutive_tool_failures"

// applyPolicy consults cfg.Policy for the current turn and returns the
// resulting effective tool set, or a *agent.RunError if a configured cap has
// been exceeded. Callers only invoke this when cfg.Policy is non-nil.
func (e *Engine) applyPolicy(ctx context.Context, state agent.RunState, cfg Config, ag Agent, candidateTools []tools.Tool) ([]tools.Tool, *agent.RunError) {
	names := make([]string, len(candidateTools))
	for i, t := range candidateTools {
		names[i] = string(t.Name)
	}

	decision, err := cfg.Policy.Decide(ctx, state, ag.Name, names)
	if err != nil {
		return nil, agent.NewPolicyDenied(err.Error())
	}

	if decision.Denied {
		reason := decision.DenyReason
		if reason == "" {
			reason = "policy denied this turn"
		}
		return nil, agent.NewPolicyDenied(reason)
	}
	if !decision.Deadline.IsZero() && time.Now().After(decision.Deadline) {
		return nil, agent.NewPolicyDenied("policy deadline exceeded")
	}
	if decision.MaxToolCalls > 0 && state.TurnCount >= decision.MaxToolCalls {
		return nil, agent.NewPolicyDenied("policy max tool calls exceeded")
	}
	if decision.MaxConsecutiveFailedToolCalls > 0 {
		if count, _ := state.Context[policyFailureCountKey].(int); count >= decision.MaxConsecutiveFailedToolCalls {
			return nil, agent.NewPolicyDenied("policy max consecutive failed tool calls exceeded")
		}
	}

	if decision.AllowedTools == nil {
		return candidateTools, nil
	}
	allowed := make(map[string]struct{}, len(decision.AllowedTools))
	for _, name := range decision.AllowedTools {
		allowed[name] = struct{}{}
	}
	filtered := make([]tools.Tool, 0, len(candidateTools))
	for _, t := range candidateTools {
		if _, ok := allowed[string(t.Name)]; ok {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// recordToolDispatchOutcome updates next.Context's consecutive-failure
// counter after a tool-dispatch round: it resets to zero if any call
// succeeded (or paused on approval/clarification) and increments otherwise.
func recordToolDispatchOutcome(next agent.RunState, results []tools.CallResult) agent.RunState {
	allFailed := len(results) > 0
	for _, r := range results {
		if !r.Failed {
			allFailed = false
			break
		}
	}
	if next.Context == nil {
		next.Context = map[string]any{}
	}
	if allFailed {
		count, _ := next.Context[policyFailureCountKey].(int)
		next.Context[policyFailureCountKey] = count + 1
	} else {
		next.Context[policyFailureCountKey] = 0
	}
	return next
}
