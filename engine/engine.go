package engine

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/guardrail"
	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/tools"
)

// Run drives initial to completion, interruption, or error, tail-recursing
// through step until a terminal condition is reached (spec §4.1 "Turn
// loop"). Every emitted TraceEvent goes through cfg.OnEvent.
func (e *Engine) Run(ctx context.Context, initial agent.RunState, cfg Config) agent.RunResult {
	state := initial
	if e.Memory != nil {
		state = e.Memory.Load(ctx, state, cfg.MemoryConfig)
	}

	e.emit(cfg.OnEvent, agent.EventRunStart, state.RunID, map[string]any{"agent": state.CurrentAgentName})
	e.logger().Debug(ctx, "engine: run start", "run_id", string(state.RunID), "agent", state.CurrentAgentName)

	for {
		result, next, cont := e.step(ctx, state, cfg)
		if !cont {
			e.emit(cfg.OnEvent, agent.EventRunEnd, state.RunID, map[string]any{"outcome": string(result.Outcome.Kind)})
			if result.Outcome.Kind == agent.OutcomeError {
				e.logger().Error(ctx, "engine: run ended in error", "run_id", string(state.RunID), "error", result.Outcome.Err)
			} else {
				e.logger().Debug(ctx, "engine: run end", "run_id", string(state.RunID), "outcome", string(result.Outcome.Kind))
			}
			return result
		}
		state = next
	}
}

// step performs at most one model call or one tool-dispatch round, then
// reports whether the caller should recurse with a new state (spec §4.1
// pseudocode "runInternal").
func (e *Engine) step(ctx context.Context, state agent.RunState, cfg Config) (agent.RunResult, agent.RunState, bool) {
	runID := state.RunID

	if idx, pending, ok := pendingToolCalls(state.Messages); ok {
		return e.resumePendingToolCalls(ctx, state, cfg, idx, pending)
	}

	if idx, answer, ok := pendingClarification(state.Messages, state.Clarifications); ok {
		next := state.Clone()
		next.Messages[idx] = rewriteClarificationReply(state.Messages[idx], answer)
		e.emit(cfg.OnEvent, agent.EventClarificationProvided, runID, map[string]any{"index": idx})
		return agent.RunResult{}, next, true
	}

	if state.TurnCount >= cfg.maxTurns() {
		return e.errorResult(ctx, state, agent.NewMaxTurnsExceeded(state.TurnCount)), state, false
	}

	ag, ok := e.Registry[state.CurrentAgentName]
	if !ok {
		return e.errorResult(ctx, state, agent.NewAgentNotFound(state.CurrentAgentName)), state, false
	}

	effTools := ag.Tools
	if cfg.Policy != nil {
		restricted, runErr := e.applyPolicy(ctx, state, cfg, ag, effTools)
		if runErr != nil {
			return e.errorResult(ctx, state, runErr), state, false
		}
		effTools = restricted
	}
	if cfg.AllowClarification {
		effTools = append(append([]tools.Tool{}, effTools...), tools.NewClarificationTool())
	}

	e.emit(cfg.OnEvent, agent.EventAgentProcessing, runID, map[string]any{"agent": ag.Name})

	modelName := ag.ModelConfig.Name
	if modelName == "" {
		modelName = cfg.ModelOverride
	}

	instruction := ""
	if ag.InstructionFn != nil {
		instruction = ag.InstructionFn(state)
	}

	turn := state.TurnCount + 1
	e.emit(cfg.OnEvent, agent.EventTurnStart, runID, map[string]any{"turn": turn, "agent": ag.Name})

	e.emit(cfg.OnEvent, agent.EventLLMCallStart, runID, map[string]any{"turn": turn, "model": modelName})
	resp, streamedAsPartial, runErr := e.getResponse(ctx, state, instruction, effTools, modelName, cfg, ag, turn)
	if runErr != nil {
		e.emit(cfg.OnEvent, agent.EventTurnEnd, runID, map[string]any{"turn": turn})
		return e.errorResult(ctx, state, runErr), state, false
	}

	if resp.Usage.TotalTokens > 0 {
		e.emit(cfg.OnEvent, agent.EventTokenUsage, runID, map[string]any{
			"input_tokens": resp.Usage.InputTokens, "output_tokens": resp.Usage.OutputTokens, "total_tokens": resp.Usage.TotalTokens,
		})
	}
	e.emit(cfg.OnEvent, agent.EventLLMCallEnd, runID, map[string]any{"turn": turn, "stop_reason": resp.StopReason})

	if resp.Content == "" && len(resp.ToolCalls) == 0 {
		e.emit(cfg.OnEvent, agent.EventTurnEnd, runID, map[string]any{"turn": turn})
		return e.errorResult(ctx, state, agent.NewModelBehaviorError("model returned neither content nor tool_calls", nil)), state, false
	}

	assistantMsg := agent.Message{Role: agent.RoleAssistant, Text: resp.Content}
	for _, tc := range resp.ToolCalls {
		assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, agent.ToolCall{
			ID: tc.ID, FunctionName: string(tc.Name), ArgumentsJSON: string(tc.ArgumentsJSON),
		})
	}
	if !streamedAsPartial {
		e.emit(cfg.OnEvent, agent.EventAssistantMessage, runID, map[string]any{"turn": turn, "content": resp.Content})
	}

	withAssistant := state.Clone()
	withAssistant.Messages = append(withAssistant.Messages, assistantMsg)
	withAssistant.TurnCount = turn

	if len(assistantMsg.ToolCalls) > 0 {
		e.emit(cfg.OnEvent, agent.EventToolRequests, runID, map[string]any{"turn": turn, "count": len(assistantMsg.ToolCalls)})
		results := e.dispatcher(cfg.OnEvent, cfg.Hooks).Dispatch(
			ctx, runID, ag.Name, cfg.SessionID, toolRegistryFrom(effTools), assistantMsg.ToolCalls, state.Approvals, state.Context,
		)
		return e.afterDispatch(ctx, withAssistant, cfg, ag, results, turn, nil)
	}

	return e.finalizeOutput(ctx, withAssistant, cfg, ag, resp.Content, turn)
}

// getResponse calls the model, running input guardrails on the run's very
// first turn (spec §4.1 "Input guardrails (first turn only)"): concurrently
// with the call in parallel mode, or to completion before it in sequential
// mode. The returned bool reports whether the response was already
// streamed out as partial assistant_message events, so the caller skips
// re-emitting the final one (spec §4.1 "if not streamed-as-partial: emit
// assistant_message").
func (e *Engine) getResponse(ctx context.Context, state agent.RunState, instruction string, effTools []tools.Tool, modelName string, cfg Config, ag Agent, turn int) (model.Response, bool, *agent.RunError) {
	var streamedAsPartial bool
	call := func(ctx context.Context) (model.Response, error) {
		resp, streamed, err := e.callModel(ctx, state, instruction, effTools, modelName, cfg.OnEvent, turn)
		streamedAsPartial = streamed
		return resp, err
	}

	if state.TurnCount == 0 {
		policy := applyGuardrailPolicy(cfg.InputGuardrails, ag.AdvancedConfig.Guardrails)
		if len(policy.Guardrails) > 0 {
			userText := lastUserText(state.Messages)
			if policy.Config.Mode == guardrail.ModeParallel {
				resp, violation, callErr := guardrail.RunConcurrentWithTask(ctx, policy, userText, call)
				if violation != nil {
					e.emit(cfg.OnEvent, agent.EventGuardrailViolation, state.RunID, map[string]any{"reason": violation.Reason, "direction": "input"})
					return model.Response{}, false, agent.NewGuardrailTripwire(true, violation.Reason)
				}
				if callErr != nil {
					return model.Response{}, false, agent.NewModelBehaviorError("model call failed", callErr)
				}
				return resp, streamedAsPartial, nil
			}
			// Sequential mode: guardrails run one after another before the LLM
			// call is ever made (spec §4.3).
			if violation, ok := policy.Run(ctx, userText); !ok {
				e.emit(cfg.OnEvent, agent.EventGuardrailViolation, state.RunID, map[string]any{"reason": violation.Reason, "direction": "input"})
				return model.Response{}, false, agent.NewGuardrailTripwire(true, violation.Reason)
			}
			resp, err := call(ctx)
			if err != nil {
				return model.Response{}, false, agent.NewModelBehaviorError("model call failed", err)
			}
			return resp, streamedAsPartial, nil
		}
	}
	resp, err := call(ctx)
	if err != nil {
		return model.Response{}, false, agent.NewModelBehaviorError("model call failed", err)
	}
	return resp, streamedAsPartial, nil
}

// callModel prefers the provider's streaming path, aggregating chunks into
// one Response and emitting partial assistant_message events along the way;
// it falls back to a single non-streaming call, discarding any partial
// emissions, when the client has no streaming support or the stream itself
// errors (spec §4.1 "When the provider stream errors, the engine falls back
// to a single non-streaming call").
func (e *Engine) callModel(ctx context.Context, state agent.RunState, instruction string, effTools []tools.Tool, modelName string, onEvent agent.OnEvent, turn int) (model.Response, bool, error) {
	req := buildRequest(state, instruction, effTools, modelName)

	streamer, err := e.Model.Stream(ctx, req)
	if err != nil {
		if errors.Is(err, model.ErrStreamingUnsupported) {
			resp, err := e.Model.Complete(ctx, req)
			return resp, false, err
		}
		resp, err := e.Model.Complete(ctx, req)
		return resp, false, err
	}

	resp, streamErr := aggregateStream(streamer, onEvent, state.RunID, turn)
	if streamErr != nil {
		resp, err := e.Model.Complete(ctx, req)
		return resp, false, err
	}
	return resp, true, nil
}

// afterDispatch folds dispatcher results into the next RunState: it
// persists pending approvals and emits clarification_requested on
// interruption, follows a handoff to its target agent, or simply advances
// the turn loop (spec §4.1, §4.2).
func (e *Engine) afterDispatch(ctx context.Context, state agent.RunState, cfg Config, ag Agent, results []tools.CallResult, turn int, resolvedIDs map[string]struct{}) (agent.RunResult, agent.RunState, bool) {
	runID := state.RunID

	var interruptions []agent.Interruption
	replies := make([]agent.Message, 0, len(results))
	for _, r := range results {
		replies = append(replies, r.Message)
		if r.Interruption != nil {
			interruptions = append(interruptions, *r.Interruption)
		}
	}

	next := state.Clone()
	next.Messages = replacePlaceholders(state.Messages, resolvedIDs, replies)
	next.TurnCount = turn
	if cfg.Policy != nil {
		next = recordToolDispatchOutcome(next, results)
	}

	if len(interruptions) > 0 {
		if next.Approvals == nil {
			next.Approvals = map[string]agent.ApprovalValue{}
		}
		for _, it := range interruptions {
			switch it.Kind {
			case agent.InterruptionToolApproval:
				if _, exists := next.Approvals[it.ToolCall.ID]; !exists {
					next.Approvals[it.ToolCall.ID] = agent.ApprovalValue{Status: agent.ApprovalPending}
				}
			case agent.InterruptionClarificationNeeded:
				e.emit(cfg.OnEvent, agent.EventClarificationRequested, runID, map[string]any{
					"clarification_id": it.ClarificationID, "question": it.Question,
				})
			}
		}
		if e.Memory != nil {
			e.Memory.Persist(ctx, next, cfg.MemoryConfig, true)
		}
		e.emit(cfg.OnEvent, agent.EventTurnEnd, runID, map[string]any{"turn": turn})
		e.logger().Info(ctx, "engine: run interrupted", "run_id", string(runID), "count", len(interruptions))
		return agent.RunResult{FinalState: next, Outcome: agent.Outcome{Kind: agent.OutcomeInterrupted, Interruptions: interruptions}}, next, false
	}

	e.emit(cfg.OnEvent, agent.EventToolResultsToLLM, runID, map[string]any{"turn": turn})

	for _, r := range results {
		if r.IsHandoff {
			if !ag.allowsHandoffTo(r.TargetAgent) {
				e.emit(cfg.OnEvent, agent.EventHandoffDenied, runID, map[string]any{"from": ag.Name, "to": r.TargetAgent})
				return e.errorResult(ctx, next, agent.NewHandoffError(ag.Name, r.TargetAgent)), next, false
			}
			e.emit(cfg.OnEvent, agent.EventHandoff, runID, map[string]any{"from": ag.Name, "to": r.TargetAgent})
			next.CurrentAgentName = r.TargetAgent
			return agent.RunResult{}, next, true
		}
	}

	e.emit(cfg.OnEvent, agent.EventTurnEnd, runID, map[string]any{"turn": turn})
	return agent.RunResult{}, next, true
}

// resumePendingToolCalls re-dispatches only the tool calls still halted on
// the interruption-resume path, reusing the caller's now-updated approvals
// (spec §4.1 "resumable(state): return dispatchPendingToolCalls(state)").
func (e *Engine) resumePendingToolCalls(ctx context.Context, state agent.RunState, cfg Config, assistantIndex int, pending []agent.ToolCall) (agent.RunResult, agent.RunState, bool) {
	_ = assistantIndex
	ag, ok := e.Registry[state.CurrentAgentName]
	if !ok {
		return e.errorResult(ctx, state, agent.NewAgentNotFound(state.CurrentAgentName)), state, false
	}
	effTools := ag.Tools
	if cfg.AllowClarification {
		effTools = append(append([]tools.Tool{}, ag.Tools...), tools.NewClarificationTool())
	}

	results := e.dispatcher(cfg.OnEvent, cfg.Hooks).Dispatch(
		ctx, state.RunID, ag.Name, cfg.SessionID, toolRegistryFrom(effTools), pending, state.Approvals, state.Context,
	)
	resolvedIDs := make(map[string]struct{}, len(pending))
	for _, tc := range pending {
		resolvedIDs[tc.ID] = struct{}{}
	}
	// A pure tool-dispatch round that does not involve an LLM call still
	// counts as a turn (spec §4.1 tie-breaks).
	turn := state.TurnCount + 1
	return e.afterDispatch(ctx, state, cfg, ag, results, turn, resolvedIDs)
}

// finalizeOutput validates and emits the run's terminal assistant output
// (spec §4.1 "elif assistant_msg.content non-empty").
func (e *Engine) finalizeOutput(ctx context.Context, state agent.RunState, cfg Config, ag Agent, content string, turn int) (agent.RunResult, agent.RunState, bool) {
	runID := state.RunID

	if ag.OutputSchema != nil {
		if err := validateOutputSchema(ag.OutputSchema, content); err != nil {
			e.emit(cfg.OnEvent, agent.EventDecodeError, runID, map[string]any{"error": err.Error()})
			e.emit(cfg.OnEvent, agent.EventTurnEnd, runID, map[string]any{"turn": turn})
			return e.errorResult(ctx, state, agent.NewDecodeError([]string{err.Error()})), state, false
		}
	}

	outputPolicy := applyGuardrailPolicy(cfg.OutputGuardrails, ag.AdvancedConfig.Guardrails)
	if len(outputPolicy.Guardrails) > 0 {
		if v, ok := outputPolicy.Run(ctx, content); !ok {
			e.emit(cfg.OnEvent, agent.EventGuardrailViolation, runID, map[string]any{"reason": v.Reason, "direction": "output"})
			e.emit(cfg.OnEvent, agent.EventTurnEnd, runID, map[string]any{"turn": turn})
			return e.errorResult(ctx, state, agent.NewGuardrailTripwire(false, v.Reason)), state, false
		}
	}

	output := &agent.FinalOutput{Text: content}
	if ag.OutputSchema != nil {
		var decoded any
		if err := json.Unmarshal([]byte(content), &decoded); err == nil {
			output.Decoded = decoded
		}
		output.RawSchema = ag.OutputSchema
	}

	e.emit(cfg.OnEvent, agent.EventFinalOutput, runID, map[string]any{"turn": turn})
	e.emit(cfg.OnEvent, agent.EventTurnEnd, runID, map[string]any{"turn": turn})

	if e.Memory != nil {
		e.Memory.Persist(ctx, state, cfg.MemoryConfig, false)
	}

	return agent.RunResult{FinalState: state, Outcome: agent.Outcome{Kind: agent.OutcomeCompleted, Output: output}}, state, false
}

func (e *Engine) emit(onEvent agent.OnEvent, t agent.EventType, runID agent.RunID, data map[string]any) {
	if onEvent == nil {
		return
	}
	onEvent(agent.NewEvent(t, runID, data))
}

func (e *Engine) errorResult(ctx context.Context, state agent.RunState, err *agent.RunError) agent.RunResult {
	e.logger().Warn(ctx, "engine: run error", "run_id", string(state.RunID), "error", err)
	return agent.RunResult{FinalState: state, Outcome: agent.Outcome{Kind: agent.OutcomeError, Err: err}}
}

// applyGuardrailPolicy lets an agent's AdvancedConfig.Guardrails override the
// run-wide execution mode and fail-safe policy without replacing the
// guardrail predicates themselves (spec §4.1 "advanced_config.guardrails may
// override the run's guardrails").
func applyGuardrailPolicy(set guardrail.Set, override *GuardrailPolicy) guardrail.Set {
	if override == nil {
		return set
	}
	cfg := set.Config
	if override.Mode != "" {
		cfg.Mode = override.Mode
	}
	if override.FailSafe != "" {
		cfg.FailSafe = override.FailSafe
	}
	return guardrail.Set{Guardrails: set.Guardrails, Config: cfg}
}
