package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore-ai/agentcore/agent"
)

// Registry looks up tools by name for a given agent. The turn engine's Agent
// type satisfies this via its Tools slice; tests can supply a map-backed stub.
type Registry interface {
	ToolByName(name Ident) (Tool, bool)
}

// MapRegistry is a Registry backed by a plain map, used by tests and by the
// engine's Agent.ToolByName.
type MapRegistry map[Ident]Tool

func (m MapRegistry) ToolByName(name Ident) (Tool, bool) {
	t, ok := m[name]
	return t, ok
}

// Hooks bundles the optional callbacks the dispatcher invokes around each
// tool call (spec §4.2 steps 2 and 12).
type Hooks struct {
	// BeforeExecution may replace the (already parsed) argument object. A nil
	// return leaves args unchanged.
	BeforeExecution func(ctx context.Context, call agent.ToolCall, args map[string]any) map[string]any
	// AfterExecution may replace the raw result string. Errors from this hook
	// are swallowed (and should be logged by the caller), never surfaced.
	AfterExecution func(ctx context.Context, call agent.ToolCall, result string) (string, error)
}

// CallResult is what Dispatch returns for a single tool call: the tool-role
// reply message plus handoff/interruption signaling.
type CallResult struct {
	Message      agent.Message
	IsHandoff    bool
	TargetAgent  string
	Interruption *agent.Interruption
	// Failed reports whether this call ended in an error-class status
	// (tool_not_found, validation_error, execution_error, approval_denied).
	// A halted or awaiting-clarification call is a pause, not a failure, and
	// leaves this false (spec §9.1 "policy engine ... MaxConsecutiveFailedToolCalls").
	Failed bool
}

// Dispatcher executes batches of tool calls concurrently and translates their
// outcomes into canonical tool-reply envelopes (spec §4.2).
type Dispatcher struct {
	Validator *SchemaValidator
	Events    agent.OnEvent
	Hooks     Hooks
}

// NewDispatcher constructs a Dispatcher with its own schema validator cache.
func NewDispatcher(events agent.OnEvent, hooks Hooks) *Dispatcher {
	return &Dispatcher{Validator: NewSchemaValidator(), Events: events, Hooks: hooks}
}

func (d *Dispatcher) emit(t agent.EventType, runID agent.RunID, data map[string]any) {
	if d.Events == nil {
		return
	}
	d.Events(agent.NewEvent(t, runID, data))
}

// Dispatch runs every call in toolCalls concurrently (spec §5 "the dispatcher
// runs tool executions in parallel via concurrent tasks joined before the
// step completes") and returns one CallResult per call, in the same order as
// the input (ordering of the returned slice is deterministic even though
// execution interleaving between sibling calls is unspecified).
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	runID agent.RunID,
	agentName string,
	sessionID string,
	reg Registry,
	calls []agent.ToolCall,
	approvals map[string]agent.ApprovalValue,
	execContext map[string]any,
) []CallResult {
	results := make([]CallResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call agent.ToolCall) {
			defer wg.Done()
			results[i] = d.dispatchOne(ctx, runID, agentName, sessionID, reg, call, approvals, execContext)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) dispatchOne(
	ctx context.Context,
	runID agent.RunID,
	agentName string,
	sessionID string,
	reg Registry,
	call agent.ToolCall,
	approvals map[string]agent.ApprovalValue,
	execContext map[string]any,
) CallResult {
	// Step 1: parse arguments; invalid JSON is carried through so schema
	// validation fails naturally rather than raising here.
	args, parseErr := parseArguments(call.ArgumentsJSON)

	// Step 2: before_tool_execution hook may replace args.
	d.emit(agent.EventBeforeToolExecution, runID, map[string]any{"tool_call_id": call.ID, "name": call.FunctionName})
	if d.Hooks.BeforeExecution != nil {
		if replaced := d.Hooks.BeforeExecution(ctx, call, args); replaced != nil {
			args = replaced
		}
	}

	// Step 3: tool_call_start.
	d.emit(agent.EventToolCallStart, runID, map[string]any{"tool_call_id": call.ID, "name": call.FunctionName, "args": args})
	start := time.Now()

	// Step 4: lookup.
	tool, found := reg.ToolByName(Ident(call.FunctionName))
	if !found {
		return d.finish(runID, call, start, envelope(StatusToolNotFound, nil, call.FunctionName, "tool not found"), nil)
	}

	// Step 5: validation (only if parsing succeeded; a parse failure always
	// fails schema validation naturally per step 1's contract).
	if parseErr != nil {
		env := envelope(StatusValidationError, nil, call.FunctionName, parseErr.Error())
		env.ValidationErrs = []string{parseErr.Error()}
		env.RetryHint = &agent.RetryHint{Reason: parseErr.Error(), Tool: call.FunctionName, RestrictToTool: true}
		return d.finish(runID, call, start, env, nil)
	}
	if errs, err := d.Validator.Validate(tool.ParameterSchema, args); err != nil {
		env := envelope(StatusExecutionError, nil, call.FunctionName, err.Error())
		env.RetryHint = &agent.RetryHint{Reason: err.Error(), Tool: call.FunctionName, RestrictToTool: true}
		return d.finish(runID, call, start, env, nil)
	} else if len(errs) > 0 {
		env := envelope(StatusValidationError, nil, call.FunctionName, "validation failed")
		env.ValidationErrs = errs
		env.RetryHint = &agent.RetryHint{Reason: "validation failed", Tool: call.FunctionName, RestrictToTool: true, MissingFields: errs}
		return d.finish(runID, call, start, env, nil)
	}

	// Step 6/7: approval gate.
	needsApproval := tool.RequiresApproval(ctx, args)
	approval, hasApproval := approvals[call.ID]
	if needsApproval {
		if !hasApproval || approval.Status == agent.ApprovalPending {
			return d.finish(runID, call, start, envelope(StatusHalted, nil, call.FunctionName, "awaiting approval"), &agent.Interruption{
				Kind:      agent.InterruptionToolApproval,
				ToolCall:  call,
				AgentName: agentName,
				SessionID: sessionID,
			})
		}
		if approval.Status == agent.ApprovalRejected {
			env := envelope(StatusApprovalDenied, nil, call.FunctionName, "tool call rejected")
			env.RejectionReason = approval.RejectionReason
			return d.finish(runID, call, start, env, nil)
		}
	}

	// Step 8: merge approval-scoped additional context for this call only.
	callCtx := execContext
	var approvedContext map[string]any
	if hasApproval && approval.Status == agent.ApprovalApproved && len(approval.AdditionalContext) > 0 {
		callCtx = mergeContext(execContext, approval.AdditionalContext)
		approvedContext = approval.AdditionalContext
	}

	// Step 9: execute.
	raw, execErr := d.execute(ctx, tool, args, callCtx)
	if execErr != nil {
		env := envelope(StatusExecutionError, nil, call.FunctionName, execErr.Error())
		env.RetryHint = &agent.RetryHint{Reason: execErr.Error(), Tool: call.FunctionName, RestrictToTool: true}
		return d.finish(runID, call, start, env, nil)
	}

	// Step 10: clarification trigger detection.
	if clar, ok := detectClarificationTrigger(raw); ok {
		env := envelope(StatusAwaitingClarification, nil, call.FunctionName, "awaiting clarification")
		env.ClarificationID = clar.ID
		return d.finish(runID, call, start, env, &agent.Interruption{
			Kind:            agent.InterruptionClarificationNeeded,
			ClarificationID: clar.ID,
			Question:        clar.Question,
			Options:         clar.Options,
			ClarifyContext:  clar.Context,
		})
	}

	// Step 11: handoff detection.
	var isHandoff bool
	var target string
	if h, ok := detectHandoff(raw); ok {
		isHandoff, target = true, h
	}

	// Step 12: optional after-execution hook.
	if d.Hooks.AfterExecution != nil {
		if replaced, err := d.Hooks.AfterExecution(ctx, call, raw); err == nil {
			raw = replaced
		}
	}

	// Step 13: canonical envelope.
	status := StatusExecuted
	if needsApproval {
		status = StatusApprovedAndExecuted
	}
	env := envelope(status, resultPayload(raw), call.FunctionName, "")
	env.ApprovalContext = approvedContext

	result := d.finish(runID, call, start, env, nil)
	result.IsHandoff = isHandoff
	result.TargetAgent = target
	return result
}

func (d *Dispatcher) execute(ctx context.Context, tool Tool, args, execCtx map[string]any) (string, error) {
	out, err := tool.Execute(ctx, args, execCtx)
	if err != nil {
		return "", err
	}
	switch v := out.(type) {
	case string:
		return v, nil
	case Result:
		b, mErr := json.Marshal(map[string]any{"status": v.Status, "data": v.Data, "metadata": v.Metadata})
		if mErr != nil {
			return "", mErr
		}
		return string(b), nil
	default:
		b, mErr := json.Marshal(v)
		if mErr != nil {
			return "", mErr
		}
		return string(b), nil
	}
}

func (d *Dispatcher) finish(runID agent.RunID, call agent.ToolCall, start time.Time, env envelopeJSON, interruption *agent.Interruption) CallResult {
	body, _ := json.Marshal(env)
	msg := agent.Message{Role: agent.RoleTool, Text: string(body), ToolCallID: call.ID}
	success := env.Status == string(StatusExecuted) || env.Status == string(StatusApprovedAndExecuted)
	d.emit(agent.EventToolCallEnd, runID, map[string]any{
		"tool_call_id": call.ID,
		"name":         call.FunctionName,
		"status":       env.Status,
		"duration_ms":  time.Since(start).Milliseconds(),
		"success":      success,
	})
	failed := !success && env.Status != string(StatusHalted) && env.Status != string(StatusAwaitingClarification)
	return CallResult{Message: msg, Interruption: interruption, Failed: failed}
}

type envelopeJSON struct {
	Status          string           `json:"status"`
	Result          any              `json:"result,omitempty"`
	ToolName        string           `json:"tool_name,omitempty"`
	Message         string           `json:"message,omitempty"`
	ValidationErrs  []string         `json:"validation_errors,omitempty"`
	ApprovalContext map[string]any   `json:"approval_context,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	ClarificationID string           `json:"clarification_id,omitempty"`
	RetryHint       *agent.RetryHint `json:"retry_hint,omitempty"`
}

func envelope(status Status, result any, toolName, message string) envelopeJSON {
	return envelopeJSON{Status: string(status), Result: result, ToolName: toolName, Message: message}
}

func resultPayload(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func parseArguments(argsJSON string) (map[string]any, error) {
	if argsJSON == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &out); err != nil {
		return map[string]any{}, fmt.Errorf("invalid tool arguments JSON: %w", err)
	}
	return out, nil
}

func mergeContext(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

type clarificationTrigger struct {
	ID       string
	Question string
	Options  []agent.ClarificationOption
	Context  map[string]any
}

func detectClarificationTrigger(raw string) (clarificationTrigger, bool) {
	var probe struct {
		ClarificationTrigger bool `json:"_clarification_trigger"`
		ID                   string
		Question             string
		Options              []agent.ClarificationOption
		Context              map[string]any
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil || !probe.ClarificationTrigger {
		return clarificationTrigger{}, false
	}
	if probe.ID == "" {
		probe.ID = uuid.NewString()
	}
	return clarificationTrigger{ID: probe.ID, Question: probe.Question, Options: probe.Options, Context: probe.Context}, true
}

func detectHandoff(raw string) (string, bool) {
	var probe struct {
		HandoffTo string `json:"handoff_to"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil || probe.HandoffTo == "" {
		return "", false
	}
	return probe.HandoffTo, true
}
