package engine_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/engine"
	"github.com/agentcore-ai/agentcore/guardrail"
	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/tools"
)

// scriptedModel replays a fixed sequence of Responses, one per Complete
// call, so each scenario can pin exactly what the provider does on each
// turn without a real network call.
type scriptedModel struct {
	responses []model.Response
	calls     int
}

func (m *scriptedModel) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	if m.calls >= len(m.responses) {
		return model.Response{}, assertNoMoreCalls
	}
	r := m.responses[m.calls]
	m.calls++
	return r, nil
}

func (m *scriptedModel) Stream(ctx context.Context, req model.Request) (model.Streamer, error) {
	return nil, model.ErrStreamingUnsupported
}

var assertNoMoreCalls = errString("scriptedModel: no more responses scripted")

type errString string

func (e errString) Error() string { return string(e) }

func toolCall(id, name, argsJSON string) model.ToolCallResult {
	return model.ToolCallResult{ID: id, Name: tools.Ident(name), ArgumentsJSON: json.RawMessage(argsJSON)}
}

func baseState(agentName, userText string) agent.RunState {
	return agent.RunState{
		RunID:            "run-1",
		CurrentAgentName: agentName,
		Messages:         []agent.Message{{Role: agent.RoleUser, Text: userText}},
	}
}

func calculatorTool() tools.Tool {
	return tools.Tool{
		Name:            "calculator",
		Description:     "Evaluates a simple arithmetic expression.",
		ParameterSchema: []byte(`{"type":"object","properties":{"expression":{"type":"string"}},"required":["expression"]}`),
		Execute: func(ctx context.Context, args map[string]any, execCtx map[string]any) (any, error) {
			return "42", nil
		},
	}
}

// S1 — Calculator, one turn.
func TestScenario_CalculatorOneTurn(t *testing.T) {
	m := &scriptedModel{responses: []model.Response{
		{ToolCalls: []model.ToolCallResult{toolCall("call-1", "calculator", `{"expression":"15+27"}`)}, StopReason: "tool_use"},
		{Content: "42", StopReason: "end_turn"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{calculatorTool()}}}
	eng := engine.New(reg, m, nil, nil)

	var events []agent.EventType
	cfg := engine.Config{OnEvent: func(e agent.TraceEvent) { events = append(events, e.Type) }}

	result := eng.Run(context.Background(), baseState("assistant", "What is 15 + 27?"), cfg)

	require.Equal(t, agent.OutcomeCompleted, result.Outcome.Kind)
	assert.Equal(t, "42", result.Outcome.Output.Text)
	assert.Len(t, result.FinalState.Messages, 4)

	starts, ends := 0, 0
	for _, t := range events {
		if t == agent.EventToolCallStart {
			starts++
		}
		if t == agent.EventToolCallEnd {
			ends++
		}
	}
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends)
}

// S2 — Approval required, then resumed with approval.
func TestScenario_ApprovalRequiredThenApproved(t *testing.T) {
	bookFlight := tools.Tool{
		Name:            "book_flight",
		ParameterSchema: []byte(`{"type":"object"}`),
		NeedsApprovalFn: func(ctx context.Context, args map[string]any) bool { return true },
		Execute: func(ctx context.Context, args map[string]any, execCtx map[string]any) (any, error) {
			return "booked", nil
		},
	}
	m := &scriptedModel{responses: []model.Response{
		{ToolCalls: []model.ToolCallResult{toolCall("call-1", "book_flight", `{}`)}, StopReason: "tool_use"},
		{Content: "Your flight is booked.", StopReason: "end_turn"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{bookFlight}}}
	eng := engine.New(reg, m, nil, nil)

	result := eng.Run(context.Background(), baseState("assistant", "book me a flight"), engine.Config{})

	require.Equal(t, agent.OutcomeInterrupted, result.Outcome.Kind)
	require.Len(t, result.Outcome.Interruptions, 1)
	assert.Equal(t, agent.InterruptionToolApproval, result.Outcome.Interruptions[0].Kind)

	approval, ok := result.FinalState.Approvals["call-1"]
	require.True(t, ok)
	assert.Equal(t, agent.ApprovalPending, approval.Status)

	var halted bool
	for _, msg := range result.FinalState.Messages {
		if msg.Role == agent.RoleTool && msg.ToolCallID == "call-1" {
			halted = true
		}
	}
	assert.True(t, halted, "persisted state keeps the halted placeholder")

	resumed := result.FinalState
	resumed.Approvals = map[string]agent.ApprovalValue{"call-1": {Status: agent.ApprovalApproved}}
	final := eng.Run(context.Background(), resumed, engine.Config{})

	require.Equal(t, agent.OutcomeCompleted, final.Outcome.Kind)
	assert.Equal(t, "Your flight is booked.", final.Outcome.Output.Text)
}

// S3 — Rejection path.
func TestScenario_RejectionPath(t *testing.T) {
	bookFlight := tools.Tool{
		Name:            "book_flight",
		ParameterSchema: []byte(`{"type":"object"}`),
		NeedsApprovalFn: func(ctx context.Context, args map[string]any) bool { return true },
		Execute: func(ctx context.Context, args map[string]any, execCtx map[string]any) (any, error) {
			return "booked", nil
		},
	}
	m := &scriptedModel{responses: []model.Response{
		{ToolCalls: []model.ToolCallResult{toolCall("call-1", "book_flight", `{}`)}, StopReason: "tool_use"},
		{Content: "No problem, what would you like instead?", StopReason: "end_turn"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{bookFlight}}}
	eng := engine.New(reg, m, nil, nil)

	first := eng.Run(context.Background(), baseState("assistant", "book me a flight"), engine.Config{})
	require.Equal(t, agent.OutcomeInterrupted, first.Outcome.Kind)

	resumed := first.FinalState
	resumed.Approvals = map[string]agent.ApprovalValue{
		"call-1": {Status: agent.ApprovalRejected, RejectionReason: "user changed mind"},
	}
	final := eng.Run(context.Background(), resumed, engine.Config{})

	require.Equal(t, agent.OutcomeCompleted, final.Outcome.Kind)
	assert.Equal(t, "No problem, what would you like instead?", final.Outcome.Output.Text)

	var deniedEnvelope string
	for _, msg := range final.FinalState.Messages {
		if msg.Role == agent.RoleTool && msg.ToolCallID == "call-1" {
			deniedEnvelope = msg.Text
		}
	}
	assert.Contains(t, deniedEnvelope, "approval_denied")
	assert.Contains(t, deniedEnvelope, "user changed mind")
}

// S4 — Handoff, allowed and denied.
func TestScenario_HandoffAllowed(t *testing.T) {
	handoffTool := tools.Tool{
		Name:            "transfer",
		ParameterSchema: []byte(`{"type":"object"}`),
		Execute: func(ctx context.Context, args map[string]any, execCtx map[string]any) (any, error) {
			return `{"handoff_to":"weather"}`, nil
		},
	}
	m := &scriptedModel{responses: []model.Response{
		{ToolCalls: []model.ToolCallResult{toolCall("call-1", "transfer", `{}`)}, StopReason: "tool_use"},
		{Content: "It's sunny.", StopReason: "end_turn"},
	}}
	reg := engine.Registry{
		"coordinator": {Name: "coordinator", Tools: []tools.Tool{handoffTool}, AllowedHandoffs: []string{"weather"}},
		"weather":     {Name: "weather"},
	}
	eng := engine.New(reg, m, nil, nil)

	var sawHandoff bool
	cfg := engine.Config{OnEvent: func(e agent.TraceEvent) {
		if e.Type == agent.EventHandoff {
			sawHandoff = true
		}
	}}

	result := eng.Run(context.Background(), baseState("coordinator", "what's the weather"), cfg)

	require.Equal(t, agent.OutcomeCompleted, result.Outcome.Kind)
	assert.True(t, sawHandoff)
	assert.Equal(t, "weather", result.FinalState.CurrentAgentName)
}

func TestScenario_HandoffDenied(t *testing.T) {
	handoffTool := tools.Tool{
		Name:            "transfer",
		ParameterSchema: []byte(`{"type":"object"}`),
		Execute: func(ctx context.Context, args map[string]any, execCtx map[string]any) (any, error) {
			return `{"handoff_to":"unknown"}`, nil
		},
	}
	m := &scriptedModel{responses: []model.Response{
		{ToolCalls: []model.ToolCallResult{toolCall("call-1", "transfer", `{}`)}, StopReason: "tool_use"},
	}}
	reg := engine.Registry{
		"coordinator": {Name: "coordinator", Tools: []tools.Tool{handoffTool}, AllowedHandoffs: []string{"weather"}},
	}
	eng := engine.New(reg, m, nil, nil)

	result := eng.Run(context.Background(), baseState("coordinator", "transfer me"), engine.Config{})

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.Equal(t, agent.ErrHandoff, result.Outcome.Err.Code)
}

// S5 — Guardrail blocks, parallel mode.
func TestScenario_GuardrailBlocksParallelMode(t *testing.T) {
	m := &scriptedModel{responses: []model.Response{
		{Content: "this would have been the reply", StopReason: "end_turn"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant"}}
	eng := engine.New(reg, m, nil, nil)

	spamGuardrail := func(ctx context.Context, text string) (guardrail.Verdict, error) {
		if text == "spam" {
			return guardrail.Verdict{Valid: false, Reason: "looked like spam"}, nil
		}
		return guardrail.Verdict{Valid: true}, nil
	}

	var sawAssistantMessage bool
	cfg := engine.Config{
		InputGuardrails: guardrail.Set{Guardrails: []guardrail.Func{spamGuardrail}, Config: guardrail.DefaultConfig()},
		OnEvent: func(e agent.TraceEvent) {
			if e.Type == agent.EventAssistantMessage {
				sawAssistantMessage = true
			}
		},
	}

	result := eng.Run(context.Background(), baseState("assistant", "spam"), cfg)

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.Equal(t, agent.ErrInputGuardrailTripwire, result.Outcome.Err.Code)
	assert.False(t, sawAssistantMessage)
}

// S5b — Guardrail blocks, sequential mode: the model must never be called
// once a sequential guardrail trips (spec §4.3 "Sequential. Guardrails run
// one after another before the LLM call").
func TestScenario_GuardrailBlocksSequentialModeNeverCallsModel(t *testing.T) {
	m := &scriptedModel{responses: []model.Response{
		{Content: "the model should never produce this", StopReason: "end_turn"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant"}}
	eng := engine.New(reg, m, nil, nil)

	spamGuardrail := func(ctx context.Context, text string) (guardrail.Verdict, error) {
		if text == "spam" {
			return guardrail.Verdict{Valid: false, Reason: "looked like spam"}, nil
		}
		return guardrail.Verdict{Valid: true}, nil
	}

	cfg := engine.Config{
		InputGuardrails: guardrail.Set{
			Guardrails: []guardrail.Func{spamGuardrail},
			Config:     guardrail.Config{Mode: guardrail.ModeSequential, FailSafe: guardrail.FailSafeAllow},
		},
	}

	result := eng.Run(context.Background(), baseState("assistant", "spam"), cfg)

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.Equal(t, agent.ErrInputGuardrailTripwire, result.Outcome.Err.Code)
	assert.Equal(t, 0, m.calls, "sequential guardrail must block before the model is ever called")
}

type fakeLogger struct {
	warnings []string
}

func (f *fakeLogger) Debug(context.Context, string, ...any) {}
func (f *fakeLogger) Info(context.Context, string, ...any)  {}
func (f *fakeLogger) Warn(_ context.Context, msg string, _ ...any) {
	f.warnings = append(f.warnings, msg)
}
func (f *fakeLogger) Error(context.Context, string, ...any) {}

// Engine.Logger is consulted on run errors even when nothing configures
// OnEvent, so a caller that wires telemetry but not tracing still sees the
// failure surfaced (spec §9 "ambient logging").
func TestScenario_EngineLoggerReceivesRunErrors(t *testing.T) {
	m := &scriptedModel{}
	reg := engine.Registry{"assistant": {Name: "assistant"}}
	eng := engine.New(reg, m, nil, nil)
	logger := &fakeLogger{}
	eng.Logger = logger

	result := eng.Run(context.Background(), baseState("missing-agent", "hi"), engine.Config{})

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.NotEmpty(t, logger.warnings)
}

// S6 — Clarification.
func TestScenario_Clarification(t *testing.T) {
	m := &scriptedModel{responses: []model.Response{
		{ToolCalls: []model.ToolCallResult{toolCall(
			"call-1", "request_user_clarification",
			`{"question":"Which airport?","options":[{"id":"JFK","label":"JFK"},{"id":"EWR","label":"EWR"}]}`,
		)}, StopReason: "tool_use"},
		{Content: "Booking from JFK.", StopReason: "end_turn"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant"}}
	eng := engine.New(reg, m, nil, nil)

	cfg := engine.Config{AllowClarification: true}
	first := eng.Run(context.Background(), baseState("assistant", "book a flight"), cfg)

	require.Equal(t, agent.OutcomeInterrupted, first.Outcome.Kind)
	require.Len(t, first.Outcome.Interruptions, 1)
	clarID := first.Outcome.Interruptions[0].ClarificationID
	require.NotEmpty(t, clarID)

	resumed := first.FinalState
	resumed.Clarifications = map[string]string{clarID: "JFK"}

	var sawClarificationProvided bool
	cfg2 := engine.Config{AllowClarification: true, OnEvent: func(e agent.TraceEvent) {
		if e.Type == agent.EventClarificationProvided {
			sawClarificationProvided = true
		}
	}}
	final := eng.Run(context.Background(), resumed, cfg2)

	require.Equal(t, agent.OutcomeCompleted, final.Outcome.Kind)
	assert.True(t, sawClarificationProvided)
	assert.Equal(t, "Booking from JFK.", final.Outcome.Output.Text)
	assert.Equal(t, 2, m.calls, "one model call to surface the clarification, one more once it's answered")
}

// S7 — Max turns.
func TestScenario_MaxTurnsExceeded(t *testing.T) {
	alwaysToolCall := func() model.Response {
		return model.Response{ToolCalls: []model.ToolCallResult{toolCall("call-x", "noop", `{}`)}, StopReason: "tool_use"}
	}
	m := &scriptedModel{responses: []model.Response{alwaysToolCall(), alwaysToolCall(), alwaysToolCall()}}
	noop := tools.Tool{
		Name:            "noop",
		ParameterSchema: []byte(`{"type":"object"}`),
		Execute:         func(ctx context.Context, args map[string]any, execCtx map[string]any) (any, error) { return "ok", nil },
	}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{noop}}}
	eng := engine.New(reg, m, nil, nil)

	result := eng.Run(context.Background(), baseState("assistant", "go"), engine.Config{MaxTurns: 2})

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.Equal(t, agent.ErrMaxTurnsExceeded, result.Outcome.Err.Code)
	assert.Equal(t, 2, result.Outcome.Err.Turns)
}
