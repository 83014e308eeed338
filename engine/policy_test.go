package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/engine"
	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/policy"
	"github.com/agentcore-ai/agentcore/tools"
)

func TestPolicy_RestrictsToolAllowlist(t *testing.T) {
	weather := tools.Tool{
		Name:            "get_weather",
		ParameterSchema: []byte(`{"type":"object"}`),
		Execute: func(context.Context, map[string]any, map[string]any) (any, error) {
			return "sunny", nil
		},
	}
	m := &scriptedModel{responses: []model.Response{
		{Content: "calculator is unavailable right now", StopReason: "end_turn"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{calculatorTool(), weather}}}
	eng := engine.New(reg, m, nil, nil)

	var seenAvailable []string
	pol := policy.Func(func(_ context.Context, _ agent.RunState, _ string, available []string) (policy.Decision, error) {
		seenAvailable = available
		return policy.Decision{AllowedTools: []string{"get_weather"}}, nil
	})

	result := eng.Run(context.Background(), baseState("assistant", "what's the weather and 2+2?"), engine.Config{Policy: pol})

	require.Equal(t, agent.OutcomeCompleted, result.Outcome.Kind)
	assert.ElementsMatch(t, []string{"calculator", "get_weather"}, seenAvailable)
}

func TestPolicy_MaxToolCallsExceeded(t *testing.T) {
	m := &scriptedModel{}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{calculatorTool()}}}
	eng := engine.New(reg, m, nil, nil)

	state := baseState("assistant", "what is 2+2?")
	state.TurnCount = 3
	pol := policy.Static(policy.Decision{MaxToolCalls: 2})

	result := eng.Run(context.Background(), state, engine.Config{Policy: pol})

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.ErrorIs(t, result.Outcome.Err, &agent.RunError{Code: agent.ErrPolicyDenied})
}

func TestPolicy_DeadlineExceeded(t *testing.T) {
	m := &scriptedModel{}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{calculatorTool()}}}
	eng := engine.New(reg, m, nil, nil)

	pol := policy.Static(policy.Decision{Deadline: time.Now().Add(-time.Minute)})

	result := eng.Run(context.Background(), baseState("assistant", "hi"), engine.Config{Policy: pol})

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.ErrorIs(t, result.Outcome.Err, &agent.RunError{Code: agent.ErrPolicyDenied})
}

func TestPolicy_ConsecutiveFailuresHaltsRun(t *testing.T) {
	failing := tools.Tool{
		Name:            "calculator",
		ParameterSchema: []byte(`{"type":"object"}`),
		Execute: func(context.Context, map[string]any, map[string]any) (any, error) {
			return nil, assertNoMoreCalls
		},
	}
	m := &scriptedModel{responses: []model.Response{
		{ToolCalls: []model.ToolCallResult{toolCall("call-1", "calculator", `{}`)}, StopReason: "tool_use"},
		{ToolCalls: []model.ToolCallResult{toolCall("call-2", "calculator", `{}`)}, StopReason: "tool_use"},
	}}
	reg := engine.Registry{"assistant": {Name: "assistant", Tools: []tools.Tool{failing}}}
	eng := engine.New(reg, m, nil, nil)

	pol := policy.Static(policy.Decision{MaxConsecutiveFailedToolCalls: 1})

	result := eng.Run(context.Background(), baseState("assistant", "2+2"), engine.Config{Policy: pol})

	require.Equal(t, agent.OutcomeError, result.Outcome.Kind)
	assert.ErrorIs(t, result.Outcome.Err, &agent.RunError{Code: agent.ErrPolicyDenied})
	assert.Equal(t, 1, m.calls, "the second turn must be denied before a second model call")
}

func TestRunNested_ReturnsNestedFinalOutput(t *testing.T) {
	m := &scriptedModel{responses: []model.Response{
		{Content: "the answer is 4", StopReason: "end_turn"},
	}}
	reg := engine.Registry{
		"calculator": {Name: "calculator"},
	}
	eng := engine.New(reg, m, nil, nil)

	out, err := eng.RunNested(context.Background(), "calculator", baseState("assistant", "ignored"), "what is 2+2?", engine.Config{})

	require.NoError(t, err)
	assert.Equal(t, "the answer is 4", out)
}

func TestRunNested_UnknownAgent(t *testing.T) {
	eng := engine.New(engine.Registry{}, &scriptedModel{}, nil, nil)

	_, err := eng.RunNested(context.Background(), "missing", baseState("assistant", "ignored"), "hi", engine.Config{})

	require.Error(t, err)
	assert.ErrorIs(t, err, &agent.RunError{Code: agent.ErrAgentNotFound})
}
