package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/engine"
	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/stream"
)

type fakeModel struct{ content string }

func (m fakeModel) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	return model.Response{Content: m.content, StopReason: "end_turn"}, nil
}

func (m fakeModel) Stream(ctx context.Context, req model.Request) (model.Streamer, error) {
	return nil, model.ErrStreamingUnsupported
}

func newTestEngine(content string) *engine.Engine {
	reg := engine.Registry{
		"assistant": {Name: "assistant"},
	}
	return engine.New(reg, fakeModel{content: content}, nil, nil)
}

func initialState() agent.RunState {
	return agent.RunState{
		RunID:            "run-1",
		CurrentAgentName: "assistant",
		Messages:         []agent.Message{{Role: agent.RoleUser, Text: "hi"}},
	}
}

func TestRunStream_DeliversEventsAndResult(t *testing.T) {
	f := &stream.Facade{Engine: newTestEngine("hello there")}
	rs := f.Run(context.Background(), initialState(), engine.Config{}, nil)

	var types []agent.EventType
	for evt := range rs.Events() {
		types = append(types, evt.Type)
	}

	result := rs.Result()
	require.Equal(t, agent.OutcomeCompleted, result.Outcome.Kind)
	require.NotNil(t, result.Outcome.Output)
	assert.Equal(t, "hello there", result.Outcome.Output.Text)

	assert.Contains(t, types, agent.EventRunStart)
	assert.Contains(t, types, agent.EventFinalOutput)
	assert.Contains(t, types, agent.EventRunEnd)
}

func TestRunStream_ForwardsToCallerHook(t *testing.T) {
	var seen []agent.EventType
	cfg := engine.Config{OnEvent: func(evt agent.TraceEvent) {
		seen = append(seen, evt.Type)
	}}

	f := &stream.Facade{Engine: newTestEngine("ok")}
	rs := f.Run(context.Background(), initialState(), cfg, nil)

	for range rs.Events() {
	}
	rs.Result()

	assert.Contains(t, seen, agent.EventRunStart)
	assert.Contains(t, seen, agent.EventRunEnd)
}

func TestRunStream_ResultAvailableWithoutDrainingEvents(t *testing.T) {
	f := &stream.Facade{Engine: newTestEngine("quick")}
	rs := f.Run(context.Background(), initialState(), engine.Config{}, nil)

	select {
	case result := <-resultOrTimeout(rs):
		assert.Equal(t, agent.OutcomeCompleted, result.Outcome.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("Result() did not return in time")
	}
}

func resultOrTimeout(rs *stream.RunStream) <-chan agent.RunResult {
	ch := make(chan agent.RunResult, 1)
	go func() { ch <- rs.Result() }()
	return ch
}
