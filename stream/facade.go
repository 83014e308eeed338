// Package stream wraps a single Engine.Run invocation with a concurrently
// readable sequence of TraceEvents, so a caller can render a live trace of
// an in-flight run without blocking on its final RunResult (spec §4.5).
//
// The teacher's corresponding package (runtime/agent/stream) exposes a rich
// per-event-kind Sink/Event hierarchy (AssistantReply, ToolStart, ToolEnd,
// Usage, ...) with typed wire payloads for SSE/WebSocket/Pulse transports.
// This rework's engine already emits one generic agent.TraceEvent envelope
// for every step, so the facade collapses that hierarchy to a single queue
// of agent.TraceEvent rather than re-deriving per-kind wire types — the
// queue-and-forward architecture and the before_tool_execution mutation
// hook are kept, generalized to that one envelope type.
package stream

import (
	"context"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/engine"
)

// BeforeToolExecutionHandler lets a stream consumer observe and optionally
// replace a tool call's arguments before execution, mirroring
// tools.Hooks.BeforeExecution (spec §4.5 "the mechanism used to let the
// stream consumer modify tool arguments observed through
// before_tool_execution").
type BeforeToolExecutionHandler func(ctx context.Context, call agent.ToolCall, args map[string]any) map[string]any

// Facade drives a single run through an Engine while exposing its TraceEvent
// sequence concurrently.
type Facade struct {
	Engine *engine.Engine
}

// RunStream is the live handle for one in-flight run.
type RunStream struct {
	queue  *unboundedQueue
	events chan agent.TraceEvent
	result chan agent.RunResult
}

// Events yields every TraceEvent emitted by the run, in order. The channel
// closes once the run has ended and every event has drained (spec §5
// "end-of-stream is idempotent").
func (s *RunStream) Events() <-chan agent.TraceEvent { return s.events }

// Result blocks until the run completes, returning its terminal RunResult.
// Safe to call concurrently with draining Events.
func (s *RunStream) Result() agent.RunResult { return <-s.result }

// Run starts cfg's run on a background goroutine and returns immediately.
// Every event the engine emits is pushed to the returned RunStream's queue
// and also forwarded to cfg.OnEvent (if set), preserving any trace hook the
// caller already configured. If handler is non-nil, it is composed with any
// existing cfg.Hooks.BeforeExecution, running first.
func (f *Facade) Run(ctx context.Context, initial agent.RunState, cfg engine.Config, handler BeforeToolExecutionHandler) *RunStream {
	q := newUnboundedQueue()
	events := make(chan agent.TraceEvent)
	resultCh := make(chan agent.RunResult, 1)

	callerHook := cfg.OnEvent
	cfg.OnEvent = func(evt agent.TraceEvent) {
		q.push(evt)
		if callerHook != nil {
			callerHook(evt)
		}
	}

	if handler != nil {
		prevBefore := cfg.Hooks.BeforeExecution
		cfg.Hooks.BeforeExecution = func(ctx context.Context, call agent.ToolCall, args map[string]any) map[string]any {
			if replacement := handler(ctx, call, args); replacement != nil {
				args = replacement
			}
			if prevBefore != nil {
				if replaced := prevBefore(ctx, call, args); replaced != nil {
					return replaced
				}
			}
			return args
		}
	}

	// Drain goroutine: the run future is effectively awaited here, in a
	// finally-equivalent defer, so the stream always closes even if Run
	// panics or the engine returns early (spec §4.5 "The run future is
	// awaited in a finally-block so the stream always drains").
	go func() {
		defer close(events)
		for {
			v, ok := q.next()
			if !ok {
				return
			}
			events <- v.(agent.TraceEvent)
		}
	}()

	go func() {
		defer func() {
			q.closeQueue()
		}()
		result := f.Engine.Run(ctx, initial, cfg)
		resultCh <- result
		close(resultCh)
	}()

	return &RunStream{queue: q, events: events, result: resultCh}
}
