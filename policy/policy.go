// Package policy defines the optional dynamic-allowlist hook a turn engine
// consults before each planner turn (spec §9.1 "Policy engine hook", grounded
// on runtime/agent/policy and agents/runtime/policy). It is a strict
// superset of spec.md's static maxTurns/agent-tools behavior: an engine with
// no policy.Engine configured falls back to that exact behavior unmodified.
package policy

import (
	"context"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
)

// Decision adjusts the current turn's tool allowlist and caps. A zero value
// for any field leaves the corresponding engine default untouched:
// AllowedTools nil keeps every agent-declared tool available, MaxToolCalls
// and MaxConsecutiveFailedToolCalls of 0 disable that cap, and a zero
// Deadline never expires.
type Decision struct {
	// Denied halts the run immediately on this turn with DenyReason,
	// independent of every other field, letting an Engine reject a turn for
	// a reason the other caps don't model (e.g. a rate limiter with no
	// tokens left).
	Denied     bool
	DenyReason string

	// AllowedTools restricts the effective tool set to this subset of names,
	// by tool name, for this turn only. Nil means no restriction.
	AllowedTools []string
	// MaxToolCalls bounds the total number of turns that may involve a tool
	// dispatch over the life of the run (approximated against the engine's
	// existing turn counter, since no separate per-tool-call counter exists
	// independent of turns).
	MaxToolCalls int
	// MaxConsecutiveFailedToolCalls halts the run once this many tool-dispatch
	// rounds in a row produced only failing tool-reply envelopes.
	MaxConsecutiveFailedToolCalls int
	// Deadline, once non-zero and passed, halts the run on the next turn.
	Deadline time.Time
}

// Engine is consulted once per planner turn, before the model is called, to
// compute this turn's Decision from the run's current state.
type Engine interface {
	Decide(ctx context.Context, state agent.RunState, agentName string, availableTools []string) (Decision, error)
}

// Func adapts a plain function to Engine.
type Func func(ctx context.Context, state agent.RunState, agentName string, availableTools []string) (Decision, error)

func (f Func) Decide(ctx context.Context, state agent.RunState, agentName string, availableTools []string) (Decision, error) {
	return f(ctx, state, agentName, availableTools)
}
