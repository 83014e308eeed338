// Package engine implements the turn loop that drives a run to completion,
// interruption, or error: resolving the current agent, invoking guardrails,
// calling the model, dispatching tool calls, and following handoffs between
// agents (spec §4.1).
package engine

import (
	"encoding/json"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/guardrail"
	"github.com/agentcore-ai/agentcore/memory"
	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/policy"
	"github.com/agentcore-ai/agentcore/telemetry"
	"github.com/agentcore-ai/agentcore/tools"
)

// ModelConfig pins an agent to a specific model name. A zero value defers to
// Config.ModelOverride or a streaming provider's own default.
type ModelConfig struct {
	Name string
}

// GuardrailPolicy lets an agent override the run's default guardrail
// execution mode and fail-safe policy (spec §4.1 "advanced_config.guardrails
// may override the run's guardrails with prompt-driven validators").
type GuardrailPolicy struct {
	Mode     guardrail.ExecutionMode
	FailSafe guardrail.FailSafe
}

// AdvancedConfig carries agent-level overrides to otherwise run-wide policy.
type AdvancedConfig struct {
	Guardrails *GuardrailPolicy
}

// InstructionFn is a pure function of the current run state returning the
// system prompt for this turn (spec §3 "instruction_fn is a pure function of
// the current run state").
type InstructionFn func(state agent.RunState) string

// Agent is a named unit of behavior: instruction, tools, allowed handoffs,
// and model configuration (spec glossary "Agent").
type Agent struct {
	Name            string
	InstructionFn   InstructionFn
	Tools           []tools.Tool
	OutputSchema    json.RawMessage // nil if the agent returns raw text
	AllowedHandoffs []string
	ModelConfig     ModelConfig
	AdvancedConfig  AdvancedConfig
}

func (a Agent) allowsHandoffTo(target string) bool {
	for _, h := range a.AllowedHandoffs {
		if h == target {
			return true
		}
	}
	return false
}

// Registry resolves an agent by name (spec §4.1 "agent = registry[state.current_agent_name]").
type Registry map[string]Agent

// Config controls a single Run invocation: model resolution, turn limits,
// guardrails, memory, and the clarification tool toggle.
type Config struct {
	// ModelOverride supplies a model name when the current agent's
	// ModelConfig.Name is unset. Ignored if the agent's name is set — the
	// agent wins for non-streaming providers (spec §4.1 tie-breaks).
	ModelOverride string

	// MaxTurns bounds the loop; 0 uses the spec default of 50.
	MaxTurns int

	// AllowClarification injects the synthetic request_user_clarification
	// tool into every agent's effective tool set.
	AllowClarification bool

	// OnEvent receives every TraceEvent the run emits, fire-and-forget.
	OnEvent agent.OnEvent

	// InputGuardrails run once, on turn 0, against the last user message.
	InputGuardrails guardrail.Set
	// OutputGuardrails run against the model's final text content.
	OutputGuardrails guardrail.Set

	// SessionID scopes tool-approval interruptions (spec §4.2, ToolApproval.SessionID).
	SessionID string

	// Hooks are forwarded to the tool dispatcher unchanged. They are not
	// used when the Engine was built with its own Dispatcher.
	Hooks tools.Hooks

	// MemoryConfig controls whether/how this run loads and persists
	// conversation history through the Engine's Memory broker. Ignored if
	// the Engine has no Memory configured.
	MemoryConfig memory.Config

	// Policy, when set, is consulted once per planner turn to compute a
	// dynamic tool allowlist and cap adjustment on top of MaxTurns (spec
	// §9.1 "Policy engine hook"). A nil Policy keeps spec.md's static
	// behavior: every agent-declared tool available, only MaxTurns enforced.
	Policy policy.Engine
}

// defaultMaxTurns matches spec §4.1 "maxTurns defaults to 50".
const defaultMaxTurns = 50

func (c Config) maxTurns() int {
	if c.MaxTurns > 0 {
		return c.MaxTurns
	}
	return defaultMaxTurns
}

// Engine ties a model client and tool dispatcher to an agent registry and
// drives runs to completion (spec §4.1 C5 "Turn Engine").
type Engine struct {
	Registry   Registry
	Model      model.Client
	Dispatcher *tools.Dispatcher
	// Memory is optional; when set, Run loads prior conversation history at
	// the start of a run and persists the run's messages on completion or
	// interruption (spec §4.4).
	Memory *memory.Broker
	// Logger is optional structured logging for run lifecycle events (start,
	// end, policy denial, interruption, error). A nil Logger is a silent
	// no-op, same as leaving OnEvent unset (spec §9 "ambient logging").
	Logger telemetry.Logger
}

// New constructs an Engine. dispatcher may be nil, in which case a default
// Dispatcher is created, wired to the OnEvent and Hooks the caller passes
// to Run via Config. mem may be nil to opt out of memory entirely.
func New(reg Registry, m model.Client, dispatcher *tools.Dispatcher, mem *memory.Broker) *Engine {
	return &Engine{Registry: reg, Model: m, Dispatcher: dispatcher, Memory: mem}
}

func (e *Engine) dispatcher(onEvent agent.OnEvent, hooks tools.Hooks) *tools.Dispatcher {
	if e.Dispatcher != nil {
		return e.Dispatcher
	}
	return tools.NewDispatcher(onEvent, hooks)
}

func (e *Engine) logger() telemetry.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return telemetry.NoopLogger{}
}

func toolRegistryFrom(ts []tools.Tool) tools.MapRegistry {
	reg := make(tools.MapRegistry, len(ts))
	for _, t := range ts {
		reg[t.Name] = t
	}
	return reg
}
