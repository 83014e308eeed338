package agent

import "time"

// EventType enumerates the ordered union of trace events the engine can
// produce (spec §6 "Trace events (produced)"). Event ordering within a
// single run is guaranteed by a single writer (§5).
type EventType string

const (
	EventRunStart               EventType = "run_start"
	EventTurnStart              EventType = "turn_start"
	EventLLMCallStart           EventType = "llm_call_start"
	EventLLMCallEnd             EventType = "llm_call_end"
	EventTokenUsage             EventType = "token_usage"
	EventToolRequests           EventType = "tool_requests"
	EventBeforeToolExecution    EventType = "before_tool_execution"
	EventToolCallStart          EventType = "tool_call_start"
	EventToolCallEnd            EventType = "tool_call_end"
	EventToolResultsToLLM       EventType = "tool_results_to_llm"
	EventAssistantMessage       EventType = "assistant_message"
	EventAgentProcessing        EventType = "agent_processing"
	EventHandoff                EventType = "handoff"
	EventHandoffDenied          EventType = "handoff_denied"
	EventClarificationRequested EventType = "clarification_requested"
	EventClarificationProvided  EventType = "clarification_provided"
	EventGuardrailCheck         EventType = "guardrail_check"
	EventGuardrailViolation     EventType = "guardrail_violation"
	EventMemoryOperation        EventType = "memory_operation"
	EventOutputParse            EventType = "output_parse"
	EventDecodeError            EventType = "decode_error"
	EventFinalOutput            EventType = "final_output"
	EventTurnEnd                EventType = "turn_end"
	EventRunEnd                 EventType = "run_end"
)

// TraceEvent is a single emitted step of a run. Data holds event-specific
// fields as a plain map so the event taxonomy can grow without breaking the
// on_event hook signature (spec §6 "Each event carries {type, data}").
type TraceEvent struct {
	Type      EventType
	RunID     RunID
	Timestamp time.Time
	Data      map[string]any
}

// NewEvent constructs a TraceEvent stamped with the current time.
func NewEvent(t EventType, runID RunID, data map[string]any) TraceEvent {
	return TraceEvent{Type: t, RunID: runID, Timestamp: time.Now(), Data: data}
}

// OnEvent is the fire-and-forget hook the engine invokes for every emitted
// event (spec §4.1 "Emits a linear stream of TraceEvents via
// config.on_event").
type OnEvent func(TraceEvent)

// informational reports whether an event type is safe to drop under stream
// backpressure (spec §5 "may drop oldest informational events ... but never
// contract-bearing events").
func (t EventType) informational() bool {
	switch t {
	case EventTurnStart, EventTokenUsage, EventAgentProcessing, EventGuardrailCheck:
		return true
	default:
		return false
	}
}

// Informational reports whether the event is eligible to be dropped under
// stream backpressure.
func (e TraceEvent) Informational() bool { return e.Type.informational() }
