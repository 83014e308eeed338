// Package agent defines the immutable state, message, and event types shared
// by every component of the execution core: the turn engine, the tool
// dispatcher, the guardrail executor, and the memory broker. Nothing in this
// package depends on a concrete LLM provider, memory backend, or transport —
// those are supplied by callers through the interfaces declared in the
// sibling tools, memory, and model packages.
package agent

import "encoding/json"

// RunID identifies a single invocation of the engine. It is an opaque,
// string-tagged value rather than a bare string so call sites cannot
// accidentally swap it with a TraceID or tool-call ID.
type RunID string

// TraceID spans a logically grouped sequence of runs, for example a run and
// every run it is resumed into after an interruption.
type TraceID string

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

type (
	// Part is a marker interface implemented by every message content block.
	// Messages carry an ordered sequence of parts rather than a flattened
	// string so multimodal content and plain text compose uniformly.
	Part interface{ isPart() }

	// TextPart is a plain text content block.
	TextPart struct{ Text string }

	// ImageRefPart references an image attachment by index into
	// Message.Attachments rather than embedding bytes inline.
	ImageRefPart struct{ AttachmentIndex int }

	// FileRefPart references a non-image attachment by index into
	// Message.Attachments.
	FileRefPart struct{ AttachmentIndex int }
)

func (TextPart) isPart()     {}
func (ImageRefPart) isPart() {}
func (FileRefPart) isPart()  {}

// AttachmentKind enumerates the kinds of binary content a Message can carry.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
	AttachmentFile     AttachmentKind = "file"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentVideo    AttachmentKind = "video"
)

// Attachment carries binary content referenced by a message's parts. Exactly
// one of URL or Base64 should be populated. The engine does not forward
// attachments into model requests, so no provider adapter reads or checks
// them.
type Attachment struct {
	Kind   AttachmentKind
	URL    string
	Base64 string
	MIME   string
	Name   string
	Format string
}

// ToolCall is a single tool invocation requested by the model inside an
// assistant message. IDs are unique within that message and are the join key
// for the tool-role reply that answers it (invariant 1, spec §3/§8).
type ToolCall struct {
	ID            string
	FunctionName  string
	ArgumentsJSON string
}

// Message is a single turn in the conversation. Content is either a plain
// string (Text) or an ordered sequence of Parts; most callers only need
// Text. ToolCalls is only meaningful on assistant messages; ToolCallID is
// only meaningful on tool messages.
type Message struct {
	// ID is an optional caller-assigned identifier, used by checkpoint
	// restore's by-id selector; most callers leave it empty and address
	// messages by index or content instead.
	ID          string
	Role        Role
	Text        string
	Parts       []Part
	Attachments []Attachment
	ToolCalls   []ToolCall
	ToolCallID  string
}

// Content returns the message's textual content, preferring the flattened
// Parts sequence when present and falling back to Text.
func (m Message) Content() string {
	if len(m.Parts) == 0 {
		return m.Text
	}
	var out string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// RetryHint carries structured guidance a tool-execution failure attaches
// for the next planner turn (spec §9.1 "Retry hints", grounded on
// planner.RetryHint / policy.RetryHint). It supplements, without replacing,
// the envelope's plain-string Message: a policy.Engine can read it to steer
// the following turn (e.g. restricting the tool set to just the failed
// tool), while callers that ignore it still see the same Message they
// always did.
type RetryHint struct {
	Reason             string          `json:"reason"`
	Tool               string          `json:"tool"`
	RestrictToTool     bool            `json:"restrict_to_tool,omitempty"`
	MissingFields      []string        `json:"missing_fields,omitempty"`
	ExampleInput       json.RawMessage `json:"example_input,omitempty"`
	ClarifyingQuestion string          `json:"clarifying_question,omitempty"`
}

// toolReplyEnvelope is the canonical JSON wrapper the dispatcher produces for
// every tool outcome (spec §4.2 step 13, glossary "tool reply envelope").
type toolReplyEnvelope struct {
	Status          string         `json:"status"`
	Result          any            `json:"result,omitempty"`
	ToolName        string         `json:"tool_name,omitempty"`
	Message         string         `json:"message,omitempty"`
	ValidationErrs  []string       `json:"validation_errors,omitempty"`
	ApprovalContext map[string]any `json:"approval_context,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	ClarificationID string         `json:"clarification_id,omitempty"`
	RetryHint       *RetryHint     `json:"retry_hint,omitempty"`
}

// ToolReplyRetryHint returns the "retry_hint" field of a tool-role message's
// JSON content, or nil if absent or the content is not a valid envelope.
func ToolReplyRetryHint(content string) *RetryHint {
	var env toolReplyEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil
	}
	return env.RetryHint
}

// ToolReplyStatus returns the "status" field of a tool-role message's JSON
// content, or "" if the content is not a valid envelope. Used by the memory
// broker to filter halted placeholders.
func ToolReplyStatus(content string) string {
	var env toolReplyEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return ""
	}
	return env.Status
}

// ApprovalStatus enumerates the lifecycle of a human approval gate on a tool
// call that has needs_approval == true.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalValue records the resolution of a human approval gate. When Status
// is ApprovalApproved, AdditionalContext (if present) is shallow-merged into
// the tool's execution context for that single call only (invariant 5).
type ApprovalValue struct {
	Status            ApprovalStatus
	AdditionalContext map[string]any
	RejectionReason   string
}

// RunState is the immutable per-step snapshot the engine threads through the
// turn loop. Every step produces a new RunState rather than mutating one in
// place (§5 "State is treated as immutable").
type RunState struct {
	RunID            RunID
	TraceID          TraceID
	Messages         []Message
	CurrentAgentName string
	Context          map[string]any
	TurnCount        int
	Approvals        map[string]ApprovalValue
	Clarifications   map[string]string
}

// Clone returns a shallow copy of s with independently-mutable Messages,
// Context, Approvals, and Clarifications maps/slices (copy-on-write per §5).
func (s RunState) Clone() RunState {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Context = cloneAnyMap(s.Context)
	out.Approvals = cloneApprovals(s.Approvals)
	out.Clarifications = cloneStringMap(s.Clarifications)
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneApprovals(m map[string]ApprovalValue) map[string]ApprovalValue {
	if m == nil {
		return nil
	}
	out := make(map[string]ApprovalValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// InterruptionKind discriminates the tagged Interruption sum.
type InterruptionKind string

const (
	InterruptionToolApproval        InterruptionKind = "tool_approval"
	InterruptionClarificationNeeded InterruptionKind = "clarification_required"
)

// Interruption is a first-class pause: either a pending tool approval gate or
// an outstanding clarification request.
type Interruption struct {
	Kind InterruptionKind

	// ToolApproval fields, set when Kind == InterruptionToolApproval.
	ToolCall  ToolCall
	AgentName string
	SessionID string

	// Clarification fields, set when Kind == InterruptionClarificationNeeded.
	ClarificationID string
	Question        string
	Options         []ClarificationOption
	ClarifyContext  map[string]any
}

// ClarificationOption is one selectable answer to a clarification request.
type ClarificationOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// OutcomeKind discriminates the tagged RunResult.Outcome sum.
type OutcomeKind string

const (
	OutcomeCompleted   OutcomeKind = "completed"
	OutcomeError       OutcomeKind = "error"
	OutcomeInterrupted OutcomeKind = "interrupted"
)

// Outcome is the tagged result of a run: exactly one of Output, Err, or
// Interruptions is meaningful, selected by Kind.
type Outcome struct {
	Kind          OutcomeKind
	Output        *FinalOutput
	Err           *RunError
	Interruptions []Interruption
}

// FinalOutput carries the assistant's terminal response, decoded against the
// agent's output schema when one is configured.
type FinalOutput struct {
	Text      string
	Decoded   any
	RawSchema json.RawMessage
}

// RunResult is what Engine.Run returns for every terminal condition —
// success, error, or interruption — so downstream callers can always render
// the partial conversation from FinalState (spec §7 "User-visible behavior").
type RunResult struct {
	FinalState RunState
	Outcome    Outcome
}
