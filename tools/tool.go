// Package tools defines the tool contract and the dispatcher that executes
// tool calls on behalf of the turn engine: argument validation, approval and
// clarification gating, execution, and translation into canonical tool-reply
// envelopes (spec §4.2).
package tools

import "context"

// Ident is a tool name, aliased to a distinct type so call sites cannot
// confuse a tool identifier with an arbitrary string, mirroring the
// teacher's tools.Ident wrapper.
type Ident string

// Status enumerates the canonical tool-reply envelope status values produced
// by the dispatcher (spec §4.2 step 13, glossary "tool reply envelope").
type Status string

const (
	StatusExecuted              Status = "executed"
	StatusApprovedAndExecuted   Status = "approved_and_executed"
	StatusHalted                Status = "halted"
	StatusToolNotFound          Status = "tool_not_found"
	StatusValidationError       Status = "validation_error"
	StatusApprovalDenied        Status = "approval_denied"
	StatusExecutionError        Status = "execution_error"
	StatusAwaitingClarification Status = "awaiting_clarification"
)

// Result is the outcome of a tool's execute function when it is not a plain
// string: a structured payload with a status and optional metadata.
type Result struct {
	Status   string
	Data     any
	Metadata map[string]any
}

// NeedsApproval decides, for a given invocation, whether a human approval
// gate must be satisfied before the tool executes. Implementations may
// ignore ctx/args for a constant policy.
type NeedsApproval func(ctx context.Context, args map[string]any) bool

// Tool is a single invocable capability exposed to an Agent. Exactly one of
// Execute's return values is meaningful per call: a plain string, a
// structured Result, or a handoff signal communicated via the `handoff_to`
// convention described in spec §4.2 step 11.
type Tool struct {
	Name            Ident
	Description     string
	ParameterSchema []byte // JSON Schema document; compiled lazily by the dispatcher.
	Execute         func(ctx context.Context, args map[string]any, execCtx map[string]any) (any, error)
	NeedsApprovalFn NeedsApproval
}

// RequiresApproval evaluates the tool's approval policy for the given call.
// A nil NeedsApprovalFn never requires approval.
func (t Tool) RequiresApproval(ctx context.Context, args map[string]any) bool {
	if t.NeedsApprovalFn == nil {
		return false
	}
	return t.NeedsApprovalFn(ctx, args)
}
