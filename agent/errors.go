package agent

import (
	"errors"
	"fmt"
)

// RunErrorCode tags the terminal error conditions a run can surface (spec §7).
type RunErrorCode string

const (
	ErrMaxTurnsExceeded        RunErrorCode = "max_turns_exceeded"
	ErrModelBehavior           RunErrorCode = "model_behavior_error"
	ErrDecode                  RunErrorCode = "decode_error"
	ErrInputGuardrailTripwire  RunErrorCode = "input_guardrail_tripwire"
	ErrOutputGuardrailTripwire RunErrorCode = "output_guardrail_tripwire"
	ErrToolCall                RunErrorCode = "tool_call_error"
	ErrHandoff                 RunErrorCode = "handoff_error"
	ErrAgentNotFound           RunErrorCode = "agent_not_found"
	ErrPolicyDenied            RunErrorCode = "policy_denied"
)

// RunError is a structured, chainable error for every tagged failure mode the
// engine can terminate with. It mirrors the teacher's toolerrors.ToolError
// shape (message + optional cause) generalized from tool-only failures to the
// full run error taxonomy, so errors.Is/errors.As work uniformly whether the
// failure originated in the dispatcher, the guardrail executor, or the turn
// engine itself.
type RunError struct {
	Code RunErrorCode
	Msg  string

	// Turns is populated for ErrMaxTurnsExceeded.
	Turns int
	// AgentName is populated for ErrAgentNotFound and ErrHandoff.
	AgentName string
	// ToolName is populated for ErrToolCall and ErrHandoff.
	ToolName string
	// Reason is populated for ErrInputGuardrailTripwire/ErrOutputGuardrailTripwire.
	Reason string
	// Issues is populated for ErrDecode.
	Issues []string

	Cause error
}

func (e *RunError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Code)
}

// Unwrap supports errors.Is/errors.As across the cause chain.
func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is a *RunError with the same Code, so callers can
// write `errors.Is(err, &RunError{Code: agent.ErrMaxTurnsExceeded})`.
func (e *RunError) Is(target error) bool {
	t, ok := target.(*RunError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewMaxTurnsExceeded constructs the ErrMaxTurnsExceeded variant.
func NewMaxTurnsExceeded(turns int) *RunError {
	return &RunError{Code: ErrMaxTurnsExceeded, Turns: turns, Msg: fmt.Sprintf("max turns exceeded: %d", turns)}
}

// NewModelBehaviorError constructs the ErrModelBehavior variant, optionally
// wrapping an underlying provider error.
func NewModelBehaviorError(detail string, cause error) *RunError {
	return &RunError{Code: ErrModelBehavior, Msg: detail, Cause: cause}
}

// NewDecodeError constructs the ErrDecode variant.
func NewDecodeError(issues []string) *RunError {
	return &RunError{Code: ErrDecode, Msg: "output did not conform to output schema", Issues: issues}
}

// NewGuardrailTripwire constructs either the input or output guardrail
// tripwire variant depending on input.
func NewGuardrailTripwire(input bool, reason string) *RunError {
	code := ErrOutputGuardrailTripwire
	if input {
		code = ErrInputGuardrailTripwire
	}
	return &RunError{Code: code, Reason: reason, Msg: reason}
}

// NewToolCallError constructs the ErrToolCall variant for catastrophic
// dispatcher failures (not ordinary tool execution errors, which become
// tool-reply messages instead — see spec §7 "Propagation policy").
func NewToolCallError(tool, detail string, cause error) *RunError {
	return &RunError{Code: ErrToolCall, ToolName: tool, Msg: detail, Cause: cause}
}

// NewHandoffError constructs the ErrHandoff variant for a handoff to a target
// not present in the current agent's allowed_handoffs.
func NewHandoffError(from, to string) *RunError {
	return &RunError{
		Code:      ErrHandoff,
		AgentName: to,
		ToolName:  from,
		Msg:       fmt.Sprintf("agent %q may not hand off to %q", from, to),
	}
}

// NewAgentNotFound constructs the ErrAgentNotFound variant for a registry miss.
func NewAgentNotFound(name string) *RunError {
	return &RunError{Code: ErrAgentNotFound, AgentName: name, Msg: fmt.Sprintf("agent %q not found", name)}
}

// NewPolicyDenied constructs the ErrPolicyDenied variant, surfaced when a
// configured policy.Engine's cap (tool-call count, consecutive failures, or
// deadline) is exceeded (spec §9.1 "Policy engine hook").
func NewPolicyDenied(reason string) *RunError {
	return &RunError{Code: ErrPolicyDenied, Reason: reason, Msg: reason}
}

// AsRunError unwraps err into a *RunError if the chain contains one.
func AsRunError(err error) (*RunError, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
