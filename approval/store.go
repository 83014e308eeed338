// Package approval persists the two forms of mid-run human input the engine
// can suspend on: tool-approval decisions and clarification answers (spec §6
// "Approval / clarification storage"). Both are simple key-value lookups
// keyed by the same ID the engine already carries in
// agent.RunState.Approvals/Clarifications — Store exists so that ID can be
// resolved from a process other than the one that issued the interruption
// (a human approves a tool call from a dashboard backed by a different
// replica than the one blocked on it).
package approval

import (
	"context"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
)

// Store records and resolves approval and clarification decisions out of
// process, so a run interrupted on one node can be resumed from state
// fetched by another.
type Store interface {
	// PutApproval records the pending approval gate for a tool call, before
	// any human has acted on it.
	PutApproval(ctx context.Context, runID agent.RunID, callID string, ttl time.Duration) error
	// ResolveApproval records a human's decision on a previously-put approval.
	ResolveApproval(ctx context.Context, runID agent.RunID, callID string, value agent.ApprovalValue) error
	// GetApproval returns the recorded decision for callID, or ok=false if
	// none has been resolved yet (still pending or never put).
	GetApproval(ctx context.Context, runID agent.RunID, callID string) (agent.ApprovalValue, bool, error)
	// GetRunApprovals returns every resolved approval recorded for runID,
	// keyed by call ID. Pending approvals are omitted. Used by memory.Broker
	// to rehydrate a run's approval state from storage (spec §4.4 "if
	// approval_storage is configured, load approvals by run_id").
	GetRunApprovals(ctx context.Context, runID agent.RunID) (map[string]agent.ApprovalValue, error)

	// PutClarification records a pending clarification request.
	PutClarification(ctx context.Context, runID agent.RunID, clarificationID string, ttl time.Duration) error
	// ResolveClarification records the user's answer to a previously-put
	// clarification request.
	ResolveClarification(ctx context.Context, runID agent.RunID, clarificationID, answer string) error
	// GetClarification returns the recorded answer, or ok=false if the user
	// has not answered yet.
	GetClarification(ctx context.Context, runID agent.RunID, clarificationID string) (string, bool, error)
}
