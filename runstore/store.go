// Package runstore persists observability metadata about runs — their
// lifecycle status and timestamps — independent of the conversation history
// itself (spec §6, "Run store" sibling of "Persisted conversation layout").
// Grounded on the teacher's runtime/agent/run package, trimmed to this
// rework's single-workflow model: there is no durable workflow engine
// underneath the turn loop (see engine/types.go), so TurnID/ParentRunID/
// Handle — all of which exist to stitch together Temporal workflow
// executions — are dropped; a run here is exactly one agent.RunID from start
// to terminal outcome.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
)

// Status is the coarse lifecycle state of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

// Record captures persistent metadata about a single run, for observability
// and lookup independent of replaying its full message history.
type Record struct {
	RunID     agent.RunID
	TraceID   agent.TraceID
	AgentName string
	Status    Status
	StartedAt time.Time
	UpdatedAt time.Time
	Labels    map[string]string
	Metadata  map[string]any
}

// ErrNotFound indicates no record exists for the given RunID.
var ErrNotFound = errors.New("run not found")

// Store persists Records, keyed by RunID.
type Store interface {
	Upsert(ctx context.Context, r Record) error
	Load(ctx context.Context, runID agent.RunID) (Record, error)
}
