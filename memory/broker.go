package memory

import (
	"context"
	"fmt"

	"github.com/agentcore-ai/agentcore/agent"
)

// Logger is the minimal structured-logging seam the broker needs; satisfied
// by telemetry.Logger without importing it (avoids a cycle).
type Logger interface {
	Warn(ctx context.Context, msg string, keyvals ...any)
}

// ApprovalStore is the optional symmetric side-storage for tool approval
// decisions, keyed by run_id (spec §6 "Approval storage (optional)").
// GetRunApprovals returns only the approvals already resolved for a run.
type ApprovalStore interface {
	GetRunApprovals(ctx context.Context, runID agent.RunID) (map[string]agent.ApprovalValue, error)
}

// Config controls how the broker loads and persists conversation history for
// a single run.
type Config struct {
	AutoStore            bool
	ConversationID       string
	MaxMessages          int // 0 = unbounded
	StoreOnCompletion    bool
	CompressionThreshold int // 0 = no compression
}

// Broker orchestrates conversation load/store/checkpoint-restore around a
// Store implementation (spec §4.4).
type Broker struct {
	Store         Store
	ApprovalStore ApprovalStore
	Logger        Logger
}

// NewBroker constructs a Broker. log may be nil, in which case store/restore
// failures on non-critical paths are silently swallowed.
func NewBroker(store Store, approvals ApprovalStore, log Logger) *Broker {
	return &Broker{Store: store, ApprovalStore: approvals, Logger: log}
}

func (b *Broker) warn(ctx context.Context, msg string, keyvals ...any) {
	if b.Logger != nil {
		b.Logger.Warn(ctx, msg, keyvals...)
	}
}

// Load hydrates initial with prior conversation history per spec §4.4
// "Load". When cfg.AutoStore is false or ConversationID is empty, initial is
// returned unchanged — memory is opt-in per run.
func (b *Broker) Load(ctx context.Context, initial agent.RunState, cfg Config) agent.RunState {
	if !cfg.AutoStore || cfg.ConversationID == "" || b.Store == nil {
		return initial
	}

	conv, err := b.Store.GetConversation(ctx, cfg.ConversationID)
	if err != nil {
		b.warn(ctx, "memory: get_conversation failed, continuing without history", "error", err)
		return initial
	}
	if conv == nil {
		return initial
	}

	history := conv.Messages
	if cfg.MaxMessages > 0 && len(history) > cfg.MaxMessages {
		history = history[len(history)-cfg.MaxMessages:]
	}
	history = filterHalted(history)

	out := initial.Clone()
	out.Messages = dedupeMerge(history, initial.Messages)

	if conv.Metadata.Approvals != nil {
		out.Approvals = cloneApprovalMap(conv.Metadata.Approvals)
	}

	if b.ApprovalStore != nil {
		if fromStore, err := b.ApprovalStore.GetRunApprovals(ctx, initial.RunID); err == nil {
			for id, v := range fromStore {
				if out.Approvals == nil {
					out.Approvals = map[string]agent.ApprovalValue{}
				}
				out.Approvals[id] = v
			}
		} else {
			b.warn(ctx, "memory: get_run_approvals failed", "error", err)
		}
	}

	return out
}

// Persist saves s's full message log, including halted placeholders for
// audit, plus run metadata (spec §4.4 "Store"). interrupted reflects whether
// this call site is an interruption (always stores) or a completion (only
// stores if cfg.StoreOnCompletion).
func (b *Broker) Persist(ctx context.Context, s agent.RunState, cfg Config, interrupted bool) {
	if !cfg.AutoStore || cfg.ConversationID == "" || b.Store == nil {
		return
	}
	if !interrupted && !cfg.StoreOnCompletion {
		return
	}

	messages := s.Messages
	if cfg.CompressionThreshold > 0 && len(messages) > cfg.CompressionThreshold {
		messages = compress(messages, cfg.CompressionThreshold)
	}

	meta := Metadata{
		TotalMessages: len(messages),
		Approvals:     s.Approvals,
		TurnCount:     s.TurnCount,
		RunID:         s.RunID,
		TraceID:       s.TraceID,
		AgentName:     s.CurrentAgentName,
	}
	if err := b.Store.StoreMessages(ctx, cfg.ConversationID, messages, meta); err != nil {
		b.warn(ctx, "memory: store_messages failed, best-effort", "error", err)
	}
}

// RestoreToCheckpoint delegates to the Store, which owns the precedence
// rules over CheckpointCriteria (spec §4.4 "Checkpoint restore").
func (b *Broker) RestoreToCheckpoint(ctx context.Context, conversationID string, criteria CheckpointCriteria) (RestoreResult, error) {
	if b.Store == nil {
		return RestoreResult{}, fmt.Errorf("memory: no store configured")
	}
	return b.Store.RestoreToCheckpoint(ctx, conversationID, criteria)
}

// filterHalted drops tool-role messages whose canonical envelope status is
// "halted" — storage-only audit markers never replayed to the model (spec
// §4.4 step 3, invariant 2).
func filterHalted(messages []agent.Message) []agent.Message {
	out := make([]agent.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == agent.RoleTool && agent.ToolReplyStatus(m.Text) == "halted" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// dedupeMerge merges persisted history with the initial state's new messages,
// deduplicating by (role, content, tool_calls) triple so resuming an
// interruption does not duplicate messages already in the persisted log
// (spec §4.4 step 4).
func dedupeMerge(history, fresh []agent.Message) []agent.Message {
	seen := make(map[string]struct{}, len(history))
	key := func(m agent.Message) string {
		ids := ""
		for _, tc := range m.ToolCalls {
			ids += tc.ID + ":" + tc.FunctionName + ";"
		}
		return string(m.Role) + "|" + m.Content() + "|" + ids + "|" + m.ToolCallID
	}
	merged := make([]agent.Message, 0, len(history)+len(fresh))
	for _, m := range history {
		merged = append(merged, m)
		seen[key(m)] = struct{}{}
	}
	for _, m := range fresh {
		if _, dup := seen[key(m)]; dup {
			continue
		}
		merged = append(merged, m)
		seen[key(m)] = struct{}{}
	}
	return merged
}

// compress keeps the first 20% and most recent 80% of threshold messages,
// dropping the middle (spec §4.4 "Store", compression rule).
func compress(messages []agent.Message, threshold int) []agent.Message {
	if len(messages) <= threshold {
		return messages
	}
	head := threshold / 5
	tail := threshold - head
	if tail > len(messages) {
		tail = len(messages)
	}
	out := make([]agent.Message, 0, head+tail)
	out = append(out, messages[:head]...)
	out = append(out, messages[len(messages)-tail:]...)
	return out
}

func cloneApprovalMap(m map[string]agent.ApprovalValue) map[string]agent.ApprovalValue {
	out := make(map[string]agent.ApprovalValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
