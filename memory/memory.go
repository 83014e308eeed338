// Package memory exposes the conversation-store contract the turn engine
// uses to load prior history at run start and persist it on interruption or
// completion (spec §4.4, §6 "Memory provider"), plus the broker that
// implements the load/store/checkpoint-restore algorithms on top of any
// Store implementation.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
)

// Conversation is the full persisted record for one conversation_id (spec §6
// "Persisted conversation layout").
type Conversation struct {
	ConversationID string
	UserID         string
	Messages       []agent.Message
	Metadata       Metadata
}

// Metadata is the side-channel persisted alongside a conversation's message
// log.
type Metadata struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TotalMessages int
	LastActivity  time.Time
	Approvals     map[string]agent.ApprovalValue
	TurnCount     int
	RunID         agent.RunID
	TraceID       agent.TraceID
	AgentName     string
	Custom        map[string]any
}

// Query filters conversations for FindConversations.
type Query struct {
	UserID string
	Limit  int
}

// Stats summarizes a store's contents for health/ops dashboards.
type Stats struct {
	TotalConversations int
	TotalMessages       int
}

// Store is the record-style persistence contract (spec §6 "Memory provider
// (consumed)"). Implementations must be safe for concurrent use; every
// fallible operation returns a Go error rather than a typed Result, since the
// broker is the layer responsible for swallowing and logging memory failures
// per spec §7 "Memory errors are logged and swallowed."
type Store interface {
	StoreMessages(ctx context.Context, conversationID string, messages []agent.Message, meta Metadata) error
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	AppendMessages(ctx context.Context, conversationID string, messages []agent.Message) error
	FindConversations(ctx context.Context, q Query) ([]Conversation, error)
	GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]agent.Message, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	ClearUserConversations(ctx context.Context, userID string) error
	GetStats(ctx context.Context) (Stats, error)
	HealthCheck(ctx context.Context) error
	Close() error
	RestoreToCheckpoint(ctx context.Context, conversationID string, criteria CheckpointCriteria) (RestoreResult, error)
}

// CheckpointCriteriaKind discriminates CheckpointCriteria's selector.
type CheckpointCriteriaKind string

const (
	CheckpointByID        CheckpointCriteriaKind = "id"
	CheckpointByIndex     CheckpointCriteriaKind = "index"
	CheckpointByNth       CheckpointCriteriaKind = "nth_user_message"
	CheckpointByTextMatch CheckpointCriteriaKind = "text_match"
)

// TextMatchMode selects how CheckpointByTextMatch compares message text.
type TextMatchMode string

const (
	TextMatchExact      TextMatchMode = "exact"
	TextMatchStartsWith TextMatchMode = "startsWith"
	TextMatchContains   TextMatchMode = "contains"
)

// CheckpointCriteria selects the single user message to restore to. Only the
// fields matching Kind are read; an empty Kind selects by MessageID. When
// fields of several kinds are set, no precedence among them applies.
type CheckpointCriteria struct {
	Kind CheckpointCriteriaKind

	MessageID string // CheckpointByID
	Index     int    // CheckpointByIndex
	Nth       int    // CheckpointByNth, 1-based

	TextMatchMode TextMatchMode // CheckpointByTextMatch
	Text          string        // CheckpointByTextMatch
}

// RestoreResult reports the outcome of RestoreToCheckpoint.
type RestoreResult struct {
	Restored            bool
	RemovedCount        int
	CheckpointIndex     int
	CheckpointUserQuery string
}

// LocateCheckpoint finds the index of the user message selected by
// criteria.Kind; an empty or unknown Kind selects by MessageID. Shared by
// every Store backend so the selection semantics never drift between them.
func LocateCheckpoint(messages []agent.Message, criteria CheckpointCriteria) (int, bool) {
	switch criteria.Kind {
	case CheckpointByIndex:
		if criteria.Index < 0 || criteria.Index >= len(messages) || messages[criteria.Index].Role != agent.RoleUser {
			return 0, false
		}
		return criteria.Index, true
	case CheckpointByNth:
		n := 0
		for i, m := range messages {
			if m.Role != agent.RoleUser {
				continue
			}
			n++
			if n == criteria.Nth {
				return i, true
			}
		}
		return 0, false
	case CheckpointByTextMatch:
		for i, m := range messages {
			if m.Role != agent.RoleUser {
				continue
			}
			if matchesText(m.Content(), criteria.Text, criteria.TextMatchMode) {
				return i, true
			}
		}
		return 0, false
	case CheckpointByID:
		fallthrough
	default:
		if criteria.MessageID == "" {
			return 0, false
		}
		for i, m := range messages {
			if m.Role == agent.RoleUser && m.ID == criteria.MessageID {
				return i, true
			}
		}
		return 0, false
	}
}

func matchesText(content, text string, mode TextMatchMode) bool {
	switch mode {
	case TextMatchStartsWith:
		return strings.HasPrefix(content, text)
	case TextMatchContains:
		return strings.Contains(content, text)
	default:
		return content == text
	}
}
