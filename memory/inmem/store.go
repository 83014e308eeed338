// Package inmem is the default thread-safe memory.Store backend: a
// process-local map, suitable for tests and single-instance deployments
// without a durable backend configured.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/memory"
)

// Store is a process-local, mutex-guarded memory.Store implementation.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*memory.Conversation
}

// New constructs an empty Store.
func New() *Store {
	return &Store{conversations: make(map[string]*memory.Conversation)}
}

func (s *Store) StoreMessages(_ context.Context, conversationID string, messages []agent.Message, meta memory.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.conversations[conversationID]
	createdAt := time.Now()
	if ok {
		createdAt = existing.Metadata.CreatedAt
	}
	meta.CreatedAt = createdAt
	meta.UpdatedAt = time.Now()
	meta.LastActivity = meta.UpdatedAt
	meta.TotalMessages = len(messages)
	s.conversations[conversationID] = &memory.Conversation{
		ConversationID: conversationID,
		Messages:       append([]agent.Message(nil), messages...),
		Metadata:       meta,
	}
	return nil
}

func (s *Store) GetConversation(_ context.Context, conversationID string) (*memory.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	out := *conv
	out.Messages = append([]agent.Message(nil), conv.Messages...)
	return &out, nil
}

func (s *Store) AppendMessages(_ context.Context, conversationID string, messages []agent.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		conv = &memory.Conversation{ConversationID: conversationID, Metadata: memory.Metadata{CreatedAt: time.Now()}}
		s.conversations[conversationID] = conv
	}
	conv.Messages = append(conv.Messages, messages...)
	conv.Metadata.UpdatedAt = time.Now()
	conv.Metadata.LastActivity = conv.Metadata.UpdatedAt
	conv.Metadata.TotalMessages = len(conv.Messages)
	return nil
}

func (s *Store) FindConversations(_ context.Context, q memory.Query) ([]memory.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []memory.Conversation
	for _, conv := range s.conversations {
		if q.UserID != "" && conv.UserID != q.UserID {
			continue
		}
		out = append(out, *conv)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetRecentMessages(_ context.Context, conversationID string, limit int) ([]agent.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	if limit <= 0 || limit >= len(conv.Messages) {
		return append([]agent.Message(nil), conv.Messages...), nil
	}
	return append([]agent.Message(nil), conv.Messages[len(conv.Messages)-limit:]...), nil
}

func (s *Store) DeleteConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}

func (s *Store) ClearUserConversations(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conv := range s.conversations {
		if conv.UserID == userID {
			delete(s.conversations, id)
		}
	}
	return nil
}

func (s *Store) GetStats(_ context.Context) (memory.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := memory.Stats{TotalConversations: len(s.conversations)}
	for _, conv := range s.conversations {
		stats.TotalMessages += len(conv.Messages)
	}
	return stats, nil
}

func (s *Store) HealthCheck(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) RestoreToCheckpoint(_ context.Context, conversationID string, criteria memory.CheckpointCriteria) (memory.RestoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return memory.RestoreResult{}, nil
	}

	idx, found := memory.LocateCheckpoint(conv.Messages, criteria)
	if !found {
		return memory.RestoreResult{}, nil
	}

	removed := len(conv.Messages) - idx
	query := conv.Messages[idx].Content()
	conv.Messages = conv.Messages[:idx]
	conv.Metadata.TotalMessages = len(conv.Messages)
	conv.Metadata.UpdatedAt = time.Now()

	return memory.RestoreResult{
		Restored:            true,
		RemovedCount:        removed,
		CheckpointIndex:     idx,
		CheckpointUserQuery: query,
	}, nil
}

