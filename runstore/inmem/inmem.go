// Package inmem provides an in-memory implementation of runstore.Store for
// tests and local development, with no persistence across process restarts.
// Grounded on runtime/agent/run/inmem/inmem.go, generalized from a
// string-keyed map to agent.RunID and trimmed to this rework's Record shape.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/runstore"
)

// Store implements runstore.Store in memory. All operations are
// thread-safe; records are defensively copied on read and write.
type Store struct {
	mu      sync.RWMutex
	records map[agent.RunID]runstore.Record
}

var _ runstore.Store = (*Store)(nil)

// New constructs an empty Store.
func New() *Store {
	return &Store{records: make(map[agent.RunID]runstore.Record)}
}

// Upsert inserts or updates the record keyed by r.RunID. An existing
// StartedAt is preserved across updates; UpdatedAt always advances.
func (s *Store) Upsert(_ context.Context, r runstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[r.RunID]
	if ok && r.StartedAt.IsZero() {
		r.StartedAt = existing.StartedAt
	} else if !ok && r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	r.Labels = cloneLabels(r.Labels)
	r.Metadata = cloneMetadata(r.Metadata)
	s.records[r.RunID] = r
	return nil
}

// Load returns the record for runID, or runstore.ErrNotFound.
func (s *Store) Load(_ context.Context, runID agent.RunID) (runstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[runID]
	if !ok {
		return runstore.Record{}, runstore.ErrNotFound
	}
	r.Labels = cloneLabels(r.Labels)
	r.Metadata = cloneMetadata(r.Metadata)
	return r, nil
}

// Reset clears all stored records. Not part of runstore.Store; test-only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[agent.RunID]runstore.Record)
}

func cloneLabels(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
