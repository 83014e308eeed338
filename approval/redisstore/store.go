// Package redisstore implements approval.Store on top of Redis, grounded on
// the teacher's registry.resultStreamManager (runtime/.../registry/result_stream.go),
// which uses the same pattern — a namespaced key per pending item, TTL'd with
// Expire, looked up with Get, and treating redis.Nil as "not resolved yet"
// rather than an error.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/approval"
)

// Store is a Redis-backed approval.Store. Keys are namespaced per run so
// multiple concurrent runs never collide.
type Store struct {
	rdb *redis.Client
}

var _ approval.Store = (*Store)(nil)

// New wraps an existing Redis client. The caller owns the client's lifecycle.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func approvalKey(runID agent.RunID, callID string) string {
	return fmt.Sprintf("agentcore:approval:%s:%s", runID, callID)
}

// runApprovalsIndexKey is a Redis Set of call IDs seen for runID, so
// GetRunApprovals can look them up directly instead of scanning the
// keyspace for "agentcore:approval:<runID>:*".
func runApprovalsIndexKey(runID agent.RunID) string {
	return fmt.Sprintf("agentcore:approval-index:%s", runID)
}

func clarificationKey(runID agent.RunID, clarificationID string) string {
	return fmt.Sprintf("agentcore:clarification:%s:%s", runID, clarificationID)
}

// pendingMarker is stored as the placeholder value before a decision is
// recorded, so GetApproval/GetClarification can distinguish "still pending"
// from "key absent" if a caller wants that distinction later; today both
// report ok=false.
const pendingMarker = ""

func (s *Store) PutApproval(ctx context.Context, runID agent.RunID, callID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, approvalKey(runID, callID), pendingMarker, ttl).Err(); err != nil {
		return err
	}
	indexKey := runApprovalsIndexKey(runID)
	if err := s.rdb.SAdd(ctx, indexKey, callID).Err(); err != nil {
		return err
	}
	if ttl > 0 {
		return s.rdb.Expire(ctx, indexKey, ttl).Err()
	}
	return nil
}

func (s *Store) ResolveApproval(ctx context.Context, runID agent.RunID, callID string, value agent.ApprovalValue) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	key := approvalKey(runID, callID)
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, key, body, ttl).Err()
}

func (s *Store) GetApproval(ctx context.Context, runID agent.RunID, callID string) (agent.ApprovalValue, bool, error) {
	raw, err := s.rdb.Get(ctx, approvalKey(runID, callID)).Result()
	if errors.Is(err, redis.Nil) {
		return agent.ApprovalValue{}, false, nil
	}
	if err != nil {
		return agent.ApprovalValue{}, false, err
	}
	if raw == pendingMarker {
		return agent.ApprovalValue{}, false, nil
	}
	var v agent.ApprovalValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return agent.ApprovalValue{}, false, err
	}
	return v, true, nil
}

// GetRunApprovals returns every resolved approval recorded for runID. It
// reads the per-run index set rather than scanning the keyspace, the same
// direct-lookup pattern approvalKey and clarificationKey use elsewhere in
// this store.
func (s *Store) GetRunApprovals(ctx context.Context, runID agent.RunID) (map[string]agent.ApprovalValue, error) {
	callIDs, err := s.rdb.SMembers(ctx, runApprovalsIndexKey(runID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make(map[string]agent.ApprovalValue, len(callIDs))
	for _, callID := range callIDs {
		v, ok, err := s.GetApproval(ctx, runID, callID)
		if err != nil {
			return nil, err
		}
		if ok {
			out[callID] = v
		}
	}
	return out, nil
}

func (s *Store) PutClarification(ctx context.Context, runID agent.RunID, clarificationID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, clarificationKey(runID, clarificationID), pendingMarker, ttl).Err()
}

func (s *Store) ResolveClarification(ctx context.Context, runID agent.RunID, clarificationID, answer string) error {
	key := clarificationKey(runID, clarificationID)
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, key, answer, ttl).Err()
}

func (s *Store) GetClarification(ctx context.Context, runID agent.RunID, clarificationID string) (string, bool, error) {
	raw, err := s.rdb.Get(ctx, clarificationKey(runID, clarificationID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if raw == pendingMarker {
		return "", false, nil
	}
	return raw, true, nil
}
