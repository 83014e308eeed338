// Package mongostore wires memory.Store to MongoDB via mongo-driver/v2, for
// deployments that need a durable conversation store instead of the
// process-local inmem.Store.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/memory"
)

// Options configures the Store.
type Options struct {
	Client         *mongo.Client
	Database       string
	CollectionName string // defaults to "conversations"
}

// Store implements memory.Store over a MongoDB collection keyed by
// conversation_id.
type Store struct {
	coll *mongo.Collection
}

// NewStore builds a Mongo-backed conversation store and ensures the
// conversation_id unique index exists.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongostore: client is required")
	}
	name := opts.CollectionName
	if name == "" {
		name = "conversations"
	}
	coll := opts.Client.Database(opts.Database).Collection(name)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &Store{coll: coll}, nil
}

type conversationDoc struct {
	ConversationID string           `bson:"conversation_id"`
	UserID         string           `bson:"user_id,omitempty"`
	Messages       []messageDoc     `bson:"messages"`
	Metadata       metadataDoc      `bson:"metadata"`
}

type messageDoc struct {
	ID         string         `bson:"id,omitempty"`
	Role       string         `bson:"role"`
	Text       string         `bson:"text"`
	ToolCalls  []toolCallDoc  `bson:"tool_calls,omitempty"`
	ToolCallID string         `bson:"tool_call_id,omitempty"`
}

type toolCallDoc struct {
	ID            string `bson:"id"`
	FunctionName  string `bson:"function_name"`
	ArgumentsJSON string `bson:"arguments_json"`
}

type metadataDoc struct {
	CreatedAt     time.Time              `bson:"created_at"`
	UpdatedAt     time.Time              `bson:"updated_at"`
	TotalMessages int                    `bson:"total_messages"`
	LastActivity  time.Time              `bson:"last_activity"`
	Approvals     map[string]approvalDoc `bson:"approvals,omitempty"`
	TurnCount     int                    `bson:"turn_count"`
	RunID         string                 `bson:"run_id,omitempty"`
	TraceID       string                 `bson:"trace_id,omitempty"`
	AgentName     string                 `bson:"agent_name,omitempty"`
}

type approvalDoc struct {
	Status            string         `bson:"status"`
	AdditionalContext map[string]any `bson:"additional_context,omitempty"`
	RejectionReason   string         `bson:"rejection_reason,omitempty"`
}

func toDoc(conversationID string, messages []agent.Message, meta memory.Metadata) conversationDoc {
	msgs := make([]messageDoc, len(messages))
	for i, m := range messages {
		tcs := make([]toolCallDoc, len(m.ToolCalls))
		for j, tc := range m.ToolCalls {
			tcs[j] = toolCallDoc{ID: tc.ID, FunctionName: tc.FunctionName, ArgumentsJSON: tc.ArgumentsJSON}
		}
		msgs[i] = messageDoc{ID: m.ID, Role: string(m.Role), Text: m.Content(), ToolCalls: tcs, ToolCallID: m.ToolCallID}
	}
	approvals := make(map[string]approvalDoc, len(meta.Approvals))
	for id, a := range meta.Approvals {
		approvals[id] = approvalDoc{Status: string(a.Status), AdditionalContext: a.AdditionalContext, RejectionReason: a.RejectionReason}
	}
	return conversationDoc{
		ConversationID: conversationID,
		Messages:       msgs,
		Metadata: metadataDoc{
			CreatedAt:     meta.CreatedAt,
			UpdatedAt:     meta.UpdatedAt,
			TotalMessages: meta.TotalMessages,
			LastActivity:  meta.LastActivity,
			Approvals:     approvals,
			TurnCount:     meta.TurnCount,
			RunID:         string(meta.RunID),
			TraceID:       string(meta.TraceID),
			AgentName:     meta.AgentName,
		},
	}
}

func fromDoc(doc conversationDoc) *memory.Conversation {
	msgs := make([]agent.Message, len(doc.Messages))
	for i, m := range doc.Messages {
		tcs := make([]agent.ToolCall, len(m.ToolCalls))
		for j, tc := range m.ToolCalls {
			tcs[j] = agent.ToolCall{ID: tc.ID, FunctionName: tc.FunctionName, ArgumentsJSON: tc.ArgumentsJSON}
		}
		msgs[i] = agent.Message{ID: m.ID, Role: agent.Role(m.Role), Text: m.Text, ToolCalls: tcs, ToolCallID: m.ToolCallID}
	}
	approvals := make(map[string]agent.ApprovalValue, len(doc.Metadata.Approvals))
	for id, a := range doc.Metadata.Approvals {
		approvals[id] = agent.ApprovalValue{Status: agent.ApprovalStatus(a.Status), AdditionalContext: a.AdditionalContext, RejectionReason: a.RejectionReason}
	}
	return &memory.Conversation{
		ConversationID: doc.ConversationID,
		UserID:         doc.UserID,
		Messages:       msgs,
		Metadata: memory.Metadata{
			CreatedAt:     doc.Metadata.CreatedAt,
			UpdatedAt:     doc.Metadata.UpdatedAt,
			TotalMessages: doc.Metadata.TotalMessages,
			LastActivity:  doc.Metadata.LastActivity,
			Approvals:     approvals,
			TurnCount:     doc.Metadata.TurnCount,
			RunID:         agent.RunID(doc.Metadata.RunID),
			TraceID:       agent.TraceID(doc.Metadata.TraceID),
			AgentName:     doc.Metadata.AgentName,
		},
	}
}

func (s *Store) StoreMessages(ctx context.Context, conversationID string, messages []agent.Message, meta memory.Metadata) error {
	doc := toDoc(conversationID, messages, meta)
	now := time.Now()
	doc.Metadata.UpdatedAt = now
	doc.Metadata.LastActivity = now
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "conversation_id", Value: conversationID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) GetConversation(ctx context.Context, conversationID string) (*memory.Conversation, error) {
	var doc conversationDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "conversation_id", Value: conversationID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromDoc(doc), nil
}

func (s *Store) AppendMessages(ctx context.Context, conversationID string, messages []agent.Message) error {
	existing, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.StoreMessages(ctx, conversationID, messages, memory.Metadata{CreatedAt: time.Now()})
	}
	merged := append(existing.Messages, messages...)
	return s.StoreMessages(ctx, conversationID, merged, existing.Metadata)
}

func (s *Store) FindConversations(ctx context.Context, q memory.Query) ([]memory.Conversation, error) {
	filter := bson.D{}
	if q.UserID != "" {
		filter = append(filter, bson.E{Key: "user_id", Value: q.UserID})
	}
	findOpts := options.Find()
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
	}
	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []memory.Conversation
	for cur.Next(ctx) {
		var doc conversationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *fromDoc(doc))
	}
	return out, cur.Err()
}

func (s *Store) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]agent.Message, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil || conv == nil {
		return nil, err
	}
	if limit <= 0 || limit >= len(conv.Messages) {
		return conv.Messages, nil
	}
	return conv.Messages[len(conv.Messages)-limit:], nil
}

func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "conversation_id", Value: conversationID}})
	return err
}

func (s *Store) ClearUserConversations(ctx context.Context, userID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID}})
	return err
}

func (s *Store) GetStats(ctx context.Context) (memory.Stats, error) {
	total, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return memory.Stats{}, err
	}
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return memory.Stats{}, err
	}
	defer cur.Close(ctx)
	var msgCount int
	for cur.Next(ctx) {
		var doc conversationDoc
		if err := cur.Decode(&doc); err != nil {
			return memory.Stats{}, err
		}
		msgCount += len(doc.Messages)
	}
	return memory.Stats{TotalConversations: int(total), TotalMessages: msgCount}, cur.Err()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) RestoreToCheckpoint(ctx context.Context, conversationID string, criteria memory.CheckpointCriteria) (memory.RestoreResult, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil || conv == nil {
		return memory.RestoreResult{}, err
	}
	idx, found := memory.LocateCheckpoint(conv.Messages, criteria)
	if !found {
		return memory.RestoreResult{}, nil
	}
	removed := len(conv.Messages) - idx
	query := conv.Messages[idx].Content()
	conv.Messages = conv.Messages[:idx]
	if err := s.StoreMessages(ctx, conversationID, conv.Messages, conv.Metadata); err != nil {
		return memory.RestoreResult{}, err
	}
	return memory.RestoreResult{Restored: true, RemovedCount: removed, CheckpointIndex: idx, CheckpointUserQuery: query}, nil
}
