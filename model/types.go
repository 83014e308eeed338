// Package model defines the provider-agnostic request/response/streaming
// types the turn engine uses to talk to a Client, independent of which
// concrete provider (Anthropic, OpenAI, Bedrock) backs it (spec §6 "Model
// provider (consumed)").
package model

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agentcore-ai/agentcore/tools"
)

// Role is the speaker of a Message, mirroring agent.Role but kept distinct so
// this package has no dependency on the engine's state types.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type (
	// Part is a marker interface implemented by every message content block.
	Part interface{ isPart() }

	// TextPart is plain text content.
	TextPart struct{ Text string }

	// ImageFormat identifies the on-wire encoding of an ImagePart.
	ImageFormat string

	// ImagePart carries image bytes for multimodal requests. The provider
	// adapters in this module do not encode ImageParts; they are left out of
	// the provider request.
	ImagePart struct {
		Format ImageFormat
		Bytes  []byte
	}

	// DocumentFormat identifies the on-wire encoding of a DocumentPart.
	DocumentFormat string

	// DocumentPart carries document content for providers that support
	// document inputs and citation generation. Exactly one of Bytes, Text,
	// or URI should be set.
	DocumentPart struct {
		Name   string
		Format DocumentFormat
		Bytes  []byte
		Text   string
		URI    string
		Cite   bool
	}

	// ThinkingPart carries provider-issued reasoning content, treated as
	// opaque by callers and surfaced according to UI policy.
	ThinkingPart struct {
		Text      string
		Signature string
		Redacted  []byte
	}

	// ToolUsePart declares a tool invocation requested by the assistant.
	ToolUsePart struct {
		ID    string
		Name  string
		Input json.RawMessage
	}

	// ToolResultPart carries the result of a prior tool invocation, attached
	// to a user-role message so the model can read it on the next turn.
	ToolResultPart struct {
		ToolUseID string
		Content   any
		IsError   bool
	}

	// CacheCheckpointPart marks a prompt-caching boundary. Providers without
	// cache support ignore it.
	CacheCheckpointPart struct{}
)

func (TextPart) isPart()            {}
func (ImagePart) isPart()           {}
func (DocumentPart) isPart()        {}
func (ThinkingPart) isPart()        {}
func (ToolUsePart) isPart()         {}
func (ToolResultPart) isPart()      {}
func (CacheCheckpointPart) isPart() {}

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatGIF  ImageFormat = "gif"
	ImageFormatWEBP ImageFormat = "webp"
)

const (
	DocumentFormatPDF DocumentFormat = "pdf"
	DocumentFormatTXT DocumentFormat = "txt"
	DocumentFormatMD  DocumentFormat = "md"
)

// Message is a single chat message passed to a provider. Content is an
// ordered sequence of typed Parts rather than a flattened string.
type Message struct {
	Role  Role
	Parts []Part
	Meta  map[string]any
}

// Text returns the concatenation of every TextPart in the message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// ToolDefinition describes one tool the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ToolChoiceMode controls how a Request constrains tool use.
type ToolChoiceMode string

const (
	ToolChoiceAuto ToolChoiceMode = "auto"
	ToolChoiceNone ToolChoiceMode = "none"
	ToolChoiceAny  ToolChoiceMode = "any"
	ToolChoiceTool ToolChoiceMode = "tool"
)

// ToolChoice configures tool-use behavior for a Request. Nil means
// provider-default (usually auto).
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string // only meaningful when Mode == ToolChoiceTool
}

// TokenUsage tracks token consumption for a single call.
type TokenUsage struct {
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	CacheReadTokens  int
	CacheWriteTokens int
}

// ThinkingOptions configures provider reasoning behavior.
type ThinkingOptions struct {
	Enable       bool
	BudgetTokens int
}

// CacheOptions configures prompt caching. Providers without cache support
// ignore it.
type CacheOptions struct {
	AfterSystem bool
	AfterTools  bool
}

// Request captures the inputs to a single model invocation.
type Request struct {
	RunID       string
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	Tools       []ToolDefinition
	ToolChoice  *ToolChoice
	Thinking    *ThinkingOptions
	Cache       *CacheOptions
	// IsAISDKProvider signals a streaming provider that self-identifies as
	// "ai-sdk-style" and does not require Model to be set (spec §6 "A
	// boolean flag is_ai_sdk_provider signals whether absent model names are
	// tolerated").
	IsAISDKProvider bool
}

// ToolCallResult is a tool invocation the model requested, normalized to the
// turn engine's agent.ToolCall shape by the caller.
type ToolCallResult struct {
	ID            string
	Name          tools.Ident
	ArgumentsJSON json.RawMessage
}

// Response is the result of a non-streaming Complete call.
type Response struct {
	Content    string
	ToolCalls  []ToolCallResult
	Usage      TokenUsage
	StopReason string
}

// ChunkType discriminates the Chunk union emitted by a Streamer.
type ChunkType string

const (
	ChunkText          ChunkType = "text"
	ChunkToolCallDelta ChunkType = "tool_call_delta"
	ChunkUsage         ChunkType = "usage"
	ChunkStop          ChunkType = "stop"
)

// ToolCallDelta is an incremental fragment of a tool call's name/arguments,
// keyed by Index so the engine's streaming aggregator (spec §4.1 "Streaming
// aggregation") can fold deltas sharing the same index into one call.
type ToolCallDelta struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}

// Chunk is a single streamed event from a provider (spec §6 "a chunk is
// {delta?, tool_call_delta?, is_done?, finish_reason?}").
type Chunk struct {
	Type          ChunkType
	Delta         string
	ToolCallDelta *ToolCallDelta
	UsageDelta    *TokenUsage
	IsDone        bool
	FinishReason  string
}

// Client is the provider-agnostic model client the turn engine depends on.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request) (Streamer, error)
}

// Streamer delivers incremental model output. Callers drain Recv until it
// returns io.EOF or another terminal error, then call Close.
type Streamer interface {
	Recv() (Chunk, error)
	Close() error
}

// ErrStreamingUnsupported is returned by Stream on clients that only support
// non-streaming completion; the engine falls back to Complete in that case.
var ErrStreamingUnsupported = errors.New("model: streaming not supported by this client")

// ErrRateLimited wraps provider errors that signal the caller should back off
// and retry, letting engine-level retry policy distinguish them from other
// failures without depending on any one provider's error types.
var ErrRateLimited = errors.New("model: rate limited by provider")
