package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/tools"
)

// toolCallAccumulator folds a single indexed tool_call's deltas, matching
// spec.md's "tool_calls_by_index[{id?, name?, args_buf}]".
type toolCallAccumulator struct {
	id      string
	name    string
	argsBuf strings.Builder
}

// chunkAggregator is the {text_buf, tool_calls_by_index} state machine spec.md
// §4.1 describes for folding a Streamer's Chunk sequence into one Response.
type chunkAggregator struct {
	textBuf    strings.Builder
	byIndex    map[int]*toolCallAccumulator
	order      []int
	usage      model.TokenUsage
	stopReason string
}

func newChunkAggregator() *chunkAggregator {
	return &chunkAggregator{byIndex: map[int]*toolCallAccumulator{}}
}

// apply folds one chunk into the running state and reports whether the chunk
// carried new text or argument content or first set a tool call's id or
// name, the trigger for a partial
// assistant_message event (spec.md "on each chunk that advances state, it
// emits a partial assistant_message event").
func (a *chunkAggregator) apply(c model.Chunk) (advanced bool) {
	switch c.Type {
	case model.ChunkText:
		if c.Delta == "" {
			return false
		}
		a.textBuf.WriteString(c.Delta)
		return true
	case model.ChunkToolCallDelta:
		d := c.ToolCallDelta
		if d == nil {
			return false
		}
		acc, ok := a.byIndex[d.Index]
		if !ok {
			acc = &toolCallAccumulator{}
			a.byIndex[d.Index] = acc
			a.order = append(a.order, d.Index)
		}
		changed := false
		if d.ID != "" && acc.id == "" {
			acc.id = d.ID
			changed = true
		}
		if d.Name != "" && acc.name == "" {
			acc.name = d.Name
			changed = true
		}
		if d.ArgumentsDelta != "" {
			acc.argsBuf.WriteString(d.ArgumentsDelta)
			changed = true
		}
		return changed
	case model.ChunkUsage:
		if c.UsageDelta != nil {
			a.usage = *c.UsageDelta
		}
		return false
	case model.ChunkStop:
		a.stopReason = c.FinishReason
		return false
	default:
		return false
	}
}

// snapshot renders the in-flight state as a Response, used both for partial
// assistant_message events and as the final aggregated result.
func (a *chunkAggregator) snapshot() model.Response {
	sort.Ints(a.order)
	calls := make([]model.ToolCallResult, 0, len(a.order))
	for _, idx := range a.order {
		acc := a.byIndex[idx]
		calls = append(calls, model.ToolCallResult{
			ID:            acc.id,
			Name:          tools.Ident(acc.name),
			ArgumentsJSON: json.RawMessage(acc.argsBuf.String()),
		})
	}
	return model.Response{
		Content:    a.textBuf.String(),
		ToolCalls:  calls,
		Usage:      a.usage,
		StopReason: a.stopReason,
	}
}

// aggregateStream drains streamer, folding chunks through a chunkAggregator
// and emitting a partial assistant_message event on every chunk that adds
// content, until the stream ends or errors.
func aggregateStream(streamer model.Streamer, onEvent agent.OnEvent, runID agent.RunID, turn int) (model.Response, error) {
	defer streamer.Close()
	agg := newChunkAggregator()
	for {
		chunk, err := streamer.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return agg.snapshot(), nil
			}
			return model.Response{}, err
		}
		if agg.apply(chunk) {
			emitPartialAssistantMessage(onEvent, runID, turn, agg.snapshot())
		}
		if chunk.IsDone {
			return agg.snapshot(), nil
		}
	}
}

func emitPartialAssistantMessage(onEvent agent.OnEvent, runID agent.RunID, turn int, partial model.Response) {
	if onEvent == nil {
		return
	}
	onEvent(agent.NewEvent(agent.EventAssistantMessage, runID, map[string]any{
		"turn": turn, "content": partial.Content, "partial": true, "tool_call_count": len(partial.ToolCalls),
	}))
}
