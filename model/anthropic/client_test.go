package anthropic_test

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/model/anthropic"
)

type fakeMessages struct {
	params sdk.MessageNewParams
	resp   *sdk.Message
	err    error
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.params = body
	return f.resp, f.err
}

func textMessage(role model.Role, text string) model.Message {
	return model.Message{Role: role, Parts: []model.Part{model.TextPart{Text: text}}}
}

func TestComplete_TranslatesTextResponse(t *testing.T) {
	msgs := &fakeMessages{
		resp: &sdk.Message{
			Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "hello there"}},
			StopReason: "end_turn",
			Usage:      sdk.Usage{InputTokens: 10, OutputTokens: 5},
		},
	}
	c, err := anthropic.New(msgs, anthropic.Options{DefaultModel: "claude-sonnet-4-20250514", MaxTokens: 1024})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), model.Request{
		Messages: []model.Message{textMessage(model.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, 5, resp.Usage.OutputTokens)
	assert.Equal(t, "claude-sonnet-4-20250514", string(msgs.params.Model))
}

func TestComplete_TranslatesToolUse(t *testing.T) {
	msgs := &fakeMessages{
		resp: &sdk.Message{
			Content: []sdk.ContentBlockUnion{{
				Type:  "tool_use",
				ID:    "call_1",
				Name:  "get_weather",
				Input: json.RawMessage(`{"city":"Paris"}`),
			}},
			StopReason: "tool_use",
		},
	}
	c, err := anthropic.New(msgs, anthropic.Options{DefaultModel: "claude-sonnet-4-20250514", MaxTokens: 1024})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), model.Request{
		Messages: []model.Message{textMessage(model.RoleUser, "weather in paris?")},
		Tools: []model.ToolDefinition{{
			Name:        "get_weather",
			Description: "looks up weather",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
		}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "get_weather", string(resp.ToolCalls[0].Name))
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
}

func TestComplete_SystemMessagesAreSeparated(t *testing.T) {
	msgs := &fakeMessages{resp: &sdk.Message{StopReason: "end_turn"}}
	c, err := anthropic.New(msgs, anthropic.Options{DefaultModel: "m", MaxTokens: 10})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), model.Request{
		Messages: []model.Message{
			textMessage(model.RoleSystem, "be terse"),
			textMessage(model.RoleUser, "hi"),
		},
	})
	require.NoError(t, err)
	require.Len(t, msgs.params.System, 1)
	assert.Equal(t, "be terse", msgs.params.System[0].Text)
	assert.Len(t, msgs.params.Messages, 1)
}

func TestComplete_RequiresAtLeastOneMessage(t *testing.T) {
	c, err := anthropic.New(&fakeMessages{}, anthropic.Options{DefaultModel: "m", MaxTokens: 10})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), model.Request{})
	assert.Error(t, err)
}

func TestComplete_RequiresPositiveMaxTokens(t *testing.T) {
	c, err := anthropic.New(&fakeMessages{}, anthropic.Options{DefaultModel: "m"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), model.Request{Messages: []model.Message{textMessage(model.RoleUser, "hi")}})
	assert.Error(t, err)
}

func TestStream_ReturnsUnsupported(t *testing.T) {
	c, err := anthropic.New(&fakeMessages{}, anthropic.Options{DefaultModel: "m", MaxTokens: 10})
	require.NoError(t, err)

	_, err = c.Stream(context.Background(), model.Request{})
	assert.ErrorIs(t, err, model.ErrStreamingUnsupported)
}

func TestNew_RequiresDefaultModel(t *testing.T) {
	_, err := anthropic.New(&fakeMessages{}, anthropic.Options{})
	assert.Error(t, err)
}

func TestNewFromAPIKey_RequiresAPIKey(t *testing.T) {
	_, err := anthropic.NewFromAPIKey("", "claude-sonnet-4-20250514")
	assert.Error(t, err)
}
