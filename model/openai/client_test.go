package openai_test

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/model/openai"
)

type fakeChat struct {
	params sdk.ChatCompletionNewParams
	resp   *sdk.ChatCompletion
	err    error
}

func (f *fakeChat) New(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) (*sdk.ChatCompletion, error) {
	f.params = body
	return f.resp, f.err
}

func textMessage(role model.Role, text string) model.Message {
	return model.Message{Role: role, Parts: []model.Part{model.TextPart{Text: text}}}
}

func TestComplete_TranslatesTextResponse(t *testing.T) {
	chat := &fakeChat{
		resp: &sdk.ChatCompletion{
			Choices: []sdk.ChatCompletionChoice{{
				Message:      sdk.ChatCompletionMessage{Content: "hello there"},
				FinishReason: "stop",
			}},
			Usage: sdk.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}
	c, err := openai.New(openai.Options{Client: chat, DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), model.Request{
		Messages: []model.Message{textMessage(model.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, 5, resp.Usage.OutputTokens)
	assert.Equal(t, "gpt-4o", chat.params.Model)
}

func TestComplete_TranslatesToolCalls(t *testing.T) {
	chat := &fakeChat{
		resp: &sdk.ChatCompletion{
			Choices: []sdk.ChatCompletionChoice{{
				Message: sdk.ChatCompletionMessage{
					ToolCalls: []sdk.ChatCompletionMessageToolCall{{
						ID: "call_1",
						Function: sdk.ChatCompletionMessageToolCallFunction{
							Name:      "get_weather",
							Arguments: `{"city":"Paris"}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
		},
	}
	c, err := openai.New(openai.Options{Client: chat, DefaultModel: "gpt-4o"})
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
	require.Len(t, chat.params.Tools, 1)
	assert.Equal(t, "get_weather", chat.params.Tools[0].Function.Name)
}

func TestComplete_NoChoicesReturnsZeroValue(t *testing.T) {
	chat := &fakeChat{resp: &sdk.ChatCompletion{}}
	c, err := openai.New(openai.Options{Client: chat, DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), model.Request{Messages: []model.Message{textMessage(model.RoleUser, "hi")}})
	require.NoError(t, err)
	assert.Equal(t, model.Response{}, resp)
}

func TestComplete_RequiresMessages(t *testing.T) {
	c, err := openai.New(openai.Options{Client: &fakeChat{}, DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), model.Request{})
	assert.Error(t, err)
}

func TestComplete_UnsupportedToolChoiceName(t *testing.T) {
	c, err := openai.New(openai.Options{Client: &fakeChat{resp: &sdk.ChatCompletion{}}, DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), model.Request{
		Messages:   []model.Message{textMessage(model.RoleUser, "hi")},
		ToolChoice: &model.ToolChoice{Mode: model.ToolChoiceTool},
	})
	assert.Error(t, err)
}

func TestStream_ReturnsUnsupported(t *testing.T) {
	c, err := openai.New(openai.Options{Client: &fakeChat{}, DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	_, err = c.Stream(context.Background(), model.Request{})
	assert.ErrorIs(t, err, model.ErrStreamingUnsupported)
}

func TestNew_RequiresClientAndModel(t *testing.T) {
	_, err := openai.New(openai.Options{DefaultModel: "gpt-4o"})
	assert.Error(t, err)

	_, err = openai.New(openai.Options{Client: &fakeChat{}})
	assert.Error(t, err)
}

func TestNewFromAPIKey_RequiresAPIKey(t *testing.T) {
	_, err := openai.NewFromAPIKey("", "gpt-4o")
	assert.Error(t, err)
}
