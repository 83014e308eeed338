package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/agentcore-ai/agentcore/model"
	"github.com/agentcore-ai/agentcore/model/anthropic"
	"github.com/agentcore-ai/agentcore/model/openai"
)

// buildModelClient resolves --provider into a model.Client. "echo" needs no
// credentials and is the default so the demo runs without any API key
// configured.
func buildModelClient(provider, modelName string) (model.Client, error) {
	switch strings.ToLower(provider) {
	case "", "echo":
		return newEchoClient(), nil
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for --provider=anthropic")
		}
		if modelName == "" {
			modelName = "claude-sonnet-4-20250514"
		}
		return anthropic.NewFromAPIKey(apiKey, modelName)
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for --provider=openai")
		}
		if modelName == "" {
			modelName = "gpt-4o"
		}
		return openai.NewFromAPIKey(apiKey, modelName)
	default:
		return nil, fmt.Errorf("unknown provider %q (want echo, anthropic, or openai)", provider)
	}
}

// echoClient is a deterministic, credential-free model.Client for demo runs:
// it always answers with the last user message echoed back, and never
// requests a tool call. It exists only so this CLI can be exercised without
// wiring a real provider key; none of the provider adapters in model/ work
// this way.
type echoClient struct{}

func newEchoClient() model.Client { return echoClient{} }

func (echoClient) Complete(_ context.Context, req model.Request) (model.Response, error) {
	last := lastUserText(req.Messages)
	return model.Response{
		Content:    fmt.Sprintf("echo: %s", last),
		StopReason: "end_turn",
	}, nil
}

func (echoClient) Stream(context.Context, model.Request) (model.Streamer, error) {
	return nil, model.ErrStreamingUnsupported
}

func lastUserText(msgs []model.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != model.RoleUser {
			continue
		}
		for _, part := range msgs[i].Parts {
			if tp, ok := part.(model.TextPart); ok {
				return tp.Text
			}
		}
	}
	return ""
}
