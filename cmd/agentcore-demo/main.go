// Package main provides a thin CLI example that exercises the public
// agentcore API end to end: it loads an agent registry from a YAML file,
// wires a model provider chosen by flag, and drives one run to completion,
// printing trace events and the final output (spec §6 "A thin example CLI
// (cmd/agentcore-demo) ... exercises the public API end-to-end").
//
// # Basic Usage
//
// Run an agent from your own YAML registry file (agents.yaml below) against
// the deterministic local provider (no API key required):
//
//	agentcore-demo run --agents agents.yaml --provider echo --message "what is 2+2?"
//
// Run against a real provider:
//
//	agentcore-demo run --agents agents.yaml --provider anthropic --message "book me a flight to SFO"
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key, used when --provider=anthropic
//   - OPENAI_API_KEY: OpenAI API key, used when --provider=openai
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
