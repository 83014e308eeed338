// commands.go contains every cobra command definition for agentcore-demo.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/agentcore-ai/agentcore/agent"
	"github.com/agentcore-ai/agentcore/approval/redisstore"
	"github.com/agentcore-ai/agentcore/engine"
	"github.com/agentcore-ai/agentcore/guardrail"
	"github.com/agentcore-ai/agentcore/memory"
	"github.com/agentcore-ai/agentcore/memory/inmem"
	"github.com/agentcore-ai/agentcore/stream"
	"github.com/agentcore-ai/agentcore/telemetry"
)

func buildRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:          "agentcore-demo",
		Short:        "Example CLI exercising the agentcore turn engine end-to-end",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format := log.FormatJSON
			if log.IsTerminal() {
				format = log.FormatTerminal
			}
			ctx := log.Context(cmd.Context(), log.WithFormat(format))
			if debug {
				ctx = log.Context(ctx, log.WithDebug())
				log.Debugf(ctx, "debug logging enabled")
			}
			cmd.SetContext(ctx)
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug-level logging")
	cmd.AddCommand(buildRunCmd(), buildListToolsCmd())
	return cmd
}

func buildListToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List the built-in demo tools an agent registry file can reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), availableToolNames())
			return nil
		},
	}
}

func buildRunCmd() *cobra.Command {
	var (
		agentsPath     string
		agentName      string
		provider       string
		modelName      string
		message        string
		maxTurns       int
		blockWord      string
		quietTrace     bool
		conversationID string
		redisAddr      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single turn against an agent loaded from a YAML registry",
		Long: `Loads an agent registry file, resolves its tool references against the
built-in demo catalog (see "list-tools"), wires a model provider, and drives
one run to completion — printing every trace event as it arrives and the
final outcome once the run ends.`,
		Example: `  # Run a "calculator" agent from your own registry file, no API key required
  agentcore-demo run --agents agents.yaml --agent calculator --message "what is 12 * 7?"

  # Run against Anthropic, blocking any message containing a banned word
  agentcore-demo run --agents agents.yaml --agent assistant \
    --provider anthropic --message "hello" --block-word secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(agentsPath)
			if err != nil {
				return err
			}
			if agentName == "" {
				for name := range reg {
					agentName = name
					break
				}
			}
			if _, ok := reg[agentName]; !ok {
				return fmt.Errorf("agent registry has no agent named %q", agentName)
			}

			client, err := buildModelClient(provider, modelName)
			if err != nil {
				return err
			}

			logger := telemetry.NewClueLogger("agentcore-demo")

			var approvals memory.ApprovalStore
			if redisAddr != "" {
				rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
				defer rdb.Close()
				approvals = redisstore.New(rdb)
			}

			var broker *memory.Broker
			if conversationID != "" {
				broker = memory.NewBroker(inmem.New(), approvals, logger)
			}

			eng := engine.New(reg, client, nil, broker)
			eng.Logger = logger
			facade := &stream.Facade{Engine: eng}

			initial := agent.RunState{
				RunID:            agent.RunID(uuid.NewString()),
				TraceID:          agent.TraceID(uuid.NewString()),
				CurrentAgentName: agentName,
				Messages: []agent.Message{
					{Role: agent.RoleUser, Parts: []agent.Part{agent.TextPart{Text: message}}},
				},
			}

			cfg := engine.Config{
				MaxTurns:           maxTurns,
				AllowClarification: true,
			}
			if broker != nil {
				cfg.MemoryConfig = memory.Config{
					AutoStore:         true,
					ConversationID:    conversationID,
					StoreOnCompletion: true,
				}
			}
			if blockWord != "" {
				cfg.InputGuardrails = guardrail.Set{
					Config:     guardrail.DefaultConfig(),
					Guardrails: []guardrail.Func{blockWordGuardrail(blockWord)},
				}
			}

			ctx := cmd.Context()
			rs := facade.Run(ctx, initial, cfg, nil)
			for evt := range rs.Events() {
				if !quietTrace {
					printEvent(cmd, evt)
				}
			}
			return printResult(cmd, rs.Result())
		},
	}

	cmd.Flags().StringVarP(&agentsPath, "agents", "a", "", "Path to a YAML agent registry file (required)")
	cmd.Flags().StringVar(&agentName, "agent", "", "Name of the agent to run (default: first agent in the file)")
	cmd.Flags().StringVarP(&provider, "provider", "p", "echo", "Model provider: echo, anthropic, or openai")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Model name override (provider-specific default if unset)")
	cmd.Flags().StringVar(&message, "message", "", "User message to send (required)")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "Maximum turns before the run is aborted (0 = engine default)")
	cmd.Flags().StringVar(&blockWord, "block-word", "", "Reject the run if the user message contains this word")
	cmd.Flags().BoolVar(&quietTrace, "quiet", false, "Suppress per-event trace output, print only the final result")
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Enable conversation memory, persisted in-process under this ID")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for approval storage (requires --conversation-id)")
	_ = cmd.MarkFlagRequired("agents")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func blockWordGuardrail(word string) guardrail.Func {
	return func(_ context.Context, text string) (guardrail.Verdict, error) {
		if strings.Contains(strings.ToLower(text), strings.ToLower(word)) {
			return guardrail.Verdict{Valid: false, Reason: fmt.Sprintf("message contains banned word %q", word)}, nil
		}
		return guardrail.Verdict{Valid: true}, nil
	}
}

func printEvent(cmd *cobra.Command, evt agent.TraceEvent) {
	data, _ := json.Marshal(evt.Data)
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-24s %s\n", evt.Timestamp.Format(time.RFC3339), evt.Type, data)
}

func printResult(cmd *cobra.Command, result agent.RunResult) error {
	switch result.Outcome.Kind {
	case agent.OutcomeCompleted:
		fmt.Fprintf(cmd.OutOrStdout(), "\nfinal output: %s\n", result.Outcome.Output.Text)
		return nil
	case agent.OutcomeInterrupted:
		fmt.Fprintf(cmd.OutOrStdout(), "\nrun interrupted, %d pending interruption(s):\n", len(result.Outcome.Interruptions))
		for _, in := range result.Outcome.Interruptions {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", in.Kind)
		}
		return nil
	default:
		return fmt.Errorf("run failed: %w", result.Outcome.Err)
	}
}
