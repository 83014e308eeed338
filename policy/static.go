package policy

import (
	"context"
	"time"

	"github.com/agentcore-ai/agentcore/agent"
)

// Static returns an Engine whose Decision never varies with run state: a
// fixed tool allowlist (nil to leave every declared tool available) and
// fixed caps. It exists mainly for tests and for callers who want the
// dynamic hook's cap enforcement without per-turn logic of their own.
func Static(d Decision) Engine {
	return Func(func(context.Context, agent.RunState, string, []string) (Decision, error) {
		return d, nil
	})
}

// Deadline returns an Engine whose only behavior is to cut the run off after
// d has elapsed since it was constructed.
func Deadline(d time.Duration) Engine {
	cutoff := time.Now().Add(d)
	return Func(func(context.Context, agent.RunState, string, []string) (Decision, error) {
		return Decision{Deadline: cutoff}, nil
	})
}
