package policy

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/agentcore-ai/agentcore/agent"
)

// RateLimited wraps an Engine with a token-bucket limiter shared across every
// turn it is consulted on: once the bucket is exhausted, the turn is denied
// outright rather than having the run block waiting for a new token (a run
// waiting on rate-limit replenishment is indistinguishable from a hung
// provider from the caller's point of view, so it fails fast instead).
func RateLimited(limiter *rate.Limiter, wrapped Engine) Engine {
	if wrapped == nil {
		wrapped = Static(Decision{})
	}
	return Func(func(ctx context.Context, state agent.RunState, agentName string, availableTools []string) (Decision, error) {
		if !limiter.Allow() {
			return Decision{Denied: true, DenyReason: "tool execution rate limit exceeded"}, nil
		}
		return wrapped.Decide(ctx, state, agentName, availableTools)
	})
}

// NewTokenBucket constructs a rate.Limiter allowing ratePerSecond turns per
// second with the given burst, for use with RateLimited.
func NewTokenBucket(ratePerSecond float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(ratePerSecond), burst)
}
