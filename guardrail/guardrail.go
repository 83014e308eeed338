// Package guardrail runs policy predicates against the user's initial
// message and the model's final output, in parallel or sequential mode, with
// a configurable fail-safe policy on timeout or predicate error (spec §4.3).
package guardrail

import (
	"context"
	"sync"
	"time"
)

// ExecutionMode selects how a guardrail set runs relative to each other (and,
// for input guardrails, relative to the concurrent LLM call).
type ExecutionMode string

const (
	ModeParallel   ExecutionMode = "parallel"
	ModeSequential ExecutionMode = "sequential"
)

// FailSafe decides how a guardrail's own timeout or internal error is
// treated: as if it passed, or as if it failed.
type FailSafe string

const (
	FailSafeAllow FailSafe = "allow"
	FailSafeBlock FailSafe = "block"
)

// Verdict is the result of a single guardrail predicate.
type Verdict struct {
	Valid  bool
	Reason string
}

// Func is a single guardrail predicate, given the text it must evaluate
// (the user's initial message for input guardrails, the model's final
// content for output guardrails).
type Func func(ctx context.Context, text string) (Verdict, error)

// Config controls how a Set of guardrails executes.
type Config struct {
	Mode     ExecutionMode
	FailSafe FailSafe
	Timeout  time.Duration // default 30s per spec §4.3
}

// DefaultConfig matches spec.md's stated defaults: parallel execution,
// fail-safe-allow, 30 second timeout.
func DefaultConfig() Config {
	return Config{Mode: ModeParallel, FailSafe: FailSafeAllow, Timeout: 30 * time.Second}
}

// Set is a named group of guardrail predicates run together against one
// piece of text.
type Set struct {
	Guardrails []Func
	Config     Config
}

// Violation describes which guardrail tripped and why.
type Violation struct {
	Index  int
	Reason string
}

// Run evaluates every guardrail in the set against text. It returns the
// first violation encountered (by guardrail index in Sequential mode, or the
// lowest index among all violations in Parallel mode, so outcomes are
// deterministic regardless of goroutine scheduling), or ok=true if every
// guardrail passed or was excused by the fail-safe policy.
func (s Set) Run(ctx context.Context, text string) (violation *Violation, ok bool) {
	if len(s.Guardrails) == 0 {
		return nil, true
	}
	timeout := s.Config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if s.Config.Mode == ModeSequential {
		return s.runSequential(ctx, text, timeout)
	}
	return s.runParallel(ctx, text, timeout)
}

func (s Set) runSequential(ctx context.Context, text string, timeout time.Duration) (*Violation, bool) {
	for i, g := range s.Guardrails {
		v, failSafe := s.evalOne(ctx, g, text, timeout)
		if failSafe {
			if s.Config.FailSafe == FailSafeBlock {
				return &Violation{Index: i, Reason: "guardrail timed out or errored"}, false
			}
			continue
		}
		if !v.Valid {
			return &Violation{Index: i, Reason: v.Reason}, false
		}
	}
	return nil, true
}

func (s Set) runParallel(ctx context.Context, text string, timeout time.Duration) (*Violation, bool) {
	violations := make([]*Violation, len(s.Guardrails))
	var wg sync.WaitGroup
	for i, g := range s.Guardrails {
		wg.Add(1)
		go func(i int, g Func) {
			defer wg.Done()
			v, failSafe := s.evalOne(ctx, g, text, timeout)
			switch {
			case failSafe:
				if s.Config.FailSafe == FailSafeBlock {
					violations[i] = &Violation{Index: i, Reason: "guardrail timed out or errored"}
				}
			case !v.Valid:
				violations[i] = &Violation{Index: i, Reason: v.Reason}
			}
		}(i, g)
	}
	wg.Wait()
	for _, v := range violations {
		if v != nil {
			return v, false
		}
	}
	return nil, true
}

// evalOne runs a single guardrail under a per-call timeout, reporting
// failSafe=true when the guardrail did not produce a verdict in time or
// returned an error, so the caller can apply the configured fail-safe policy.
func (s Set) evalOne(ctx context.Context, g Func, text string, timeout time.Duration) (Verdict, bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   Verdict
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := g(cctx, text)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return Verdict{}, true
		}
		return o.v, false
	case <-cctx.Done():
		return Verdict{}, true
	}
}
