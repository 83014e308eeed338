package guardrail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allow(context.Context, string) (Verdict, error) { return Verdict{Valid: true}, nil }

func blockWith(reason string) Func {
	return func(context.Context, string) (Verdict, error) { return Verdict{Valid: false, Reason: reason}, nil }
}

func TestSetRun_AllPass(t *testing.T) {
	s := Set{Guardrails: []Func{allow, allow, allow}, Config: DefaultConfig()}
	v, ok := s.Run(context.Background(), "hello")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestSetRun_ParallelFirstViolationByIndex(t *testing.T) {
	s := Set{Guardrails: []Func{allow, blockWith("bad word"), blockWith("also bad")}, Config: DefaultConfig()}
	v, ok := s.Run(context.Background(), "hello")
	require.False(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, "bad word", v.Reason)
}

func TestSetRun_SequentialShortCircuits(t *testing.T) {
	calls := 0
	counting := func(context.Context, string) (Verdict, error) {
		calls++
		return Verdict{Valid: false, Reason: "nope"}, nil
	}
	cfg := DefaultConfig()
	cfg.Mode = ModeSequential
	s := Set{Guardrails: []Func{counting, counting, counting}, Config: cfg}
	_, ok := s.Run(context.Background(), "hello")
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestSetRun_TimeoutFailSafeAllow(t *testing.T) {
	slow := func(ctx context.Context, _ string) (Verdict, error) {
		<-ctx.Done()
		return Verdict{}, ctx.Err()
	}
	cfg := Config{Mode: ModeParallel, FailSafe: FailSafeAllow, Timeout: 10 * time.Millisecond}
	s := Set{Guardrails: []Func{slow}, Config: cfg}
	_, ok := s.Run(context.Background(), "hello")
	assert.True(t, ok)
}

func TestSetRun_TimeoutFailSafeBlock(t *testing.T) {
	slow := func(ctx context.Context, _ string) (Verdict, error) {
		<-ctx.Done()
		return Verdict{}, ctx.Err()
	}
	cfg := Config{Mode: ModeParallel, FailSafe: FailSafeBlock, Timeout: 10 * time.Millisecond}
	s := Set{Guardrails: []Func{slow}, Config: cfg}
	v, ok := s.Run(context.Background(), "hello")
	assert.False(t, ok)
	assert.NotNil(t, v)
}

func TestSetRun_InternalErrorTreatedAsFailSafe(t *testing.T) {
	erroring := func(context.Context, string) (Verdict, error) { return Verdict{}, errors.New("boom") }
	cfg := Config{Mode: ModeSequential, FailSafe: FailSafeAllow, Timeout: time.Second}
	s := Set{Guardrails: []Func{erroring}, Config: cfg}
	_, ok := s.Run(context.Background(), "hello")
	assert.True(t, ok)
}

func TestRunConcurrentWithTask_DiscardsOnViolation(t *testing.T) {
	s := Set{Guardrails: []Func{blockWith("tripwire")}, Config: DefaultConfig()}
	result, violation, err := RunConcurrentWithTask(context.Background(), s, "hello", func(context.Context) (string, error) {
		return "model response", nil
	})
	require.NoError(t, err)
	require.NotNil(t, violation)
	assert.Equal(t, "tripwire", violation.Reason)
	assert.Equal(t, "", result)
}

func TestRunConcurrentWithTask_ReturnsTaskResultOnPass(t *testing.T) {
	s := Set{Guardrails: []Func{allow}, Config: DefaultConfig()}
	result, violation, err := RunConcurrentWithTask(context.Background(), s, "hello", func(context.Context) (string, error) {
		return "model response", nil
	})
	require.NoError(t, err)
	assert.Nil(t, violation)
	assert.Equal(t, "model response", result)
}
