package guardrail

import "context"

// RunConcurrentWithTask launches task alongside the guardrail set and returns
// the task's result only if the guardrails pass; otherwise the task's result
// is discarded and the returned violation is non-nil (spec §4.1 "In parallel mode the
// LLM call is launched concurrently; on violation its result is discarded").
// task always runs to completion even if the guardrails fail first, since
// providers do not support canceling a half-received response mid-stream
// without leaking the underlying connection.
func RunConcurrentWithTask[T any](ctx context.Context, s Set, text string, task func(context.Context) (T, error)) (result T, violation *Violation, taskErr error) {
	type taskOutcome struct {
		val T
		err error
	}
	taskDone := make(chan taskOutcome, 1)
	go func() {
		v, err := task(ctx)
		taskDone <- taskOutcome{v, err}
	}()

	v, ok := s.Run(ctx, text)
	out := <-taskDone
	if !ok {
		var zero T
		return zero, v, nil
	}
	return out.val, nil, out.err
}
