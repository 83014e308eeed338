package agent

// Result is a discriminated success/failure container used by every
// fallible memory/provider operation in the core instead of raising, mirroring
// the teacher's convention across its provider and store contracts (C1,
// "Every fallible memory/provider operation returns a discriminated result
// rather than raising").
type Result[T any] struct {
	ok   bool
	data T
	err  error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{ok: true, data: v} }

// Err wraps a failure.
func Err[T any](err error) Result[T] { return Result[T]{err: err} }

// Success reports whether the result holds a value.
func (r Result[T]) Success() bool { return r.ok }

// Value returns the held value and whether it is present.
func (r Result[T]) Value() (T, bool) { return r.data, r.ok }

// Error returns the held error, nil on success.
func (r Result[T]) Error() error { return r.err }

// Unwrap returns the value, panicking if the result is a failure. Intended
// for call sites that have already checked Success().
func (r Result[T]) Unwrap() T {
	if !r.ok {
		panic("agent: Unwrap called on failed Result: " + r.err.Error())
	}
	return r.data
}
