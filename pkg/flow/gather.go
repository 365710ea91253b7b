package flow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one branch of a Gather call.
type Result[R any] struct {
	Value R
	Err   error
}

// Gather runs fn over items concurrently, at most limit at a time
// (0 = unlimited), and returns per-branch results in input order. One
// branch failing never cancels its siblings; only cancellation of ctx
// stops in-flight branches. The call returns after every branch has
// completed or failed, so it doubles as the fan-in barrier.
func Gather[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // branch errors are carried in results
	return results
}
