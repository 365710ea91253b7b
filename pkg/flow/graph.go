// Package flow is a small interpreter for directed workflow graphs with
// typed state. Nodes are handler functions keyed by name, edges are
// predicates over state evaluated in definition order, and loop edges
// carry an explicit iteration budget. The engine retries transient node
// failures with backoff and reports everything else as an
// *ExecutionError naming the offending node.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retry bounds per-node retries of transient failures.
type Retry struct {
	Attempts int           // total attempts, including the first (0 or 1 = no retry)
	Backoff  time.Duration // sleep after attempt n is Backoff * n
}

// Graph is a named workflow graph over a state type S. Construct with
// New; zero value is not usable.
type Graph[S any] struct {
	name      string
	start     string
	handlers  map[string]Handler[S]
	edges     []Edge[S]
	edgeIndex map[string][]Edge[S] // from-node -> edges in definition order

	retry       Retry
	retryable   func(error) bool
	callTimeout time.Duration
	maxSteps    int
	observer    Observer
}

// Option configures a Graph during construction.
type Option[S any] func(*Graph[S])

// WithRetry sets the per-node retry policy for transient failures.
func WithRetry[S any](r Retry) Option[S] {
	return func(g *Graph[S]) { g.retry = r }
}

// WithRetryable sets the predicate that classifies a handler error as
// transient. Without it only call-timeout expiry is retried.
func WithRetryable[S any](fn func(error) bool) Option[S] {
	return func(g *Graph[S]) { g.retryable = fn }
}

// WithCallTimeout bounds each handler invocation. A deadline hit counts
// as a transient failure, not a hang.
func WithCallTimeout[S any](d time.Duration) Option[S] {
	return func(g *Graph[S]) { g.callTimeout = d }
}

// WithMaxSteps caps total node visits per run. 0 disables the cap.
func WithMaxSteps[S any](n int) Option[S] {
	return func(g *Graph[S]) { g.maxSteps = n }
}

// WithObserver attaches an observer that receives run events.
func WithObserver[S any](obs Observer) Option[S] {
	return func(g *Graph[S]) { g.observer = obs }
}

// New constructs a Graph from named handlers and edges, checking
// referential integrity: the start node and every edge endpoint must
// exist (End is always a valid target), and edge IDs must be unique.
func New[S any](name, start string, handlers map[string]Handler[S], edges []Edge[S], opts ...Option[S]) (*Graph[S], error) {
	g := &Graph[S]{
		name:      name,
		start:     start,
		handlers:  handlers,
		edges:     edges,
		edgeIndex: make(map[string][]Edge[S]),
	}
	for _, opt := range opts {
		opt(g)
	}

	if _, ok := handlers[start]; !ok {
		return nil, fmt.Errorf("%w: start node %q", ErrNodeNotFound, start)
	}
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if e.ID == "" {
			return nil, fmt.Errorf("flow: edge %s -> %s has no id", e.From, e.To)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("flow: duplicate edge id %q", e.ID)
		}
		seen[e.ID] = true
		if _, ok := handlers[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge %s references source %q", ErrNodeNotFound, e.ID, e.From)
		}
		if e.To != End {
			if _, ok := handlers[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge %s references target %q", ErrNodeNotFound, e.ID, e.To)
			}
		}
		g.edgeIndex[e.From] = append(g.edgeIndex[e.From], e)
	}
	return g, nil
}

// Name returns the graph's name.
func (g *Graph[S]) Name() string { return g.name }

// Run walks the graph from its start node and returns the final state.
// At each node the handler produces the next state, then edges from
// that node are evaluated in definition order; the first match decides
// the transition. A run ends when an edge targets End or the current
// node has no outgoing edges. Cancelling ctx aborts the run promptly.
func (g *Graph[S]) Run(ctx context.Context, s S) (S, error) {
	loops := make(map[string]int)
	node := g.start
	steps := 0

	for {
		if err := ctx.Err(); err != nil {
			emit(g.observer, Event{Type: EventRunError, Node: node, Err: err})
			return s, err
		}

		steps++
		if g.maxSteps > 0 && steps > g.maxSteps {
			err := fmt.Errorf("%w: %d node visits", ErrBudgetExceeded, g.maxSteps)
			emit(g.observer, Event{Type: EventRunError, Node: node, Err: err})
			return s, &ExecutionError{Node: node, Err: err}
		}

		emit(g.observer, Event{Type: EventNodeEnter, Node: node})
		start := time.Now()

		next, err := g.invoke(ctx, node, s)
		elapsed := time.Since(start)

		if err != nil {
			emit(g.observer, Event{Type: EventNodeExit, Node: node, Elapsed: elapsed, Err: err})
			emit(g.observer, Event{Type: EventRunError, Node: node, Err: err})
			return s, &ExecutionError{Node: node, Err: err}
		}
		s = next
		emit(g.observer, Event{Type: EventNodeExit, Node: node, Elapsed: elapsed})

		edges := g.edgeIndex[node]
		if len(edges) == 0 {
			emit(g.observer, Event{Type: EventRunComplete, Node: node})
			return s, nil
		}

		matched, ok := firstMatch(edges, s)
		if !ok {
			err := fmt.Errorf("%w: node %q", ErrNoEdge, node)
			emit(g.observer, Event{Type: EventRunError, Node: node, Err: err})
			return s, err
		}

		if matched.Loop {
			loops[matched.ID]++
			if loops[matched.ID] > matched.maxLoops() {
				err := fmt.Errorf("%w: loop edge %s fired %d times (max %d)",
					ErrBudgetExceeded, matched.ID, loops[matched.ID], matched.maxLoops())
				emit(g.observer, Event{Type: EventRunError, Node: node, Err: err})
				return s, &ExecutionError{Node: node, Err: err}
			}
		}

		emit(g.observer, Event{Type: EventTransition, Node: node, Edge: matched.ID})

		if matched.To == End {
			emit(g.observer, Event{Type: EventRunComplete, Node: node})
			return s, nil
		}
		node = matched.To
	}
}

func firstMatch[S any](edges []Edge[S], s S) (Edge[S], bool) {
	for _, e := range edges {
		if e.When == nil || e.When(s) {
			return e, true
		}
	}
	var zero Edge[S]
	return zero, false
}

// invoke runs one handler with the configured timeout and retry policy.
func (g *Graph[S]) invoke(ctx context.Context, node string, s S) (S, error) {
	h := g.handlers[node]

	attempts := g.retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if g.callTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.callTimeout)
		}
		out, err := h(callCtx, s)
		cancel()

		if err == nil {
			return out, nil
		}
		lastErr = err

		if !g.shouldRetry(ctx, err) || attempt == attempts {
			break
		}
		emit(g.observer, Event{Type: EventRetry, Node: node, Attempt: attempt, Err: err})

		if g.retry.Backoff > 0 {
			select {
			case <-time.After(g.retry.Backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return s, ctx.Err()
			}
		}
	}
	return s, lastErr
}

func (g *Graph[S]) shouldRetry(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	// A call-timeout expiry is transient by definition.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return g.retryable != nil && g.retryable(err)
}
