package flow

import "context"

// End is the terminal pseudo-node. An edge targeting End completes the run.
const End = "_end"

// DefaultMaxLoops bounds loop edges that do not declare their own budget.
const DefaultMaxLoops = 3

// Handler computes the next state from the current one. Nodes follow a
// structural-merge contract on their state type: scalar fields are
// replaced, slice fields are appended to, unless the node documents a
// replace semantic for a field.
type Handler[S any] func(ctx context.Context, s S) (S, error)

// Predicate decides whether an edge fires for the current state.
type Predicate[S any] func(s S) bool

// Edge is a directed connection between two nodes. A nil When makes the
// edge unconditional. Edges from a node are evaluated in definition
// order and the first match wins, so an unconditional edge acts as a
// fallback when listed last.
type Edge[S any] struct {
	ID       string
	From     string
	To       string
	Loop     bool // routes back to an earlier node; counted against MaxLoops
	MaxLoops int  // 0 means DefaultMaxLoops
	When     Predicate[S]
}

func (e Edge[S]) maxLoops() int {
	if e.MaxLoops > 0 {
		return e.MaxLoops
	}
	return DefaultMaxLoops
}
