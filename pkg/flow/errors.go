package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a referenced node does not exist in the graph.
	ErrNodeNotFound = errors.New("flow: node not found")

	// ErrNoEdge is returned when no edge matches from the current node,
	// indicating a terminal state the graph definition did not anticipate.
	ErrNoEdge = errors.New("flow: no matching edge from node")

	// ErrBudgetExceeded is returned when a loop edge fires beyond its
	// configured maximum, or the walk exceeds its overall step cap.
	ErrBudgetExceeded = errors.New("flow: iteration budget exceeded")
)

// ExecutionError reports the node at which a run failed after retries
// were exhausted.
type ExecutionError struct {
	Node string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
