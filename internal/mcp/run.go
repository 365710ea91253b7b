package mcp

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"newsdesk/internal/report"
)

// RunKind distinguishes the two pipeline entry points.
type RunKind string

const (
	KindReport RunKind = "report"
	KindBrief  RunKind = "brief"
)

// RunState tracks the lifecycle of one pipeline run.
type RunState string

const (
	StateRunning RunState = "running"
	StateDone    RunState = "done"
	StateError   RunState = "error"
)

// Run is one in-flight or completed pipeline execution. Results are
// written once by the runner goroutine and read under the mutex.
type Run struct {
	ID   string
	Kind RunKind

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	report *report.Report
	brief  *report.Brief
	err    error
}

func newRun(kind RunKind) *Run {
	ctx, cancel := context.WithCancel(context.Background())
	return &Run{
		ID:     uuid.NewString(),
		Kind:   kind,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done is closed when the run has finished, successfully or not.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel aborts the run.
func (r *Run) Cancel() { r.cancel() }

// Result returns the run's outcome. Valid only after Done is closed.
func (r *Run) Result() (*report.Report, *report.Brief, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report, r.brief, r.err
}

func (r *Run) setReport(rep *report.Report) {
	r.mu.Lock()
	r.report = rep
	r.mu.Unlock()
}

func (r *Run) setBrief(br *report.Brief) {
	r.mu.Lock()
	r.brief = br
	r.mu.Unlock()
}

func (r *Run) finish(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	close(r.done)
	r.cancel()
}
