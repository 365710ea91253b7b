package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventType classifies run events for filtering and routing.
type EventType string

const (
	EventNodeEnter   EventType = "node_enter"
	EventNodeExit    EventType = "node_exit"
	EventTransition  EventType = "transition"
	EventRetry       EventType = "retry"
	EventRunComplete EventType = "run_complete"
	EventRunError    EventType = "run_error"
)

// Event is a single observation from a graph run.
type Event struct {
	Type    EventType
	Node    string
	Edge    string
	Attempt int
	Elapsed time.Duration
	Err     error
}

// Observer receives events during a run. Single-method design so adding
// new event types never breaks existing observers.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// MultiObserver fans out events to multiple observers.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(e Event) {
	for _, obs := range m {
		obs.OnEvent(e)
	}
}

// LogObserver writes run events as structured slog lines. Errors log at
// Warn, everything else at Debug so steady-state runs stay quiet.
type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) OnEvent(e Event) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{slog.String("event", string(e.Type))}
	if e.Node != "" {
		attrs = append(attrs, slog.String("node", e.Node))
	}
	if e.Edge != "" {
		attrs = append(attrs, slog.String("edge", e.Edge))
	}
	if e.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", e.Attempt))
	}
	if e.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", e.Elapsed))
	}

	level := slog.LevelDebug
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
		level = slog.LevelWarn
	}
	logger.LogAttrs(context.Background(), level, "run", attrs...)
}

// TraceCollector accumulates run events in memory, mostly for tests and
// post-run inspection. Safe for concurrent use.
type TraceCollector struct {
	mu     sync.Mutex
	events []Event
}

func (t *TraceCollector) OnEvent(e Event) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of all collected events.
func (t *TraceCollector) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Visits counts node_enter events for the given node.
func (t *TraceCollector) Visits(node string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.events {
		if e.Type == EventNodeEnter && e.Node == node {
			n++
		}
	}
	return n
}

// emit delivers an event to a possibly-nil observer.
func emit(obs Observer, e Event) {
	if obs != nil {
		obs.OnEvent(e)
	}
}
