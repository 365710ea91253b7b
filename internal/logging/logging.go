package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the process-wide slog default. Format is "text" or
// "json"; anything else falls back to text. Output goes to os.Stderr
// unless a writer is supplied.
func Init(level slog.Level, format string, w ...io.Writer) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// New derives a logger tagged with the owning component, so log lines
// from the engine, the adapters, and the pipelines stay tellable apart.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// ForRun returns a component logger that also carries the run ID, so every
// line from one pipeline execution can be correlated.
func ForRun(component, runID string) *slog.Logger {
	return New(component).With(slog.String("run_id", runID))
}
