package ports

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient generation", &GenerationError{Provider: "openai", Transient: true, Err: base}, true},
		{"permanent generation", &GenerationError{Provider: "openai", Err: base}, false},
		{"transient search", &SearchError{Query: "q", Transient: true, Err: base}, true},
		{"transient fetch", &FetchError{URL: "https://x", Transient: true, Err: base}, true},
		{"wrapped transient", fmt.Errorf("node plan: %w", &SearchError{Query: "q", Transient: true, Err: base}), true},
		{"plain error", base, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	base := errors.New("timeout")
	err := &FetchError{URL: "https://example.com", Transient: true, Err: base}
	if !errors.Is(err, base) {
		t.Error("expected FetchError to unwrap to its cause")
	}
}
