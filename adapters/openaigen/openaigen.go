// Package openaigen implements the Generator port over the OpenAI chat
// completions API.
package openaigen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"newsdesk/internal/ports"
)

// Config holds OpenAI connection settings.
type Config struct {
	APIKey  string
	BaseURL string // optional, for compatible endpoints
	Model   string
}

// Generator calls the chat completions API.
type Generator struct {
	model string
	opts  []option.RequestOption
}

func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openaigen: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openaigen: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Generator{model: cfg.Model, opts: opts}, nil
}

// Generate returns the raw completion for a prompt.
func (g *Generator) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	client := openai.NewClient(g.opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(p.System),
		openai.UserMessage(p.User),
	}
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: msgs,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ports.GenerationError{Provider: "openai", Transient: true, Err: errors.New("empty choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateJSON completes the prompt and unmarshals the JSON payload
// into v, tolerating code fences around the object.
func (g *Generator) GenerateJSON(ctx context.Context, p ports.Prompt, v any) error {
	raw, err := g.Generate(ctx, p)
	if err != nil {
		return err
	}
	payload := extractJSON(raw)
	if payload == "" {
		return &ports.GenerationError{Provider: "openai", Transient: true, Err: fmt.Errorf("no JSON object in completion %q", clip(raw))}
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return &ports.GenerationError{Provider: "openai", Transient: true, Err: fmt.Errorf("decode completion: %w", err)}
	}
	return nil
}

// classify maps SDK errors onto the port taxonomy. Rate limits and
// server errors are worth retrying; auth and request errors are not.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		transient := apierr.StatusCode == 429 || apierr.StatusCode >= 500
		return &ports.GenerationError{Provider: "openai", Transient: transient, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// transport-level failures
	return &ports.GenerationError{Provider: "openai", Transient: true, Err: err}
}

// extractJSON strips markdown fences and returns the outermost JSON
// object or array in the text.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func clip(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
