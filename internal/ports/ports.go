// Package ports declares the capability interfaces the pipeline core
// depends on. Implementations live under adapters/ and are injected at
// startup; the core never constructs a network client itself.
package ports

import "context"

// Generator produces text or structured output from a prompt.
type Generator interface {
	// Generate returns the model's free-text completion for the prompt.
	Generate(ctx context.Context, prompt Prompt) (string, error)

	// GenerateJSON asks the model for output conforming to the shape of v
	// and unmarshals the response into it. A malformed response is a
	// *GenerationError.
	GenerateJSON(ctx context.Context, prompt Prompt, v any) error
}

// Prompt is a system/user instruction pair.
type Prompt struct {
	System string
	User   string
}

// Searcher queries a web-search backend. An empty result list is a valid
// outcome, not an error.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error)
}

// SearchHit is one web-search result.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// PageFetcher retrieves the readable content of a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*PageContent, error)
}

// PageContent is the structured result of fetching a page.
type PageContent struct {
	Title    string            `json:"title"`
	Markdown string            `json:"markdown"`
	Metadata map[string]string `json:"metadata"`
}
