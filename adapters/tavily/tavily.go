// Package tavily implements the Searcher port over the Tavily search
// API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsdesk/internal/ports"
)

const defaultBaseURL = "https://api.tavily.com"

// Config holds Tavily connection settings.
type Config struct {
	APIKey  string
	BaseURL string // defaults to the public API
}

// Client is a Tavily search client.
type Client struct {
	HTTPClient *http.Client
	cfg        Config
}

// defaultTimeout bounds one search request end to end, independent of
// any context deadline the caller carries.
const defaultTimeout = 30 * time.Second

// NewClient returns a client with the given config. HTTPClient may be
// overridden after construction.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tavily: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{HTTPClient: &http.Client{Timeout: defaultTimeout}, cfg: cfg}, nil
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs a web search. An empty hit list is a valid outcome, not
// an error.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]ports.SearchHit, error) {
	body, err := json.Marshal(searchRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, &ports.SearchError{Query: query, Err: err}
	}

	u := c.cfg.BaseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, &ports.SearchError{Query: query, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ports.SearchError{Query: query, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, &ports.SearchError{
			Query:     query,
			Transient: transient,
			Err:       fmt.Errorf("%s: %s", resp.Status, string(msg)),
		}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ports.SearchError{Query: query, Err: fmt.Errorf("decode response: %w", err)}
	}

	hits := make([]ports.SearchHit, 0, len(out.Results))
	for _, r := range out.Results {
		hits = append(hits, ports.SearchHit{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return hits, nil
}
