// Package firecrawl implements the PageFetcher port over the Firecrawl
// scrape API, which returns pages pre-converted to markdown.
package firecrawl

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

const defaultBaseURL = "https://api.firecrawl.dev"

// Config holds Firecrawl connection settings.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client is a Firecrawl scrape client.
type Client struct {
	HTTPClient *http.Client
	cfg        Config
}

// defaultTimeout bounds one scrape request end to end, independent of
// any context deadline the caller carries.
const defaultTimeout = 60 * time.Second

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("firecrawl: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{HTTPClient: &http.Client{Timeout: defaultTimeout}, cfg: cfg}, nil
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Language    string `json:"language"`
			SourceURL   string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// Fetch scrapes a URL into markdown page content.
func (c *Client) Fetch(ctx context.Context, url string) (*ports.PageContent, error) {
	body, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"markdown"}})
	if err != nil {
		return nil, &ports.FetchError{URL: url, Err: err}
	}

	u := c.cfg.BaseURL + "/v1/scrape"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, &ports.FetchError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ports.FetchError{URL: url, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, &ports.FetchError{
			URL:       url,
			Transient: transient,
			Err:       fmt.Errorf("%s: %s", resp.Status, string(msg)),
		}
	}

	var out scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ports.FetchError{URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !out.Success {
		return nil, &ports.FetchError{URL: url, Err: fmt.Errorf("scrape rejected: %s", out.Error)}
	}

	meta := map[string]string{}
	if out.Data.Metadata.Description != "" {
		meta["description"] = out.Data.Metadata.Description
	}
	if out.Data.Metadata.Language != "" {
		meta["language"] = out.Data.Metadata.Language
	}
	return &ports.PageContent{
		Title:    out.Data.Metadata.Title,
		Markdown: out.Data.Markdown,
		Metadata: meta,
	}, nil
}
