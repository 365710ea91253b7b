package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsdesk/internal/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{APIKey: "fc-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestFetch_DecodesPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scrape" {
			t.Errorf("path = %q, want /v1/scrape", r.URL.Path)
		}
		var req scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.URL != "https://example.com/post" {
			t.Errorf("url = %q", req.URL)
		}
		w.Write([]byte(`{"success": true, "data": {
			"markdown": "# Post\n\nbody",
			"metadata": {"title": "Post", "description": "a post", "language": "en"}
		}}`))
	})

	page, err := c.Fetch(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Title != "Post" {
		t.Errorf("title = %q, want Post", page.Title)
	}
	if page.Markdown != "# Post\n\nbody" {
		t.Errorf("markdown = %q", page.Markdown)
	}
	if page.Metadata["description"] != "a post" {
		t.Errorf("metadata = %v", page.Metadata)
	}
}

func TestFetch_ScrapeRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "blocked by robots"}`))
	})
	_, err := c.Fetch(context.Background(), "https://example.com/blocked")
	if err == nil {
		t.Fatal("Fetch succeeded on rejected scrape")
	}
	if ports.IsTransient(err) {
		t.Error("rejected scrape classified transient")
	}
}

func TestFetch_RateLimitIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	_, err := c.Fetch(context.Background(), "https://example.com/post")
	if err == nil {
		t.Fatal("Fetch succeeded on 429")
	}
	if !ports.IsTransient(err) {
		t.Error("429 not classified transient")
	}
}
