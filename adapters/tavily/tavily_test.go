package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"newsdesk/internal/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{APIKey: "tvly-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestSearch_DecodesResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tvly-test" {
			t.Errorf("auth header = %q", got)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "memory ordering" || req.MaxResults != 2 {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "A", "url": "https://a.example", "content": "alpha"},
			{"title": "B", "url": "https://b.example", "content": "beta"}
		]}`))
	})

	hits, err := c.Search(context.Background(), "memory ordering", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []ports.SearchHit{
		{Title: "A", URL: "https://a.example", Snippet: "alpha"},
		{Title: "B", URL: "https://b.example", Snippet: "beta"},
	}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_EmptyResultsIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	})
	hits, err := c.Search(context.Background(), "obscure", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %d, want 0", len(hits))
	}
}

func TestSearch_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})
	_, err := c.Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("Search succeeded on 502")
	}
	var se *ports.SearchError
	if !errors.As(err, &se) {
		t.Fatalf("error type %T, want *ports.SearchError", err)
	}
	if !se.Transient {
		t.Error("502 not classified transient")
	}
	if !ports.IsTransient(err) {
		t.Error("IsTransient(err) = false")
	}
}

func TestSearch_AuthErrorIsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})
	_, err := c.Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("Search succeeded on 401")
	}
	if ports.IsTransient(err) {
		t.Error("401 classified transient")
	}
}
