package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"newsdesk/internal/ports"
)

var longBody = strings.Repeat("Substantive reporting on the matter at hand with details. ", 6)

// scriptGen answers every structured-generation request in a run by
// matching the prompt against the known instruction shapes. Sections
// whose heading appears in failHeadings fail permanently.
type scriptGen struct {
	failHeadings []string
	planSections string // raw JSON for the section plan; empty uses a default
}

func (g *scriptGen) Generate(ctx context.Context, p ports.Prompt) (string, error) { return "", nil }

func (g *scriptGen) GenerateJSON(ctx context.Context, p ports.Prompt, v any) error {
	for _, h := range g.failHeadings {
		if strings.Contains(p.System, "Section heading: "+h) {
			return &ports.GenerationError{Provider: "script", Transient: false, Err: errors.New("refused")}
		}
	}

	var raw string
	switch {
	case strings.Contains(p.System, "plan research for a report"):
		raw = `{"queries": ["q1", "q2", "q3"]}`
	case strings.Contains(p.System, "plan the sections"):
		raw = g.planSections
		if raw == "" {
			raw = `{"sections": [
				{"heading": "Background", "description": "context", "research": true},
				{"heading": "Doomed", "description": "will fail", "research": true},
				{"heading": "Findings", "description": "results", "research": true},
				{"heading": "Conclusion", "description": "wrap up", "research": false}
			]}`
		}
	case strings.Contains(p.System, "targeted web search queries"),
		strings.Contains(p.System, "failed review"):
		raw = `{"queries": ["follow up"]}`
	case strings.Contains(p.System, "write one section"),
		strings.Contains(p.System, "synthesis section"):
		raw = fmt.Sprintf(`{"headline": "", "content": %q, "quotes": [], "references": []}`, longBody)
	case strings.Contains(p.System, "summarize a finished report"):
		raw = `{"title": "Findings overview",
			"micro": "What the sources show, where they disagree, and what remains unresolved today.",
			"digest": ["Sources broadly agree on causes", "Two accounts dispute the timeline", "Key figures remain unconfirmed"],
			"tags": ["analysis", "sources", "timeline", "figures", "reporting"]}`
	case strings.Contains(p.System, "brief for one theme"):
		raw = `{"summary": "Two outlets covered the same launch with matching details on scope and timing across regions worldwide, confirming the rollout schedule.",
			"content": "` + strings.Repeat("Coverage agrees on the essentials. ", 14) + `"}`
	default:
		return fmt.Errorf("unexpected prompt: %q", p.System)
	}
	return json.Unmarshal([]byte(raw), v)
}

type mapFetcher struct {
	pages map[string]*ports.PageContent
}

func (f *mapFetcher) Fetch(ctx context.Context, url string) (*ports.PageContent, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, &ports.FetchError{URL: url, Transient: false, Err: errors.New("not found")}
	}
	return page, nil
}

func newTestRunner(t *testing.T, gen ports.Generator, fetcher ports.PageFetcher, search ports.Searcher) *Runner {
	t.Helper()
	r, err := New(Deps{Generator: gen, Searcher: search, Fetcher: fetcher}, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestReport_OneBranchFailsRunSurvives(t *testing.T) {
	fetcher := &mapFetcher{pages: map[string]*ports.PageContent{
		"https://example.com/story": {Title: "Story", Markdown: "full text of the story"},
	}}
	gen := &scriptGen{failHeadings: []string{"Doomed"}}

	r := newTestRunner(t, gen, fetcher, nil)
	rep, err := r.Report(context.Background(), "https://example.com/story")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if len(rep.Sections) != 4 {
		t.Fatalf("sections = %d, want 4", len(rep.Sections))
	}
	// plan order preserved
	wantHeadlines := []string{"Background", "Doomed", "Findings", "Conclusion"}
	degraded := 0
	for i, s := range rep.Sections {
		if s.Headline != wantHeadlines[i] {
			t.Errorf("section %d headline = %q, want %q", i, s.Headline, wantHeadlines[i])
		}
		if s.Degraded {
			degraded++
			if s.Headline != "Doomed" {
				t.Errorf("unexpected degraded section %q", s.Headline)
			}
		}
	}
	if degraded != 1 {
		t.Errorf("degraded sections = %d, want 1", degraded)
	}
	if rep.Input == nil || rep.Input.URL != "https://example.com/story" {
		t.Errorf("input echo missing: %+v", rep.Input)
	}
	if rep.EstimatedMinutes < 1 {
		t.Errorf("estimatedMinutes = %d, want >= 1", rep.EstimatedMinutes)
	}
}

// stalledFetcher blocks until the call context is cancelled.
type stalledFetcher struct{}

func (stalledFetcher) Fetch(ctx context.Context, url string) (*ports.PageContent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestReport_StalledStageTimesOut(t *testing.T) {
	r, err := New(Deps{Generator: &scriptGen{}, Fetcher: stalledFetcher{}},
		Config{StageTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Report(context.Background(), "https://example.com/story")
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Report succeeded, want timeout error")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Report still blocked, stalled fetch was never timed out")
	}
}

func TestReport_AllResearchSectionsFailedAborts(t *testing.T) {
	fetcher := &mapFetcher{pages: map[string]*ports.PageContent{
		"https://example.com/story": {Title: "Story", Markdown: "text"},
	}}
	gen := &scriptGen{failHeadings: []string{"Background", "Doomed", "Findings"}}

	r := newTestRunner(t, gen, fetcher, nil)
	_, err := r.Report(context.Background(), "https://example.com/story")
	if err == nil {
		t.Fatal("Report succeeded, want abort when every research section fails")
	}
}

func TestReport_EmptyPlanAborts(t *testing.T) {
	fetcher := &mapFetcher{pages: map[string]*ports.PageContent{
		"https://example.com/story": {Title: "Story", Markdown: "text"},
	}}
	gen := &scriptGen{planSections: `{"sections": []}`}

	r := newTestRunner(t, gen, fetcher, nil)
	_, err := r.Report(context.Background(), "https://example.com/story")
	if err == nil {
		t.Fatal("Report succeeded, want abort on empty plan")
	}
}

type listSearcher struct {
	hits []ports.SearchHit
}

func (s *listSearcher) Search(ctx context.Context, query string, maxResults int) ([]ports.SearchHit, error) {
	if maxResults < len(s.hits) {
		return s.hits[:maxResults], nil
	}
	return s.hits, nil
}

func TestBrief_ClustersScoresAndDedupes(t *testing.T) {
	fetcher := &mapFetcher{pages: map[string]*ports.PageContent{
		"https://news.example/a": {Title: "chip factory output doubles", Markdown: "chip factory output doubles in the region"},
		"https://news.example/b": {Title: "chip factory output expands", Markdown: "chip factory output doubles again worldwide"},
		"https://news.example/c": {Title: "harvest festival opens downtown", Markdown: "the annual harvest festival opens downtown today"},
	}}
	search := &listSearcher{hits: []ports.SearchHit{
		{Title: "related", URL: "https://other.example/x", Snippet: "s"},
		{Title: "dupe of a member", URL: "https://news.example/a", Snippet: "s"},
	}}
	gen := &scriptGen{}

	r := newTestRunner(t, gen, fetcher, search)
	brief, err := r.Brief(context.Background(), []string{
		"https://news.example/a",
		"https://news.example/b",
		"https://news.example/c",
		"https://news.example/missing",
	}, nil)
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}

	if len(brief.Themes) != 2 {
		t.Fatalf("themes = %d, want 2 (similar pair merged, failed URL dropped)", len(brief.Themes))
	}
	var counts []int
	for _, th := range brief.Themes {
		counts = append(counts, th.ArticleCount)
		if th.Summary == "" || th.Content == "" {
			t.Errorf("theme %q missing generated brief", th.Label)
		}
		for _, src := range th.Sources {
			if src.URL == "https://news.example/a" {
				t.Errorf("member URL leaked into related sources")
			}
		}
	}
	if counts[0]+counts[1] != 3 {
		t.Errorf("article counts %v, want partition of 3 documents", counts)
	}
}

func TestBrief_AllSourcesFailAborts(t *testing.T) {
	fetcher := &mapFetcher{pages: map[string]*ports.PageContent{}}
	r := newTestRunner(t, &scriptGen{}, fetcher, nil)
	_, err := r.Brief(context.Background(), []string{"https://x/1", "https://x/2"}, nil)
	if err == nil {
		t.Fatal("Brief succeeded, want abort when every fetch fails")
	}
}

func TestBrief_ImportanceOrdering(t *testing.T) {
	fetcher := &mapFetcher{pages: map[string]*ports.PageContent{
		"https://news.example/tech":  {Title: "new software platform release", Markdown: "ai software startup releases new app platform"},
		"https://news.example/plain": {Title: "harvest festival opens downtown", Markdown: "the annual harvest festival opens downtown today"},
	}}
	gen := &scriptGen{}
	r := newTestRunner(t, gen, fetcher, nil)

	brief, err := r.Brief(context.Background(), []string{
		"https://news.example/plain",
		"https://news.example/tech",
	}, map[string]float64{"technology": 5})
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}
	if len(brief.Themes) != 2 {
		t.Fatalf("themes = %d, want 2", len(brief.Themes))
	}
	if brief.Themes[0].Label != "new software platform release" {
		t.Errorf("first theme = %q, want the boosted technology theme", brief.Themes[0].Label)
	}
	if brief.Themes[0].Importance <= brief.Themes[1].Importance {
		t.Errorf("importance ordering violated: %v then %v", brief.Themes[0].Importance, brief.Themes[1].Importance)
	}
}
