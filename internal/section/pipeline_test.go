package section

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newsdesk/internal/ports"
	"newsdesk/internal/report"
)

var goodContent = strings.Repeat("Detailed analysis of the subject with cited evidence. ", 8)

// fakeGen serves scripted section drafts in order and a fixed query
// list for every query request.
type fakeGen struct {
	drafts  []sectionOutput
	next    int
	queries []string
	err     error
}

func (f *fakeGen) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	return "", f.err
}

func (f *fakeGen) GenerateJSON(ctx context.Context, p ports.Prompt, v any) error {
	if f.err != nil {
		return f.err
	}
	switch out := v.(type) {
	case *queriesOutput:
		out.Queries = f.queries
	case *sectionOutput:
		if f.next >= len(f.drafts) {
			t := sectionOutput{Content: goodContent}
			*out = t
			return nil
		}
		*out = f.drafts[f.next]
		f.next++
	}
	return nil
}

type fakeSearcher struct {
	hits    []ports.SearchHit
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]ports.SearchHit, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func researchPlan() report.SectionPlan {
	return report.SectionPlan{
		ID:             "s1",
		Heading:        "Memory model",
		Description:    "How the runtime orders memory operations",
		ResearchNeeded: true,
	}
}

func TestBuild_PassesFirstTime(t *testing.T) {
	gen := &fakeGen{drafts: []sectionOutput{{Headline: "Memory model", Content: goodContent}}}
	p, err := New(gen, nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	draft, err := p.Build(context.Background(), researchPlan(), "source text")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if draft.Status != report.StatusComplete {
		t.Errorf("status = %q, want %q", draft.Status, report.StatusComplete)
	}
	if draft.RevisionCount != 0 {
		t.Errorf("revision count = %d, want 0", draft.RevisionCount)
	}
	if draft.Content != goodContent {
		t.Errorf("content not carried into draft")
	}
}

func TestBuild_FailsTwiceThenPasses(t *testing.T) {
	gen := &fakeGen{drafts: []sectionOutput{
		{Content: "too short"},
		{Content: "still too short"},
		{Content: goodContent},
	}}
	p, err := New(gen, nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	draft, err := p.Build(context.Background(), researchPlan(), "source text")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if draft.Status != report.StatusComplete {
		t.Errorf("status = %q, want %q", draft.Status, report.StatusComplete)
	}
	if draft.RevisionCount != 2 {
		t.Errorf("revision count = %d, want 2", draft.RevisionCount)
	}
}

func TestBuild_BudgetExhaustedRetainsLastDraft(t *testing.T) {
	last := "final attempt, still short"
	gen := &fakeGen{drafts: []sectionOutput{
		{Content: "v1"},
		{Content: "v2"},
		{Content: "v3"},
		{Content: last},
		// further requests would pass grading, proving the loop stopped
	}}
	p, err := New(gen, nil, Config{RevisionBudget: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	draft, err := p.Build(context.Background(), researchPlan(), "source text")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if draft.Status != report.StatusFailed {
		t.Errorf("status = %q, want %q", draft.Status, report.StatusFailed)
	}
	if !draft.Degraded {
		t.Error("degraded = false, want true")
	}
	if draft.RevisionCount != 3 {
		t.Errorf("revision count = %d, want 3", draft.RevisionCount)
	}
	if draft.Content != last {
		t.Errorf("content = %q, want last draft retained", draft.Content)
	}
}

func TestBuild_RequiresReferencesWhenSourcesExist(t *testing.T) {
	gen := &fakeGen{
		queries: []string{"memory ordering guarantees"},
		drafts: []sectionOutput{
			{Content: goodContent}, // long but uncited
			{Content: goodContent, References: []report.Reference{{Title: "standard", URL: "https://example.com/standard"}}},
		},
	}
	search := &fakeSearcher{hits: []ports.SearchHit{
		{Title: "standard", URL: "https://example.com/standard", Snippet: "ordering rules"},
	}}
	p, err := New(gen, search, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	draft, err := p.Build(context.Background(), researchPlan(), "source text")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if draft.Status != report.StatusComplete {
		t.Errorf("status = %q, want %q", draft.Status, report.StatusComplete)
	}
	if draft.RevisionCount != 1 {
		t.Errorf("revision count = %d, want 1", draft.RevisionCount)
	}
	if len(search.queries) == 0 {
		t.Error("searcher was never queried")
	}
}

func TestBuild_SearchFailureDegrades(t *testing.T) {
	gen := &fakeGen{
		queries: []string{"q"},
		drafts:  []sectionOutput{{Content: goodContent}},
	}
	search := &fakeSearcher{err: &ports.SearchError{Query: "q", Transient: true, Err: context.DeadlineExceeded}}
	p, err := New(gen, search, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	draft, err := p.Build(context.Background(), researchPlan(), "source text")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if draft.Status != report.StatusComplete {
		t.Errorf("status = %q, want %q: search failure must not abort the section", draft.Status, report.StatusComplete)
	}
}

func TestBuild_PermanentGenerationErrorEscalates(t *testing.T) {
	genErr := &ports.GenerationError{Provider: "test", Transient: false, Err: errors.New("model refused")}
	gen := &fakeGen{err: genErr}
	p, err := New(gen, nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Build(context.Background(), researchPlan(), "source text")
	if err == nil {
		t.Fatal("Build succeeded, want error")
	}
}

// stalledGen never answers; it blocks until the call context is
// cancelled.
type stalledGen struct{}

func (stalledGen) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stalledGen) GenerateJSON(ctx context.Context, p ports.Prompt, v any) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestBuild_StalledCallTimesOut(t *testing.T) {
	p, err := New(stalledGen{}, nil, Config{CallTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type result struct {
		err error
	}
	done := make(chan result, 1)
	go func() {
		_, err := p.Build(context.Background(), researchPlan(), "source text")
		done <- result{err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			t.Fatal("Build succeeded, want timeout error")
		}
		if !errors.Is(res.err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Build still blocked, stalled generator call was never timed out")
	}
}

func TestWriteFinal(t *testing.T) {
	gen := &fakeGen{drafts: []sectionOutput{{Headline: "Conclusion", Content: goodContent}}}
	p, err := New(gen, nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	plan := report.SectionPlan{ID: "s9", Heading: "Conclusion", ResearchNeeded: false}
	draft, err := p.WriteFinal(context.Background(), plan, "source", "completed research")
	if err != nil {
		t.Fatalf("WriteFinal: %v", err)
	}
	if draft.Status != report.StatusComplete {
		t.Errorf("status = %q, want %q", draft.Status, report.StatusComplete)
	}
	if draft.Headline != "Conclusion" {
		t.Errorf("headline = %q, want Conclusion", draft.Headline)
	}
}

func TestTopQuotes_RanksByRelevance(t *testing.T) {
	quotes := []report.Quote{
		{Text: "a", Relevance: 0.2},
		{Text: "b", Relevance: 0.9},
		{Text: "c", Relevance: 0.5},
		{Text: "d", Relevance: 0.7},
	}
	got := topQuotes(quotes, 3)
	want := []report.Quote{
		{Text: "b", Relevance: 0.9},
		{Text: "d", Relevance: 0.7},
		{Text: "c", Relevance: 0.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("topQuotes mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		draft   report.SectionDraft
		sources bool
		pass    bool
	}{
		{"good uncited no sources", report.SectionDraft{Content: goodContent}, false, true},
		{"too short", report.SectionDraft{Content: "brief"}, false, false},
		{"uncited with sources", report.SectionDraft{Content: goodContent}, true, false},
		{"cited with sources", report.SectionDraft{Content: goodContent, References: []report.Reference{{URL: "u"}}}, true, true},
		{"placeholder text", report.SectionDraft{Content: goodContent + " TODO: fill in numbers"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(tt.draft, tt.sources, 200)
			if v.pass != tt.pass {
				t.Errorf("pass = %v, want %v (reasons %v)", v.pass, tt.pass, v.reasons)
			}
		})
	}
}

func TestFormatSources_DedupesByURL(t *testing.T) {
	hits := []ports.SearchHit{
		{Title: "a", URL: "https://x/1", Snippet: "s1"},
		{Title: "b", URL: "https://x/1", Snippet: "s1 again"},
		{Title: "c", URL: "https://x/2", Snippet: "s2"},
	}
	_, n := formatSources(hits)
	if n != 2 {
		t.Errorf("unique sources = %d, want 2", n)
	}
}
