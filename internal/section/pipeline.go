// Package section builds one report section at a time: research the
// topic, draft content, grade it against acceptance criteria, and
// revise under a bounded reflection budget. Each Pipeline run owns its
// own draft; sibling sections share nothing mutable.
package section

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsdesk/internal/logging"
	"newsdesk/internal/ports"
	"newsdesk/internal/report"
	"newsdesk/pkg/flow"
)

// Config bounds one section build.
type Config struct {
	RevisionBudget    int           // max revise cycles before the draft is failed (default 3)
	QueriesPerSection int           // search queries generated per research pass (default 3)
	MaxSearchResults  int           // hits requested per query (default 5)
	MinContentLen     int           // grading: minimum body length in runes (default 200)
	CallTimeout       time.Duration // per-node call budget (default 60s)
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.RevisionBudget <= 0 {
		c.RevisionBudget = 3
	}
	if c.QueriesPerSection <= 0 {
		c.QueriesPerSection = 3
	}
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = 5
	}
	if c.MinContentLen <= 0 {
		c.MinContentLen = 200
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 60 * time.Second
	}
	return c
}

// Pipeline researches, drafts, grades, and revises sections. Safe for
// concurrent use: all mutable state lives in the per-run build state.
type Pipeline struct {
	gen    ports.Generator
	search ports.Searcher
	cfg    Config
	graph  *flow.Graph[buildState]
	logger *slog.Logger
}

// buildState is the working state for one section build.
type buildState struct {
	plan       report.SectionPlan
	sourceText string
	queries    []string
	sources    string // formatted supplementary material
	sourceHits int
	draft      report.SectionDraft
}

// New constructs a Pipeline. search may be nil, in which case sections
// are drafted from the source document alone.
func New(gen ports.Generator, search ports.Searcher, cfg Config) (*Pipeline, error) {
	p := &Pipeline{
		gen:    gen,
		search: search,
		cfg:    cfg.withDefaults(),
		logger: logging.New("section"),
	}

	handlers := map[string]flow.Handler[buildState]{
		"research": p.researchNode,
		"draft":    p.draftNode,
		"grade":    p.gradeNode,
	}
	edges := []flow.Edge[buildState]{
		{ID: "researched", From: "research", To: "draft"},
		{ID: "drafted", From: "draft", To: "grade"},
		{ID: "accepted", From: "grade", To: flow.End, When: func(s buildState) bool {
			return s.draft.Status == report.StatusComplete || s.draft.Status == report.StatusFailed
		}},
		{ID: "revise", From: "grade", To: "research", Loop: true, MaxLoops: p.cfg.RevisionBudget, When: func(s buildState) bool {
			return s.draft.Status == report.StatusNeedsRevision
		}},
	}

	g, err := flow.New("section", "research", handlers, edges,
		flow.WithRetry[buildState](flow.Retry{Attempts: 3}),
		flow.WithRetryable[buildState](ports.IsTransient),
		flow.WithCallTimeout[buildState](p.cfg.CallTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("section: build graph: %w", err)
	}
	p.graph = g
	return p, nil
}

// Build runs the full research/draft/grade/revise loop for one planned
// section. A returned draft always has a terminal status; an error
// means generation failed permanently and the caller should record the
// section as failed.
func (p *Pipeline) Build(ctx context.Context, plan report.SectionPlan, sourceText string) (report.SectionDraft, error) {
	initial := buildState{
		plan:       plan,
		sourceText: sourceText,
		draft: report.SectionDraft{
			SectionID: plan.ID,
			Headline:  plan.Heading,
			Status:    report.StatusDrafting,
		},
	}
	final, err := p.graph.Run(ctx, initial)
	if err != nil {
		return final.draft, fmt.Errorf("section %s: %w", plan.ID, err)
	}
	return final.draft, nil
}

// researchNode gathers supplementary material. Search failures degrade
// to "no supplementary sources" instead of aborting the section; only
// cancellation is propagated.
func (p *Pipeline) researchNode(ctx context.Context, s buildState) (buildState, error) {
	if p.search == nil || !s.plan.ResearchNeeded {
		return s, nil
	}

	if len(s.queries) == 0 {
		queries, err := p.generateQueries(ctx, s.plan)
		if err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			p.logger.Warn("query generation failed, using heading", "section", s.plan.ID, "error", err)
			queries = []string{s.plan.Heading}
		}
		s.queries = queries
	}

	var hits []ports.SearchHit
	for _, q := range s.queries {
		found, err := p.search.Search(ctx, q, p.cfg.MaxSearchResults)
		if err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			p.logger.Warn("search degraded", "section", s.plan.ID, "query", q, "error", err)
			continue
		}
		hits = append(hits, found...)
	}

	s.sources, s.sourceHits = formatSources(hits)
	return s, nil
}

// draftNode generates the section draft from the source document plus
// any gathered material.
func (p *Pipeline) draftNode(ctx context.Context, s buildState) (buildState, error) {
	var out sectionOutput
	prompt := ports.Prompt{
		System: writerInstructions(s.plan, s.draft),
		User:   writerContext(s.sourceText, s.sources),
	}
	if err := p.gen.GenerateJSON(ctx, prompt, &out); err != nil {
		return s, err
	}

	s.draft.Headline = firstNonEmpty(out.Headline, s.plan.Heading)
	s.draft.Content = out.Content
	s.draft.Quotes = topQuotes(out.Quotes, maxQuotes)
	s.draft.References = out.References
	return s, nil
}

// gradeNode applies the acceptance criteria and decides the next state:
// Complete on pass, NeedsRevision while budget remains, Failed with the
// last draft retained once the budget is exhausted.
func (p *Pipeline) gradeNode(ctx context.Context, s buildState) (buildState, error) {
	verdict := evaluate(s.draft, s.sourceHits > 0, p.cfg.MinContentLen)
	if verdict.pass {
		s.draft.Status = report.StatusComplete
		return s, nil
	}

	if s.draft.RevisionCount >= p.cfg.RevisionBudget {
		p.logger.Warn("revision budget exhausted", "section", s.plan.ID, "reasons", strings.Join(verdict.reasons, "; "))
		s.draft.Status = report.StatusFailed
		s.draft.Degraded = true
		return s, nil
	}

	s.draft.RevisionCount++
	s.draft.Status = report.StatusNeedsRevision

	// Follow-up queries steer the next research pass; best effort only.
	if p.search != nil && s.plan.ResearchNeeded {
		if followUp, err := p.generateFollowUp(ctx, s.plan, verdict.reasons); err == nil && len(followUp) > 0 {
			s.queries = followUp
		}
	}
	return s, nil
}

func (p *Pipeline) generateQueries(ctx context.Context, plan report.SectionPlan) ([]string, error) {
	var out queriesOutput
	prompt := ports.Prompt{
		System: fmt.Sprintf(queryWriterInstructions, p.cfg.QueriesPerSection),
		User:   fmt.Sprintf("Section heading: %s\nSection topic: %s", plan.Heading, plan.Description),
	}
	if err := p.gen.GenerateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return out.Queries, nil
}

func (p *Pipeline) generateFollowUp(ctx context.Context, plan report.SectionPlan, reasons []string) ([]string, error) {
	var out queriesOutput
	prompt := ports.Prompt{
		System: fmt.Sprintf(followUpInstructions, p.cfg.QueriesPerSection),
		User: fmt.Sprintf("Section heading: %s\nGrading feedback: %s",
			plan.Heading, strings.Join(reasons, "; ")),
	}
	if err := p.gen.GenerateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return out.Queries, nil
}

// WriteFinal drafts a non-research section in one shot, using completed
// research sections as context. No reflection loop: these sections
// summarize material that already passed grading.
func (p *Pipeline) WriteFinal(ctx context.Context, plan report.SectionPlan, sourceText, researchContext string) (report.SectionDraft, error) {
	draft := report.SectionDraft{
		SectionID: plan.ID,
		Headline:  plan.Heading,
		Status:    report.StatusDrafting,
	}

	var out sectionOutput
	prompt := ports.Prompt{
		System: finalWriterInstructions(plan),
		User:   writerContext(sourceText, researchContext),
	}
	if err := p.gen.GenerateJSON(ctx, prompt, &out); err != nil {
		return draft, fmt.Errorf("section %s: %w", plan.ID, err)
	}

	draft.Headline = firstNonEmpty(out.Headline, plan.Heading)
	draft.Content = out.Content
	draft.Quotes = topQuotes(out.Quotes, maxQuotes)
	draft.References = out.References
	draft.Status = report.StatusComplete
	return draft, nil
}

// sectionOutput is the structured shape requested from the generator.
type sectionOutput struct {
	Headline   string             `json:"headline"`
	Content    string             `json:"content"`
	Quotes     []report.Quote     `json:"quotes"`
	References []report.Reference `json:"references"`
}

type queriesOutput struct {
	Queries []string `json:"queries"`
}

// maxQuotes caps ranked quotes per section.
const maxQuotes = 3

func topQuotes(quotes []report.Quote, n int) []report.Quote {
	if len(quotes) <= n {
		return quotes
	}
	ranked := make([]report.Quote, len(quotes))
	copy(ranked, quotes)
	// insertion sort by relevance, stable for equal scores
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Relevance > ranked[j-1].Relevance; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return ranked[:n]
}

// formatSources renders search hits as prompt context, deduplicated by URL.
func formatSources(hits []ports.SearchHit) (string, int) {
	if len(hits) == 0 {
		return "", 0
	}
	seen := make(map[string]bool, len(hits))
	var b strings.Builder
	n := 0
	b.WriteString("Sources:\n\n")
	for _, h := range hits {
		if seen[h.URL] {
			continue
		}
		seen[h.URL] = true
		n++
		fmt.Fprintf(&b, "Source %s:\n===\nURL: %s\n===\n%s\n===\n", h.Title, h.URL, h.Snippet)
	}
	return b.String(), n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
