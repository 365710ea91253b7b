package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"newsdesk/internal/ports"
	"newsdesk/internal/report"
	"newsdesk/pkg/flow"
)

// maxPromptChars bounds how much raw source text is handed to the
// generator in planning prompts.
const maxPromptChars = 12000

func (r *Runner) fetchSource(ctx context.Context, st report.RunState) (report.RunState, error) {
	if r.deps.Fetcher == nil {
		return st, fmt.Errorf("no page fetcher configured")
	}
	page, err := r.deps.Fetcher.Fetch(ctx, st.InputURL)
	if err != nil {
		return st, err
	}
	st.Documents = append(st.Documents, report.NewDocument(st.InputURL, page))
	return st, nil
}

const queryPlanInstructions = `You plan research for a report about a source document.

Generate 3 web search queries that together cover the document's main claims and context.

Respond with JSON: {"queries": ["...", "..."]}`

func (r *Runner) planQueries(ctx context.Context, st report.RunState) (report.RunState, error) {
	src := st.Source()
	var out struct {
		Queries []string `json:"queries"`
	}
	prompt := promptFor(queryPlanInstructions, src)
	if err := r.deps.Generator.GenerateJSON(ctx, prompt, &out); err != nil {
		return st, err
	}
	st.Queries = append(st.Queries, out.Queries...)
	return st, nil
}

const sectionPlanInstructions = `You plan the sections of a research report about a source document.

Produce 3-6 sections. Mark research=true for sections that need supporting web research; introduction and conclusion style sections should have research=false.

Respond with JSON: {"sections": [{"heading": "...", "description": "...", "research": true}]}`

// planSections is the structural commitment of the run; a failure here
// aborts, there is nothing to degrade to.
func (r *Runner) planSections(ctx context.Context, st report.RunState) (report.RunState, error) {
	var out struct {
		Sections []struct {
			Heading     string `json:"heading"`
			Description string `json:"description"`
			Research    bool   `json:"research"`
		} `json:"sections"`
	}
	prompt := promptFor(sectionPlanInstructions, st.Source())
	if len(st.Queries) > 0 {
		prompt.User += "\n\nPlanned research queries:\n" + strings.Join(st.Queries, "\n")
	}
	if err := r.deps.Generator.GenerateJSON(ctx, prompt, &out); err != nil {
		return st, err
	}
	if len(out.Sections) == 0 {
		return st, fmt.Errorf("planner returned no sections")
	}
	for _, s := range out.Sections {
		st.Plans = append(st.Plans, report.SectionPlan{
			ID:             uuid.NewString(),
			Heading:        s.Heading,
			Description:    s.Description,
			ResearchNeeded: s.Research,
		})
	}
	return st, nil
}

// researchSections fans out one section pipeline per research section.
// A branch failing permanently yields a failed draft; only all branches
// failing aborts the run.
func (r *Runner) researchSections(ctx context.Context, st report.RunState) (report.RunState, error) {
	var plans []report.SectionPlan
	for _, p := range st.Plans {
		if p.ResearchNeeded {
			plans = append(plans, p)
		}
	}
	if len(plans) == 0 {
		return st, nil
	}

	source := capText(st.Source().RawContent, maxPromptChars)
	results := flow.Gather(ctx, plans, r.cfg.Concurrency, func(ctx context.Context, plan report.SectionPlan) (report.SectionDraft, error) {
		return r.sections.Build(ctx, plan, source)
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}

	completed := 0
	var done []report.SectionDraft
	for i, res := range results {
		draft := res.Value
		if res.Err != nil {
			r.logger.Warn("section build failed", "section", plans[i].ID, "error", res.Err)
			draft.SectionID = plans[i].ID
			draft.Headline = plans[i].Heading
			draft.Status = report.StatusFailed
			draft.Degraded = true
		}
		if draft.Status == report.StatusComplete {
			completed++
			done = append(done, draft)
		}
		st.Drafts = append(st.Drafts, draft)
	}
	if completed == 0 {
		return st, fmt.Errorf("all %d research sections failed", len(plans))
	}

	st.ResearchContext = report.FormatDrafts(done)
	return st, nil
}

// writeFinalSections drafts non-research sections with the completed
// research as context. Failures degrade per section.
func (r *Runner) writeFinalSections(ctx context.Context, st report.RunState) (report.RunState, error) {
	var plans []report.SectionPlan
	for _, p := range st.Plans {
		if !p.ResearchNeeded {
			plans = append(plans, p)
		}
	}
	if len(plans) == 0 {
		return st, nil
	}

	source := capText(st.Source().RawContent, maxPromptChars)
	results := flow.Gather(ctx, plans, r.cfg.Concurrency, func(ctx context.Context, plan report.SectionPlan) (report.SectionDraft, error) {
		return r.sections.WriteFinal(ctx, plan, source, st.ResearchContext)
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}

	for i, res := range results {
		draft := res.Value
		if res.Err != nil {
			r.logger.Warn("final section failed", "section", plans[i].ID, "error", res.Err)
			draft.SectionID = plans[i].ID
			draft.Headline = plans[i].Heading
			draft.Status = report.StatusFailed
			draft.Degraded = true
		}
		st.Drafts = append(st.Drafts, draft)
	}
	return st, nil
}

func (r *Runner) compileReport(ctx context.Context, st report.RunState) (report.RunState, error) {
	compiled, err := r.compiler.Compile(ctx, &st)
	if err != nil {
		return st, err
	}
	st.FinalReport = compiled
	st.Title = compiled.Title
	st.Micro = compiled.Micro
	st.Digest = compiled.Digest
	return st, nil
}

func promptFor(instructions string, src *report.Document) ports.Prompt {
	return ports.Prompt{
		System: instructions,
		User:   fmt.Sprintf("Document title: %s\nURL: %s\n\n%s", src.Title, src.URL, capText(src.RawContent, maxPromptChars)),
	}
}

func capText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
