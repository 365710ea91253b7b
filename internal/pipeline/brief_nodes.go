package pipeline

import (
	"context"
	"fmt"
	"strings"

	"newsdesk/internal/interest"
	"newsdesk/internal/ports"
	"newsdesk/internal/report"
	"newsdesk/pkg/flow"
)

// fetchAll pulls every source URL concurrently. Individual fetch
// failures are dropped with a warning; the run aborts only when nothing
// could be fetched.
func (r *Runner) fetchAll(ctx context.Context, st report.RunState) (report.RunState, error) {
	if r.deps.Fetcher == nil {
		return st, fmt.Errorf("no page fetcher configured")
	}
	if len(st.SourceURLs) == 0 {
		return st, fmt.Errorf("no source URLs")
	}

	results := flow.Gather(ctx, st.SourceURLs, r.cfg.Concurrency, func(ctx context.Context, url string) (report.Document, error) {
		page, err := r.deps.Fetcher.Fetch(ctx, url)
		if err != nil {
			return report.Document{}, err
		}
		return report.NewDocument(url, page), nil
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}

	for i, res := range results {
		if res.Err != nil {
			r.logger.Warn("source dropped", "url", st.SourceURLs[i], "error", res.Err)
			continue
		}
		st.Documents = append(st.Documents, res.Value)
	}
	if len(st.Documents) == 0 {
		return st, fmt.Errorf("all %d sources failed to fetch", len(st.SourceURLs))
	}
	return st, nil
}

func (r *Runner) clusterDocuments(ctx context.Context, st report.RunState) (report.RunState, error) {
	st.Clusters = append(st.Clusters, r.cluster.Cluster(st.Documents)...)
	return st, nil
}

func (r *Runner) scoreClusters(ctx context.Context, st report.RunState) (report.RunState, error) {
	st.Clusters = interest.Rank(st.Clusters, st.InterestWeights)
	return st, nil
}

const themeBriefInstructions = `You write a brief for one theme of related articles.

Produce:
- summary: 150-200 characters capturing what happened
- content: 400-600 characters of context with the key facts from the articles

Respond with JSON: {"summary": "...", "content": "..."}`

// themeBriefs generates summary and content per cluster concurrently.
// A failed generation degrades the theme to stitched excerpts rather
// than dropping it.
func (r *Runner) themeBriefs(ctx context.Context, st report.RunState) (report.RunState, error) {
	byID := make(map[string]*report.Document, len(st.Documents))
	for i := range st.Documents {
		byID[st.Documents[i].ID] = &st.Documents[i]
	}

	type briefOut struct {
		Summary string `json:"summary"`
		Content string `json:"content"`
	}

	results := flow.Gather(ctx, st.Clusters, r.cfg.Concurrency, func(ctx context.Context, c report.ThemeCluster) (briefOut, error) {
		var b strings.Builder
		for _, id := range c.MemberIDs {
			if doc := byID[id]; doc != nil {
				fmt.Fprintf(&b, "Title: %s\n%s\n\n", doc.Title, capText(doc.RawContent, maxPromptChars/len(c.MemberIDs)))
			}
		}
		var out briefOut
		err := r.deps.Generator.GenerateJSON(ctx, ports.Prompt{System: themeBriefInstructions, User: b.String()}, &out)
		return out, err
	})
	if err := ctx.Err(); err != nil {
		return st, err
	}

	for i, res := range results {
		c := &st.Clusters[i]
		if res.Err != nil {
			r.logger.Warn("theme brief degraded", "cluster", c.ID, "error", res.Err)
			c.Summary, c.Content = excerptFallback(c, byID)
			c.Degraded = true
			continue
		}
		c.Summary = res.Value.Summary
		c.Content = res.Value.Content
	}
	return st, nil
}

// excerptFallback stitches member excerpts when generation fails.
func excerptFallback(c *report.ThemeCluster, byID map[string]*report.Document) (summary, content string) {
	var parts []string
	for _, id := range c.MemberIDs {
		if doc := byID[id]; doc != nil && doc.Excerpt != "" {
			parts = append(parts, doc.Excerpt)
		}
	}
	if len(parts) == 0 {
		return c.Label, c.Label
	}
	return parts[0], strings.Join(parts, " ")
}

// relatedInfo attaches a few search hits per theme, deduplicated by URL
// across the whole brief and against the member documents themselves.
func (r *Runner) relatedInfo(ctx context.Context, st report.RunState) (report.RunState, error) {
	if r.deps.Searcher == nil {
		return st, nil
	}

	seen := make(map[string]bool)
	for _, d := range st.Documents {
		seen[d.URL] = true
	}

	for i := range st.Clusters {
		c := &st.Clusters[i]
		hits, err := r.deps.Searcher.Search(ctx, c.Label, r.cfg.RelatedHits)
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			r.logger.Warn("related info skipped", "cluster", c.ID, "error", err)
			continue
		}
		for _, h := range hits {
			if seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			c.Sources = append(c.Sources, h)
		}
	}
	return st, nil
}

// assembleBrief folds the scored clusters into the final artifact. The
// clusters arrive already sorted by descending importance.
func (r *Runner) assembleBrief(ctx context.Context, st report.RunState) (report.RunState, error) {
	brief := &report.Brief{CreatedAt: r.now().UTC()}
	for _, c := range st.Clusters {
		brief.Themes = append(brief.Themes, report.ThemeBrief{
			Label:        c.Label,
			Categories:   c.Categories,
			Importance:   c.ImportanceScore,
			ArticleCount: len(c.MemberIDs),
			Summary:      c.Summary,
			Content:      c.Content,
			Sources:      c.Sources,
			Degraded:     c.Degraded,
		})
	}
	st.FinalBrief = brief
	return st, nil
}
