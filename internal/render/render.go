// Package render turns compiled artifacts into markdown and HTML for
// delivery surfaces.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"newsdesk/internal/report"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders a report as a markdown document.
func Markdown(r *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	if r.Micro != "" {
		fmt.Fprintf(&b, "*%s*\n\n", r.Micro)
	}
	for _, line := range r.Digest {
		fmt.Fprintf(&b, "> %s\n", line)
	}
	if len(r.Digest) > 0 {
		b.WriteString("\n")
	}

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Headline)
		if s.Degraded {
			b.WriteString("*(incomplete)*\n\n")
		}
		if s.Content != "" {
			fmt.Fprintf(&b, "%s\n\n", s.Content)
		}
		for _, q := range s.Quotes {
			fmt.Fprintf(&b, "> %s\n>\n> (%s)\n\n", q.Text, q.Source)
		}
		if len(s.References) > 0 {
			b.WriteString("References:\n\n")
			for _, ref := range s.References {
				title := ref.Title
				if title == "" {
					title = ref.URL
				}
				fmt.Fprintf(&b, "- [%s](%s)\n", title, ref.URL)
			}
			b.WriteString("\n")
		}
	}

	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(r.Tags, ", "))
	}
	fmt.Fprintf(&b, "---\n%d min read", r.EstimatedMinutes)
	if r.Input != nil {
		fmt.Fprintf(&b, " · source: %s", r.Input.URL)
	}
	fmt.Fprintf(&b, " · %s\n", r.CreatedAt.Format("2006-01-02"))
	return b.String()
}

// BriefMarkdown renders a brief as a markdown front page, themes in the
// order they arrive (most important first).
func BriefMarkdown(br *report.Brief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Brief for %s\n\n", br.CreatedAt.Format("2006-01-02"))
	for i, th := range br.Themes {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, th.Label)
		if len(th.Categories) > 0 {
			fmt.Fprintf(&b, "*%s* · %d article(s)\n\n", strings.Join(th.Categories, ", "), th.ArticleCount)
		}
		if th.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", th.Summary)
		}
		if th.Content != "" {
			fmt.Fprintf(&b, "%s\n\n", th.Content)
		}
		if len(th.Sources) > 0 {
			b.WriteString("Related:\n\n")
			for _, src := range th.Sources {
				title := src.Title
				if title == "" {
					title = src.URL
				}
				fmt.Fprintf(&b, "- [%s](%s)\n", title, src.URL)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// HTML converts rendered markdown to HTML.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return buf.String(), nil
}
