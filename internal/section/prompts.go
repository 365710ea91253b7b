package section

import (
	"fmt"
	"strings"

	"newsdesk/internal/report"
)

const queryWriterInstructions = `You generate targeted web search queries for researching one section of a report.

Generate exactly %d queries. Each query should cover a distinct aspect of the section topic and be specific enough to return technical, citable sources.

Respond with JSON: {"queries": ["...", "..."]}`

const followUpInstructions = `A draft report section failed review. Generate up to %d follow-up web search queries that would find the material needed to fix the listed problems.

Respond with JSON: {"queries": ["...", "..."]}`

func writerInstructions(plan report.SectionPlan, draft report.SectionDraft) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You write one section of a research report.

Section heading: %s
Section topic: %s

Requirements:
- 300-600 characters of body content, no preamble
- cite sources from the provided material as references
- include up to 3 supporting quotes ranked by relevance (0.0-1.0)

Respond with JSON: {"headline": "...", "content": "...", "quotes": [{"text": "...", "source": "...", "relevance": 0.9}], "references": [{"title": "...", "url": "..."}]}`,
		plan.Heading, plan.Description)

	if draft.RevisionCount > 0 && draft.Content != "" {
		fmt.Fprintf(&b, "\n\nThis is revision %d. Improve on the previous draft:\n%s", draft.RevisionCount, draft.Content)
	}
	return b.String()
}

func finalWriterInstructions(plan report.SectionPlan) string {
	return fmt.Sprintf(`You write a synthesis section of a research report using the completed research sections as context.

Section heading: %s
Section topic: %s

Requirements:
- 300-600 characters, no new claims beyond the provided material
- no preamble

Respond with JSON: {"headline": "...", "content": "...", "quotes": [], "references": []}`,
		plan.Heading, plan.Description)
}

func writerContext(sourceText, sources string) string {
	var b strings.Builder
	b.WriteString("Source document:\n")
	b.WriteString(sourceText)
	if sources != "" {
		b.WriteString("\n\n")
		b.WriteString(sources)
	}
	return b.String()
}
