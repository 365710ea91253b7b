package cluster

import (
	"sort"
	"strings"

	"newsdesk/internal/report"
)

// categoryKeywords is a fixed keyword table for rule-based category
// estimation. Matching is substring-based over the lowercased title and
// excerpt of every member document.
var categoryKeywords = map[string][]string{
	"technology":    {"ai", "software", "developer", "app", "digital", "cloud", "startup"},
	"business":      {"company", "market", "investment", "strategy", "economy", "revenue"},
	"health":        {"health", "medical", "hospital", "treatment", "drug", "clinical"},
	"science":       {"research", "science", "discovery", "space", "physics", "chemistry"},
	"entertainment": {"film", "music", "celebrity", "television", "game", "streaming"},
}

// maxCategories caps the categories attributed to one cluster.
const maxCategories = 2

// estimateCategories scores each known category by keyword hits across
// the members' text and returns the top two, or "general" when nothing
// matches.
func estimateCategories(members []report.Document) []string {
	var b strings.Builder
	for _, d := range members {
		b.WriteString(strings.ToLower(d.Title))
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(d.Excerpt))
		b.WriteByte(' ')
	}
	text := b.String()

	type scored struct {
		category string
		hits     int
	}
	var results []scored
	for category, terms := range categoryKeywords {
		hits := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				hits++
			}
		}
		if hits > 0 {
			results = append(results, scored{category, hits})
		}
	}
	if len(results) == 0 {
		return []string{"general"}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].hits != results[j].hits {
			return results[i].hits > results[j].hits
		}
		return results[i].category < results[j].category
	})
	if len(results) > maxCategories {
		results = results[:maxCategories]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.category
	}
	return out
}
