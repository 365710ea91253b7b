package report

import (
	"fmt"
	"strings"
)

// RunState is the workflow graph's working memory for one execution.
// It is exclusively owned by its run and discarded when the run ends.
// Node handlers follow a structural-merge contract: scalar fields are
// replaced, slice fields are appended to (Drafts in particular
// accumulates across the section fan-out).
type RunState struct {
	RunID string

	// Inputs. Documents holds every fetched source; for the single-URL
	// report run it has exactly one element.
	InputURL        string   // report run
	SourceURLs      []string // brief run
	Documents       []Document
	InterestWeights map[string]float64

	// Planning output.
	Queries []string
	Plans   []SectionPlan

	// Section building output.
	Drafts          []SectionDraft
	ResearchContext string // completed research sections, formatted for final-section prompts

	// Clustering output (multi-source runs).
	Clusters []ThemeCluster

	// Compilation output.
	Title       string
	Micro       string
	Digest      []string
	FinalReport *Report
	FinalBrief  *Brief
}

// Source returns the primary input document, or nil for an empty run.
func (s *RunState) Source() *Document {
	if len(s.Documents) == 0 {
		return nil
	}
	return &s.Documents[0]
}

// DraftFor returns the draft for a section ID, or nil.
func (s *RunState) DraftFor(sectionID string) *SectionDraft {
	for i := range s.Drafts {
		if s.Drafts[i].SectionID == sectionID {
			return &s.Drafts[i]
		}
	}
	return nil
}

// FormatDrafts renders completed drafts as plain-text context for
// downstream prompts.
func FormatDrafts(drafts []SectionDraft) string {
	var b strings.Builder
	for i, d := range drafts {
		fmt.Fprintf(&b, "%s\nSection %d: %s\n%s\n", strings.Repeat("=", 60), i+1, d.Headline, strings.Repeat("=", 60))
		content := d.Content
		if content == "" {
			content = "[not yet written]"
		}
		fmt.Fprintf(&b, "%s\n\n", content)
	}
	return b.String()
}
