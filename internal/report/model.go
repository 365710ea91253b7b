// Package report holds the data model for one research run: source
// documents, theme clusters, section plans and drafts, and the final
// compiled report. All values here are owned by a single run; nothing
// is shared or persisted across runs.
package report

import (
	"time"

	"github.com/google/uuid"

	"newsdesk/internal/ports"
)

// Document is a fetched source. Immutable once created.
type Document struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	RawContent string            `json:"raw_content"`
	Excerpt    string            `json:"excerpt"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// excerptLen matches the upstream convention of a 100-char teaser.
const excerptLen = 100

// NewDocument builds a Document from fetched page content.
func NewDocument(url string, page *ports.PageContent) Document {
	excerpt := page.Markdown
	if len([]rune(excerpt)) > excerptLen {
		excerpt = string([]rune(excerpt)[:excerptLen])
	}
	return Document{
		ID:         uuid.NewString(),
		URL:        url,
		Title:      page.Title,
		RawContent: page.Markdown,
		Excerpt:    excerpt,
		Metadata:   page.Metadata,
		FetchedAt:  time.Now().UTC(),
	}
}

// ThemeCluster groups documents judged topically similar. Membership is
// a partition of the run's input documents: every document lands in
// exactly one cluster.
type ThemeCluster struct {
	ID              string            `json:"id"`
	MemberIDs       []string          `json:"member_document_ids"`
	Label           string            `json:"label"`
	Categories      []string          `json:"categories"`
	ImportanceScore float64           `json:"importance_score"`
	Summary         string            `json:"summary,omitempty"`
	Content         string            `json:"content,omitempty"`
	Sources         []ports.SearchHit `json:"sources,omitempty"`
	Degraded        bool              `json:"degraded,omitempty"`
}

// SectionPlan is one planned report section. Produced once by the
// planning step, read-only afterward.
type SectionPlan struct {
	ID             string `json:"id"`
	Heading        string `json:"heading"`
	Description    string `json:"description"`
	ResearchNeeded bool   `json:"research_needed"`
	SourceCluster  string `json:"source_cluster_id,omitempty"`
}

// DraftStatus is the lifecycle state of a section draft.
type DraftStatus string

const (
	StatusDrafting      DraftStatus = "drafting"
	StatusNeedsRevision DraftStatus = "needs_revision"
	StatusComplete      DraftStatus = "complete"
	StatusFailed        DraftStatus = "failed"
)

// SectionDraft is the working output for one section. Each section
// pipeline mutates only its own draft, so sibling branches never share
// mutable state.
type SectionDraft struct {
	SectionID     string      `json:"section_id"`
	Headline      string      `json:"headline"`
	Content       string      `json:"content"`
	Quotes        []Quote     `json:"quotes"`
	References    []Reference `json:"references"`
	RevisionCount int         `json:"revision_count"`
	Status        DraftStatus `json:"status"`
	Degraded      bool        `json:"degraded,omitempty"`
}

// Quote is a notable excerpt attributed to a source.
type Quote struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Relevance float64 `json:"relevance"`
}

// Reference is a cited source.
type Reference struct {
	Title    string            `json:"title"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
