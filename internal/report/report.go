package report

import (
	"encoding/json"
	"time"
)

// Limits on compiled summary fields.
const (
	MaxTitleLen      = 40
	MaxMicroLen      = 100
	MaxDigestLen     = 140 // single-line digest mode
	MaxDigestLineLen = 50  // each line in three-line mode
	DigestLineCount  = 3
)

// Digest is the report's short summary: either one line (single mode)
// or exactly three lines. It marshals as a bare string in single mode
// and as an array otherwise.
type Digest []string

func (d Digest) MarshalJSON() ([]byte, error) {
	if len(d) == 1 {
		return json.Marshal(d[0])
	}
	return json.Marshal([]string(d))
}

func (d *Digest) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = Digest{single}
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*d = Digest(lines)
	return nil
}

// SourceRef echoes the run's input in the final artifact, without the
// raw page body.
type SourceRef struct {
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Section is one compiled report section. Failed drafts are carried
// through with Degraded set rather than dropped.
type Section struct {
	Headline   string      `json:"headline"`
	Content    string      `json:"content"`
	Quotes     []Quote     `json:"quotes"`
	References []Reference `json:"references"`
	Degraded   bool        `json:"degraded,omitempty"`
}

// Report is the final structured artifact of a run.
type Report struct {
	Input            *SourceRef `json:"input,omitempty"`
	Title            string     `json:"title"`
	Micro            string     `json:"micro"`
	Digest           Digest     `json:"digest"`
	Tags             []string   `json:"tags,omitempty"`
	Sections         []Section  `json:"sections"`
	ImportanceScore  *float64   `json:"importanceScore,omitempty"`
	EstimatedMinutes int        `json:"estimatedMinutes"`
	CreatedAt        time.Time  `json:"createdAt"`
}
