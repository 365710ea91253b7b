package report

import (
	"time"

	"newsdesk/internal/ports"
)

// ThemeBrief is one themed entry on the compiled brief, ordered by
// importance.
type ThemeBrief struct {
	Label        string            `json:"label"`
	Categories   []string          `json:"categories"`
	Importance   float64           `json:"importance"`
	ArticleCount int               `json:"articleCount"`
	Summary      string            `json:"summary"`
	Content      string            `json:"content"`
	Sources      []ports.SearchHit `json:"sources,omitempty"`
	Degraded     bool              `json:"degraded,omitempty"`
}

// Brief is the final artifact of a multi-source run: clustered themes
// with generated briefs, most important first.
type Brief struct {
	Themes    []ThemeBrief `json:"themes"`
	CreatedAt time.Time    `json:"createdAt"`
}
