package section

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"newsdesk/internal/report"
)

// verdict is the outcome of grading a draft.
type verdict struct {
	pass    bool
	reasons []string
}

// placeholderMarkers are fragments that indicate unfinished generation.
var placeholderMarkers = []string{
	"lorem ipsum",
	"[placeholder]",
	"[insert",
	"to be written",
	"tbd",
	"todo:",
}

// evaluate applies the acceptance criteria to a draft: minimum body
// length, references present when sources were available, and no
// placeholder text.
func evaluate(d report.SectionDraft, sourcesAvailable bool, minContentLen int) verdict {
	var reasons []string

	if n := utf8.RuneCountInString(d.Content); n < minContentLen {
		reasons = append(reasons, fmt.Sprintf("content too short: %d chars, need %d", n, minContentLen))
	}
	if sourcesAvailable && len(d.References) == 0 {
		reasons = append(reasons, "sources were available but no references cited")
	}
	lower := strings.ToLower(d.Content)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			reasons = append(reasons, fmt.Sprintf("placeholder text present: %q", marker))
			break
		}
	}

	return verdict{pass: len(reasons) == 0, reasons: reasons}
}
