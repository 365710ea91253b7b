// Package store persists finished runs so reports and briefs survive
// the process. The CLI and serve surfaces use only the Store interface;
// the implementation is SQLite or in-memory.
package store

import "newsdesk/internal/report"

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent dir (e.g. .newsdesk).
const DefaultDBPath = ".newsdesk/newsdesk.db"

// RunKind distinguishes stored artifacts.
type RunKind string

const (
	KindReport RunKind = "report"
	KindBrief  RunKind = "brief"
)

// RunRecord is one persisted run, newest first in listings.
type RunRecord struct {
	RunID     string
	Kind      RunKind
	Input     string // source URL for reports, joined URLs for briefs
	CreatedAt string // RFC3339
}

// Store is the persistence facade for finished runs.
type Store interface {
	SaveReport(runID, input string, rep *report.Report) error
	GetReport(runID string) (*report.Report, error)
	SaveBrief(runID, input string, br *report.Brief) error
	GetBrief(runID string) (*report.Brief, error)
	ListRuns() ([]RunRecord, error)
	Close() error
}
