package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"newsdesk/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	input      TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// SqlStore implements Store with SQLite. Artifacts are stored as JSON
// payloads; queries only ever need the run metadata columns.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path. Creates the parent
// directory (e.g. .newsdesk) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SqlStore{db: db}, nil
}

func (s *SqlStore) Close() error {
	return s.db.Close()
}

func (s *SqlStore) SaveReport(runID, input string, rep *report.Report) error {
	return s.save(runID, KindReport, input, rep)
}

func (s *SqlStore) SaveBrief(runID, input string, br *report.Brief) error {
	return s.save(runID, KindBrief, input, br)
}

func (s *SqlStore) save(runID string, kind RunKind, input string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO runs(run_id, kind, input, payload, created_at) VALUES(?, ?, ?, ?, ?)",
		runID, string(kind), input, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	return nil
}

// ErrNotFound reports a missing or wrongly-typed run.
var ErrNotFound = errors.New("store: run not found")

func (s *SqlStore) GetReport(runID string) (*report.Report, error) {
	var rep report.Report
	if err := s.load(runID, KindReport, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (s *SqlStore) GetBrief(runID string) (*report.Brief, error) {
	var br report.Brief
	if err := s.load(runID, KindBrief, &br); err != nil {
		return nil, err
	}
	return &br, nil
}

func (s *SqlStore) load(runID string, kind RunKind, v any) error {
	var payload string
	err := s.db.QueryRow(
		"SELECT payload FROM runs WHERE run_id = ? AND kind = ?", runID, string(kind),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s (%s)", ErrNotFound, runID, kind)
	}
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("decode run %s: %w", runID, err)
	}
	return nil
}

func (s *SqlStore) ListRuns() ([]RunRecord, error) {
	rows, err := s.db.Query("SELECT run_id, kind, input, created_at FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var kind string
		if err := rows.Scan(&rec.RunID, &kind, &rec.Input, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Kind = RunKind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}
