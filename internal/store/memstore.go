package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"newsdesk/internal/report"
)

// MemStore implements Store in memory, for tests and ephemeral serve
// sessions.
type MemStore struct {
	mu      sync.Mutex
	reports map[string]*report.Report
	briefs  map[string]*report.Brief
	records map[string]RunRecord
}

func NewMemStore() *MemStore {
	return &MemStore{
		reports: make(map[string]*report.Report),
		briefs:  make(map[string]*report.Brief),
		records: make(map[string]RunRecord),
	}
}

func (m *MemStore) SaveReport(runID, input string, rep *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[runID] = rep
	m.records[runID] = RunRecord{RunID: runID, Kind: KindReport, Input: input, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	return nil
}

func (m *MemStore) SaveBrief(runID, input string, br *report.Brief) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.briefs[runID] = br
	m.records[runID] = RunRecord{RunID: runID, Kind: KindBrief, Input: input, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	return nil
}

func (m *MemStore) GetReport(runID string) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reports[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, runID, KindReport)
	}
	return rep, nil
}

func (m *MemStore) GetBrief(runID string) (*report.Brief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	br, ok := m.briefs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, runID, KindBrief)
	}
	return br, nil
}

func (m *MemStore) ListRuns() ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]RunRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt > records[j].CreatedAt })
	return records, nil
}

func (m *MemStore) Close() error { return nil }
