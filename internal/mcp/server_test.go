package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"newsdesk/internal/report"
	"newsdesk/internal/store"
)

// fakeRunner completes instantly with canned results.
type fakeRunner struct {
	report *report.Report
	brief  *report.Brief
	err    error
	block  chan struct{} // when set, runs wait here before finishing
}

func (f *fakeRunner) Report(ctx context.Context, url string) (*report.Report, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.report, f.err
}

func (f *fakeRunner) Brief(ctx context.Context, urls []string, weights map[string]float64) (*report.Brief, error) {
	return f.brief, f.err
}

func TestResearchURL_ThenGetReport(t *testing.T) {
	runner := &fakeRunner{report: &report.Report{Title: "Findings", Sections: []report.Section{{Headline: "A"}}}}
	s := NewServer(runner)
	defer s.Shutdown()

	_, started, err := s.handleResearchURL(context.Background(), nil, researchURLInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("research_url: %v", err)
	}
	if started.RunID == "" || started.Status != string(StateRunning) {
		t.Fatalf("start output = %+v", started)
	}

	_, got, err := s.handleGetReport(context.Background(), nil, getReportInput{RunID: started.RunID, TimeoutMS: 5000})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}
	if got.Status != string(StateDone) {
		t.Fatalf("status = %q, want done", got.Status)
	}
	if got.Report == nil || got.Report.Title != "Findings" {
		t.Errorf("report = %+v", got.Report)
	}
	if !strings.Contains(got.Markdown, "# Findings") {
		t.Errorf("markdown not rendered: %q", got.Markdown)
	}
}

func TestGetReport_RunningOnTimeout(t *testing.T) {
	runner := &fakeRunner{report: &report.Report{}, block: make(chan struct{})}
	s := NewServer(runner)
	defer s.Shutdown()
	defer close(runner.block)

	_, started, err := s.handleResearchURL(context.Background(), nil, researchURLInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("research_url: %v", err)
	}

	_, got, err := s.handleGetReport(context.Background(), nil, getReportInput{RunID: started.RunID, TimeoutMS: 50})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}
	if got.Status != string(StateRunning) {
		t.Errorf("status = %q, want running", got.Status)
	}
}

func TestGetReport_RunError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("planner returned no sections")}
	s := NewServer(runner)
	defer s.Shutdown()

	_, started, err := s.handleResearchURL(context.Background(), nil, researchURLInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("research_url: %v", err)
	}

	_, got, err := s.handleGetReport(context.Background(), nil, getReportInput{RunID: started.RunID, TimeoutMS: 5000})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}
	if got.Status != string(StateError) || got.Error == "" {
		t.Errorf("output = %+v, want error status with message", got)
	}
}

func TestSmartBrief(t *testing.T) {
	runner := &fakeRunner{brief: &report.Brief{
		CreatedAt: time.Now(),
		Themes:    []report.ThemeBrief{{Label: "chips", Summary: "s"}},
	}}
	s := NewServer(runner)
	defer s.Shutdown()

	_, started, err := s.handleSmartBrief(context.Background(), nil, smartBriefInput{URLs: []string{"https://a", "https://b"}})
	if err != nil {
		t.Fatalf("smart_brief: %v", err)
	}

	_, got, err := s.handleGetReport(context.Background(), nil, getReportInput{RunID: started.RunID, TimeoutMS: 5000})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}
	if got.Brief == nil || len(got.Brief.Themes) != 1 {
		t.Fatalf("brief = %+v", got.Brief)
	}
	if !strings.Contains(got.Markdown, "chips") {
		t.Errorf("brief markdown missing theme: %q", got.Markdown)
	}
}

func TestGetReport_UnknownRun(t *testing.T) {
	s := NewServer(&fakeRunner{})
	defer s.Shutdown()
	if _, _, err := s.handleGetReport(context.Background(), nil, getReportInput{RunID: "nope"}); err == nil {
		t.Fatal("get_report accepted unknown run id")
	}
}

func TestFinishedRunIsPersisted(t *testing.T) {
	runner := &fakeRunner{report: &report.Report{Title: "Findings"}}
	s := NewServer(runner)
	s.Store = store.NewMemStore()
	defer s.Shutdown()

	_, started, err := s.handleResearchURL(context.Background(), nil, researchURLInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("research_url: %v", err)
	}
	_, got, err := s.handleGetReport(context.Background(), nil, getReportInput{RunID: started.RunID, TimeoutMS: 5000})
	if err != nil || got.Status != string(StateDone) {
		t.Fatalf("get_report: %v %+v", err, got)
	}

	// a fresh server with the same store still serves the run
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := s.Store.GetReport(started.RunID); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
	s2 := NewServer(runner)
	s2.Store = s.Store
	_, got2, err := s2.handleGetReport(context.Background(), nil, getReportInput{RunID: started.RunID})
	if err != nil {
		t.Fatalf("get_report after restart: %v", err)
	}
	if got2.Status != string(StateDone) || got2.Report == nil || got2.Report.Title != "Findings" {
		t.Errorf("restarted output = %+v", got2)
	}
}

func TestValidation(t *testing.T) {
	s := NewServer(&fakeRunner{})
	defer s.Shutdown()
	if _, _, err := s.handleResearchURL(context.Background(), nil, researchURLInput{}); err == nil {
		t.Error("research_url accepted empty url")
	}
	if _, _, err := s.handleSmartBrief(context.Background(), nil, smartBriefInput{}); err == nil {
		t.Error("smart_brief accepted empty urls")
	}
}
