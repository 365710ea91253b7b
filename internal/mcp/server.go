// Package mcp exposes the research pipelines as MCP tools over stdio.
// This is plumbing only: tools call the same Runner entry points as the
// CLI and hand results back as JSON plus rendered markdown.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"newsdesk/internal/logging"
	"newsdesk/internal/render"
	"newsdesk/internal/report"
	"newsdesk/internal/store"
)

// DefaultGetReportTimeout bounds how long get_report blocks waiting for
// a run to finish before reporting it as still running.
var DefaultGetReportTimeout = 10 * time.Second

// PipelineRunner is the slice of the pipeline Runner the server needs.
type PipelineRunner interface {
	Report(ctx context.Context, url string) (*report.Report, error)
	Brief(ctx context.Context, urls []string, weights map[string]float64) (*report.Brief, error)
}

// Server wraps the MCP SDK server and tracks pipeline runs.
type Server struct {
	MCPServer *sdkmcp.Server

	// Store, when set before serving, persists finished runs.
	Store store.Store

	runner PipelineRunner

	mu   sync.Mutex
	runs map[string]*Run
}

// NewServer creates an MCP server exposing the research tools.
func NewServer(runner PipelineRunner) *Server {
	s := &Server{
		runner: runner,
		runs:   make(map[string]*Run),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "newsdesk", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "research_url",
		Description: "Start a research report run for one URL. Returns a run ID immediately; poll get_report for the result.",
	}, s.handleResearchURL)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "smart_brief",
		Description: "Start a smart brief run over several source URLs, clustered into themes and ranked by interest. Returns a run ID.",
	}, s.handleSmartBrief)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Get the result of a run. Blocks briefly while the run is still executing; returns status running on timeout.",
	}, s.handleGetReport)
}

type researchURLInput struct {
	URL string `json:"url" jsonschema:"the page to research and report on"`
}

type smartBriefInput struct {
	URLs            []string           `json:"urls" jsonschema:"source article URLs to cluster and brief"`
	InterestWeights map[string]float64 `json:"interest_weights,omitempty" jsonschema:"category name to importance multiplier"`
}

type startRunOutput struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type getReportInput struct {
	RunID     string `json:"run_id" jsonschema:"run ID from research_url or smart_brief"`
	TimeoutMS int    `json:"timeout_ms,omitempty" jsonschema:"max wait in milliseconds (default 10000)"`
}

type getReportOutput struct {
	Status   string         `json:"status"` // running, done, error
	Report   *report.Report `json:"report,omitempty"`
	Brief    *report.Brief  `json:"brief,omitempty"`
	Markdown string         `json:"markdown,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) handleResearchURL(ctx context.Context, _ *sdkmcp.CallToolRequest, input researchURLInput) (*sdkmcp.CallToolResult, startRunOutput, error) {
	if input.URL == "" {
		return nil, startRunOutput{}, fmt.Errorf("url is required")
	}
	run := s.startRun(KindReport, input.URL, func(ctx context.Context, r *Run) error {
		rep, err := s.runner.Report(ctx, input.URL)
		if err != nil {
			return err
		}
		r.setReport(rep)
		return nil
	})
	return nil, startRunOutput{RunID: run.ID, Status: string(StateRunning)}, nil
}

func (s *Server) handleSmartBrief(ctx context.Context, _ *sdkmcp.CallToolRequest, input smartBriefInput) (*sdkmcp.CallToolResult, startRunOutput, error) {
	if len(input.URLs) == 0 {
		return nil, startRunOutput{}, fmt.Errorf("urls is required")
	}
	run := s.startRun(KindBrief, strings.Join(input.URLs, " "), func(ctx context.Context, r *Run) error {
		br, err := s.runner.Brief(ctx, input.URLs, input.InterestWeights)
		if err != nil {
			return err
		}
		r.setBrief(br)
		return nil
	})
	return nil, startRunOutput{RunID: run.ID, Status: string(StateRunning)}, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	run, err := s.getRun(input.RunID)
	if err != nil {
		// Unknown in this process; a previous server may have stored it.
		if out, ok := s.fromStore(input.RunID); ok {
			return nil, out, nil
		}
		return nil, getReportOutput{}, err
	}

	timeout := DefaultGetReportTimeout
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-run.Done():
	case <-timer.C:
		return nil, getReportOutput{Status: string(StateRunning)}, nil
	case <-ctx.Done():
		return nil, getReportOutput{}, ctx.Err()
	}

	rep, br, runErr := run.Result()
	if runErr != nil {
		return nil, getReportOutput{Status: string(StateError), Error: runErr.Error()}, nil
	}

	out := getReportOutput{Status: string(StateDone), Report: rep, Brief: br}
	switch {
	case rep != nil:
		out.Markdown = render.Markdown(rep)
	case br != nil:
		out.Markdown = render.BriefMarkdown(br)
	}
	return nil, out, nil
}

// startRun launches fn in a goroutine tied to the server's lifetime,
// not the tool call's, so the run survives the response.
func (s *Server) startRun(kind RunKind, input string, fn func(context.Context, *Run) error) *Run {
	run := newRun(kind)

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	logger := logging.ForRun("mcp", run.ID)
	logger.Info("run started", "kind", kind)
	go func() {
		err := fn(run.ctx, run)
		run.finish(err)
		if err != nil {
			logger.Warn("run failed", "error", err)
			return
		}
		logger.Info("run finished")
		s.persist(run, input, logger)
	}()
	return run
}

func (s *Server) persist(run *Run, input string, logger *slog.Logger) {
	if s.Store == nil {
		return
	}
	rep, br, _ := run.Result()
	var err error
	switch {
	case rep != nil:
		err = s.Store.SaveReport(run.ID, input, rep)
	case br != nil:
		err = s.Store.SaveBrief(run.ID, input, br)
	}
	if err != nil {
		logger.Warn("persist failed", "error", err)
	}
}

func (s *Server) fromStore(runID string) (getReportOutput, bool) {
	if s.Store == nil {
		return getReportOutput{}, false
	}
	if rep, err := s.Store.GetReport(runID); err == nil {
		return getReportOutput{Status: string(StateDone), Report: rep, Markdown: render.Markdown(rep)}, true
	}
	if br, err := s.Store.GetBrief(runID); err == nil {
		return getReportOutput{Status: string(StateDone), Brief: br, Markdown: render.BriefMarkdown(br)}, true
	}
	return getReportOutput{}, false
}

func (s *Server) getRun(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("unknown run_id %q", id)
	}
	return run, nil
}

// Shutdown cancels all in-flight runs.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		run.Cancel()
	}
}
