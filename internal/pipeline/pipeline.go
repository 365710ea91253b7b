// Package pipeline wires the workflow graphs for the two run kinds:
// the single-URL research report and the multi-source smart brief. The
// graph shapes live in embedded YAML definitions; this package supplies
// the node handlers and the ports they call.
package pipeline

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsdesk/internal/cluster"
	"newsdesk/internal/compile"
	"newsdesk/internal/logging"
	"newsdesk/internal/ports"
	"newsdesk/internal/report"
	"newsdesk/internal/section"
	"newsdesk/pkg/flow"
)

//go:embed defs/report.yaml
var reportDef []byte

//go:embed defs/brief.yaml
var briefDef []byte

// Deps are the capability ports a Runner drives. Generator is required;
// Searcher and Fetcher may be nil, disabling web research and URL
// ingestion respectively.
type Deps struct {
	Generator ports.Generator
	Searcher  ports.Searcher
	Fetcher   ports.PageFetcher
}

// Config tunes a Runner.
type Config struct {
	Section          section.Config
	Compile          compile.Config
	ClusterThreshold float64
	Concurrency      int // max parallel section builds / fetches (default 4)
	RelatedHits      int // related-info results per theme (default 2)

	// StageTimeout bounds one node invocation of the outer graphs. A
	// node here is a whole stage (the research fan-out runs every
	// section pipeline), so the default is generous; individual
	// capability calls are bounded by Section.CallTimeout.
	StageTimeout time.Duration // default 10m
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.RelatedHits <= 0 {
		c.RelatedHits = 2
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = 10 * time.Minute
	}
	return c
}

// Runner executes report and brief runs. Safe for concurrent use.
type Runner struct {
	deps     Deps
	cfg      Config
	sections *section.Pipeline
	compiler *compile.Compiler
	cluster  *cluster.Engine
	reports  *flow.Graph[report.RunState]
	briefs   *flow.Graph[report.RunState]
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Runner from ports and configuration. The embedded graph
// definitions are validated and bound here, so a malformed topology
// fails at startup rather than mid-run.
func New(deps Deps, cfg Config) (*Runner, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("pipeline: generator port is required")
	}
	cfg = cfg.withDefaults()

	sections, err := section.New(deps.Generator, deps.Searcher, cfg.Section)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	r := &Runner{
		deps:     deps,
		cfg:      cfg,
		sections: sections,
		compiler: compile.New(deps.Generator, cfg.Compile),
		cluster:  cluster.New(cfg.ClusterThreshold),
		logger:   logging.New("pipeline"),
		now:      time.Now,
	}

	opts := []flow.Option[report.RunState]{
		flow.WithRetry[report.RunState](flow.Retry{Attempts: 3, Backoff: time.Second}),
		flow.WithRetryable[report.RunState](ports.IsTransient),
		flow.WithCallTimeout[report.RunState](cfg.StageTimeout),
		flow.WithObserver[report.RunState](&flow.LogObserver{Logger: r.logger}),
	}

	r.reports, err = bindDef(reportDef, flow.Registry[report.RunState]{
		Nodes: map[string]flow.Handler[report.RunState]{
			"fetch_source":         r.fetchSource,
			"plan_queries":         r.planQueries,
			"plan_sections":        r.planSections,
			"research_sections":    r.researchSections,
			"write_final_sections": r.writeFinalSections,
			"compile_report":       r.compileReport,
		},
	}, opts)
	if err != nil {
		return nil, err
	}

	r.briefs, err = bindDef(briefDef, flow.Registry[report.RunState]{
		Nodes: map[string]flow.Handler[report.RunState]{
			"fetch_all":         r.fetchAll,
			"cluster_documents": r.clusterDocuments,
			"score_clusters":    r.scoreClusters,
			"theme_briefs":      r.themeBriefs,
			"related_info":      r.relatedInfo,
			"assemble":          r.assembleBrief,
		},
	}, opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func bindDef(data []byte, reg flow.Registry[report.RunState], opts []flow.Option[report.RunState]) (*flow.Graph[report.RunState], error) {
	def, err := flow.LoadDef(data)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	g, err := flow.Bind(def, reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return g, nil
}

// Report runs the single-URL research pipeline and returns the compiled
// report.
func (r *Runner) Report(ctx context.Context, url string) (*report.Report, error) {
	st := report.RunState{
		RunID:    uuid.NewString(),
		InputURL: url,
	}
	logger := logging.ForRun("pipeline", st.RunID)
	logger.Info("report run starting", "url", url)

	final, err := r.reports.Run(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("report run %s: %w", st.RunID, err)
	}
	logger.Info("report run complete", "sections", len(final.FinalReport.Sections))
	return final.FinalReport, nil
}

// Brief runs the multi-source pipeline: fetch, cluster, score, and
// brief each theme. weights maps category names to interest multipliers
// and may be nil.
func (r *Runner) Brief(ctx context.Context, urls []string, weights map[string]float64) (*report.Brief, error) {
	st := report.RunState{
		RunID:           uuid.NewString(),
		SourceURLs:      urls,
		InterestWeights: weights,
	}
	logger := logging.ForRun("pipeline", st.RunID)
	logger.Info("brief run starting", "sources", len(urls))

	final, err := r.briefs.Run(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("brief run %s: %w", st.RunID, err)
	}
	logger.Info("brief run complete", "themes", len(final.FinalBrief.Themes))
	return final.FinalBrief, nil
}
