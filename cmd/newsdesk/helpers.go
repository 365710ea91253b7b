package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"newsdesk/adapters/browser"
	"newsdesk/adapters/firecrawl"
	"newsdesk/adapters/openaigen"
	"newsdesk/adapters/tavily"
	"newsdesk/internal/cluster"
	"newsdesk/internal/compile"
	"newsdesk/internal/config"
	"newsdesk/internal/logging"
	"newsdesk/internal/pipeline"
	"newsdesk/internal/render"
	"newsdesk/internal/report"
	"newsdesk/internal/section"
	"newsdesk/internal/store"
)

// loadConfig reads the config file (or defaults), fills credentials
// from the environment, and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.Getenv)
	logging.Init(cfg.LogLevel(), cfg.Logging.Format, os.Stderr)
	return cfg, nil
}

// buildRunner wires the configured adapters into a pipeline Runner.
func buildRunner(cfg *config.Config) (*pipeline.Runner, error) {
	gen, err := openaigen.New(openaigen.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	})
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{Generator: gen}

	if cfg.Tavily.APIKey != "" {
		searcher, err := tavily.NewClient(tavily.Config{
			APIKey:  cfg.Tavily.APIKey,
			BaseURL: cfg.Tavily.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		deps.Searcher = searcher
	}

	switch cfg.Fetcher {
	case "firecrawl":
		fetcher, err := firecrawl.NewClient(firecrawl.Config{
			APIKey:  cfg.Firecrawl.APIKey,
			BaseURL: cfg.Firecrawl.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		deps.Fetcher = fetcher
	default:
		deps.Fetcher = browser.New()
	}

	threshold := cfg.Run.ClusterThreshold
	if threshold == 0 {
		threshold = cluster.DefaultThreshold
	}
	return pipeline.New(deps, pipeline.Config{
		Section: section.Config{
			RevisionBudget: cfg.Run.RevisionBudget,
			CallTimeout:    time.Duration(cfg.Run.CallTimeoutSeconds) * time.Second,
		},
		Compile:          compile.Config{DigestMode: compile.DigestMode(cfg.Run.DigestMode)},
		ClusterThreshold: threshold,
		Concurrency:      cfg.Run.Concurrency,
		RelatedHits:      cfg.Run.RelatedHits,
	})
}

// saveRun persists a finished run when a store is configured. Exactly
// one of rep and br is non-nil.
func saveRun(cfg *config.Config, input string, rep *report.Report, br *report.Brief) error {
	if cfg.Store.Path == "" {
		return nil
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	runID := uuid.NewString()
	if rep != nil {
		err = st.SaveReport(runID, input, rep)
	} else {
		err = st.SaveBrief(runID, input, br)
	}
	if err != nil {
		return err
	}
	logging.New("cli").Info("run saved", "run_id", runID, "path", cfg.Store.Path)
	return nil
}

// emit writes v in the requested format: json as-is, md/html through
// the renderer using toMarkdown.
func emit(v any, toMarkdown func() string, format, outPath string) error {
	var data []byte
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		data = b
	case "html":
		html, err := render.HTML(toMarkdown())
		if err != nil {
			return err
		}
		data = []byte(html)
	case "md":
		data = []byte(toMarkdown())
	default:
		return fmt.Errorf("unknown format %q (want json, md, or html)", format)
	}

	if outPath == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
