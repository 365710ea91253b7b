// Package config loads run configuration for the CLI and serve entry
// points. Core packages never read this directly; they take explicit
// structs filled in from here.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full YAML configuration file.
type Config struct {
	Logging   Logging   `yaml:"logging"`
	OpenAI    OpenAI    `yaml:"openai"`
	Tavily    Tavily    `yaml:"tavily"`
	Firecrawl Firecrawl `yaml:"firecrawl"`
	// Fetcher selects the page-fetch adapter: "firecrawl" or "browser".
	Fetcher string `yaml:"fetcher"`
	Store   Store  `yaml:"store"`
	Run     Run    `yaml:"run"`
}

// Store configures run persistence. An empty path disables it.
type Store struct {
	Path string `yaml:"path"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type OpenAI struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type Tavily struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type Firecrawl struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Run tunes pipeline behavior.
type Run struct {
	Concurrency        int                `yaml:"concurrency"`
	RevisionBudget     int                `yaml:"revision_budget"`
	ClusterThreshold   float64            `yaml:"cluster_threshold"`
	DigestMode         string             `yaml:"digest_mode"` // single or lines
	RelatedHits        int                `yaml:"related_hits"`
	CallTimeoutSeconds int                `yaml:"call_timeout_seconds"` // per model/search call, default 60
	InterestWeights    map[string]float64 `yaml:"interest_weights"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: Logging{Level: "info", Format: "text"},
		OpenAI:  OpenAI{Model: "gpt-4o-mini"},
		Fetcher: "browser",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv fills unset credentials from the environment. The lookup
// function is passed in so this stays testable; the CLI hands it
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = getenv("OPENAI_API_KEY")
	}
	if c.Tavily.APIKey == "" {
		c.Tavily.APIKey = getenv("TAVILY_API_KEY")
	}
	if c.Firecrawl.APIKey == "" {
		c.Firecrawl.APIKey = getenv("FIRECRAWL_API_KEY")
	}
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
