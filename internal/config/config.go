package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Environment variables consulted at startup.
const (
	EnvCloudAPIKey = "CATALYST_OPENAI_KEY"
	EnvLocalURL    = "CATALYST_LOCAL_URL"
	EnvCatalogURL  = "CATALYST_CATALOG_URL"
)

// LLMConfig selects backends and per-role models. Order lists the backends to
// try in sequence ("local", "cloud"); the first that answers wins.
type LLMConfig struct {
	CloudBaseURL string `yaml:"cloud_base_url"`
	LocalBaseURL string `yaml:"local_base_url"`
	// Order is the explicit fallback chain, e.g. ["local", "cloud"].
	Order []string `yaml:"order"`

	ResearchModel  string `yaml:"research_model"`
	ReasoningModel string `yaml:"reasoning_model"`
	SynthesisModel string `yaml:"synthesis_model"`

	MaxOutputTokens int `yaml:"max_output_tokens"`
}

// CatalogConfig points at the external project catalog API.
type CatalogConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig governs the cache-write busy retry loop.
type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

// BatchConfig bounds batch-level concurrency across projects.
type BatchConfig struct {
	Size            int           `yaml:"size"`
	MaxSize         int           `yaml:"max_size"`
	ProjectDelay    time.Duration `yaml:"project_delay"`
	InterBatchDelay time.Duration `yaml:"inter_batch_delay"`
	ProjectTimeout  time.Duration `yaml:"project_timeout"`
}

// TimeoutConfig carries per-stage LLM call deadlines.
type TimeoutConfig struct {
	Research time.Duration `yaml:"research"`
	Question time.Duration `yaml:"question"`
	Analysis time.Duration `yaml:"analysis"`
	Summary  time.Duration `yaml:"summary"`
}

// Config is the full application configuration. Zero values are filled from
// Default; a YAML file overrides defaults, env vars override credentials/URLs.
type Config struct {
	DBPath       string        `yaml:"db_path"`
	GuidancePath string        `yaml:"guidance_path"`
	Freshness    time.Duration `yaml:"freshness"`

	Catalog  CatalogConfig `yaml:"catalog"`
	LLM      LLMConfig     `yaml:"llm"`
	Retry    RetryConfig   `yaml:"retry"`
	Batch    BatchConfig   `yaml:"batch"`
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// Context bounds: long research text is truncated, not summarized.
	MaxResearchContext int `yaml:"max_research_context"`
	MaxAnalysisContext int `yaml:"max_analysis_context"`

	// CloudAPIKey is read from the environment, never from the file.
	CloudAPIKey string `yaml:"-"`
}

// Default returns the baseline configuration with the reference constants:
// 24h freshness, 3 write attempts at 100ms × attempt backoff, batches of 3
// capped at 6, 180s question timeout, 300s project timeout.
func Default() Config {
	return Config{
		DBPath:       ".catalyst/catalyst.db",
		GuidancePath: "prompt.md",
		Freshness:    24 * time.Hour,
		Catalog: CatalogConfig{
			BaseURL: "https://api.nearcatalog.org",
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			CloudBaseURL:    "https://api.openai.com/v1",
			LocalBaseURL:    "http://localhost:11434/v1",
			Order:           []string{"cloud"},
			ResearchModel:   "gpt-4.1",
			ReasoningModel:  "o4-mini",
			SynthesisModel:  "gpt-4.1",
			MaxOutputTokens: 4000,
		},
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: 100 * time.Millisecond,
		},
		Batch: BatchConfig{
			Size:            3,
			MaxSize:         6,
			ProjectDelay:    2 * time.Second,
			InterBatchDelay: 5 * time.Second,
			ProjectTimeout:  300 * time.Second,
		},
		Timeouts: TimeoutConfig{
			Research: 120 * time.Second,
			Question: 180 * time.Second,
			Analysis: 60 * time.Second,
			Summary:  90 * time.Second,
		},
		MaxResearchContext: 2000,
		MaxAnalysisContext: 4000,
	}
}

// Load returns Default overlaid with the YAML file at path (if non-empty) and
// environment overrides. A missing explicit config file is an error; an empty
// path just means "defaults plus env".
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCloudAPIKey); v != "" {
		c.CloudAPIKey = v
	}
	if v := os.Getenv(EnvLocalURL); v != "" {
		c.LLM.LocalBaseURL = v
	}
	if v := os.Getenv(EnvCatalogURL); v != "" {
		c.Catalog.BaseURL = v
	}
}

// Validate enforces the startup-fatal conditions: a usable backend chain,
// credentials for the cloud backend if it is in the chain, and the framework
// guidance file. Everything else degrades at runtime instead of failing here.
func (c *Config) Validate() error {
	if len(c.LLM.Order) == 0 {
		return fmt.Errorf("llm.order must name at least one backend")
	}
	for _, name := range c.LLM.Order {
		switch name {
		case "cloud":
			if c.CloudAPIKey == "" {
				return fmt.Errorf("cloud backend requires %s", EnvCloudAPIKey)
			}
		case "local":
			if c.LLM.LocalBaseURL == "" {
				return fmt.Errorf("local backend requires a base URL (%s)", EnvLocalURL)
			}
		default:
			return fmt.Errorf("unknown backend %q in llm.order", name)
		}
	}
	if _, err := os.Stat(c.GuidancePath); err != nil {
		return fmt.Errorf("framework guidance file %s: %w", c.GuidancePath, err)
	}
	if c.Batch.Size > c.Batch.MaxSize {
		c.Batch.Size = c.Batch.MaxSize
	}
	if c.Batch.Size < 1 {
		return fmt.Errorf("batch.size must be at least 1")
	}
	return nil
}

// LoadGuidance reads the partnership evaluation framework text that is folded
// into every analysis prompt.
func (c *Config) LoadGuidance() (string, error) {
	data, err := os.ReadFile(c.GuidancePath)
	if err != nil {
		return "", fmt.Errorf("read guidance: %w", err)
	}
	return string(data), nil
}
