package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the process-wide configuration for the orchestrator,
// loaded from TOML with environment-variable overrides for secrets
// and operational knobs (spec.md §6 "CLI/env surface").
type Config struct {
	Logging      LoggingConfig      `toml:"logging"`
	Storage      StorageConfig      `toml:"storage"`
	Crawler      CrawlerConfig      `toml:"crawler"`
	LLM          LLMConfig          `toml:"llm"`
	Claude       ClaudeConfig       `toml:"claude"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Templates    TemplatesConfig    `toml:"templates"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // debug|info|warn|error
	Format string   `toml:"format"` // json|text
	Output []string `toml:"output"` // stdout|file
}

type StorageConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// CrawlerConfig controls the bounded crawler (spec.md §4.2).
type CrawlerConfig struct {
	DefaultMaxPages       int           `toml:"default_max_pages"`
	RequestTimeout        time.Duration `toml:"request_timeout"`
	TotalBudget           time.Duration `toml:"total_budget"`
	UserAgent             string        `toml:"user_agent"`
	PerDomainDelay        time.Duration `toml:"per_domain_delay"`
	MaxRedirectDepth      int           `toml:"max_redirect_depth"`
	EnableJSFallback      bool          `toml:"enable_js_fallback"`
	JSRenderMinBytesRatio float64       `toml:"js_render_min_bytes_ratio"` // text/html byte ratio under which JS fallback triggers
}

// LLMConfig is the provider-agnostic LLM dispatch configuration
// (spec.md §4.5, §5).
type LLMConfig struct {
	DefaultProvider   string        `toml:"default_provider"` // claude|gemini
	Temperature       float32       `toml:"temperature"`
	MaxTokens         int           `toml:"max_tokens"`
	CallTimeout       time.Duration `toml:"call_timeout"`
	GlobalConcurrency int           `toml:"global_concurrency"`
	PerJobConcurrency int           `toml:"per_job_concurrency"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	MaxRetries        int           `toml:"max_retries"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// OrchestratorConfig controls job-level ceilings (spec.md §5).
type OrchestratorConfig struct {
	JobWallClockCeiling   time.Duration `toml:"job_wall_clock_ceiling"`
	ProgressFlushInterval time.Duration `toml:"progress_flush_interval"`
}

// TemplatesConfig points at the axis prompt template directory
// (spec.md §6 prompt-template contract).
type TemplatesConfig struct {
	Dir string `toml:"dir"`
}

// Default returns a configuration with every field set to the defaults
// spec.md calls "sensible" (§4.2, §4.5, §4.8, §5).
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text", Output: []string{"stdout"}},
		Storage: StorageConfig{Path: "./data/auditor.badger"},
		Crawler: CrawlerConfig{
			DefaultMaxPages:       5,
			RequestTimeout:        20 * time.Second,
			TotalBudget:           2 * time.Minute,
			UserAgent:             "a11yscan-auditor/1.0 (+https://a11yscan.example/bot)",
			PerDomainDelay:        250 * time.Millisecond,
			MaxRedirectDepth:      5,
			EnableJSFallback:      true,
			JSRenderMinBytesRatio: 0.02,
		},
		LLM: LLMConfig{
			DefaultProvider:   "claude",
			Temperature:       0.1,
			MaxTokens:         4096,
			CallTimeout:       120 * time.Second,
			GlobalConcurrency: 32,
			PerJobConcurrency: 12,
			RequestsPerSecond: 8,
			MaxRetries:        3,
		},
		Claude: ClaudeConfig{Model: "claude-sonnet-4-20250514", MaxTokens: 4096, Temperature: 0.1},
		Gemini: GeminiConfig{Model: "gemini-2.5-flash", Temperature: 0.1},
		Orchestrator: OrchestratorConfig{
			JobWallClockCeiling:   30 * time.Minute,
			ProgressFlushInterval: time.Second,
		},
		Templates: TemplatesConfig{Dir: "./templates/prompts"},
	}
}

// Load reads TOML configuration from path (if it exists) layered over
// Default(), then applies environment overrides. A missing required
// secret after overrides is the caller's responsibility to surface as
// CodeConfigMissing.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUDITOR_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("AUDITOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUDITOR_LLM_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("AUDITOR_LLM_MODEL"); v != "" {
		cfg.Claude.Model = v
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("AUDITOR_DEFAULT_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Crawler.DefaultMaxPages = n
		}
	}
	if v := os.Getenv("AUDITOR_GLOBAL_LLM_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.GlobalConcurrency = n
		}
	}
	if v := os.Getenv("AUDITOR_JOB_WALLCLOCK_CEILING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Orchestrator.JobWallClockCeiling = d
		}
	}
	if v := os.Getenv("AUDITOR_TEMPLATES_DIR"); v != "" {
		cfg.Templates.Dir = v
	}
}

// ResolveAPIKey resolves an LLM provider API key with environment
// priority over config, matching the teacher's precedence order
// (env > config fallback), minus the KV-store tier this core has no
// use for (credentials are a startup concern here, not a runtime one).
func ResolveAPIKey(provider string, configFallback string) (string, error) {
	envNames := map[string][]string{
		"claude": {"ANTHROPIC_API_KEY", "AUDITOR_CLAUDE_API_KEY"},
		"gemini": {"GEMINI_API_KEY", "AUDITOR_GEMINI_API_KEY"},
	}

	for _, name := range envNames[provider] {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", NewError(CodeConfigMissing, fmt.Sprintf("no API key configured for provider %q", provider))
}
