package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all propgen configuration.
type Config struct {
	Source      SourceConfig          `yaml:"source"`
	Destination DestinationConfig     `yaml:"destination"`
	Provider    ProviderConfig        `yaml:"provider"`
	Generation  GenerationConfig      `yaml:"generation"`
	RateLimit   RateLimitConfig       `yaml:"rate_limit"`
	Batch       BatchConfig           `yaml:"batch"`
	Cache       CacheConfig           `yaml:"cache"`
	History     HistoryConfig         `yaml:"history"`
	Log         LogConfig             `yaml:"log"`
	Tasks       map[string]TaskConfig `yaml:"tasks"`
}

// SourceConfig points at the database holding the hotels table.
// Driver is "postgres" or "sqlite".
type SourceConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// DestinationConfig points at the database receiving generated results.
// Driver is "postgres" or "sqlite".
type DestinationConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ProviderConfig defines the upstream text-generation provider.
// Type is "gemini" (default), "openai", "anthropic" or "ollama".
type ProviderConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// GenerationConfig controls sampling and the retry policy.
type GenerationConfig struct {
	TopP           float64       `yaml:"top_p"`
	TopK           int           `yaml:"top_k"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	RetryJitterMin time.Duration `yaml:"retry_jitter_min"`
	RetryJitterMax time.Duration `yaml:"retry_jitter_max"`
	SmoothingMin   time.Duration `yaml:"smoothing_jitter_min"`
	SmoothingMax   time.Duration `yaml:"smoothing_jitter_max"`
}

// RateLimitConfig caps dispatches per window.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// BatchConfig controls batch pacing.
type BatchConfig struct {
	Size      int           `yaml:"size"`
	Delay     time.Duration `yaml:"delay"`
	ItemDelay time.Duration `yaml:"item_delay"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	DBPath  string        `yaml:"db_path"`
}

// HistoryConfig controls run history recording. An empty DBPath disables it.
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// LogConfig controls the zap logger. Format is "json" or "console".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TaskConfig overrides a built-in task's parameters. Prompts maps a prompt
// step name to replacement template text.
type TaskConfig struct {
	MaxTokens   int               `yaml:"max_tokens"`
	Temperature *float64          `yaml:"temperature"`
	Reset       *bool             `yaml:"reset"`
	Prompts     map[string]string `yaml:"prompts"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Driver: "postgres",
			Table:  "hotels",
		},
		Destination: DestinationConfig{
			Driver: "sqlite",
			DSN:    "propgen.db",
		},
		Provider: ProviderConfig{
			Name:  "gemini",
			Type:  "gemini",
			Model: "gemini-2.0-flash-exp",
		},
		Generation: GenerationConfig{
			TopP:           0.8,
			TopK:           40,
			MaxAttempts:    3,
			BaseDelay:      5 * time.Second,
			RetryJitterMin: time.Second,
			RetryJitterMax: 3 * time.Second,
			SmoothingMin:   500 * time.Millisecond,
			SmoothingMax:   1500 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 60,
			Window:      time.Minute,
		},
		Batch: BatchConfig{
			Size:      5,
			Delay:     10 * time.Second,
			ItemDelay: time.Second,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     24 * time.Hour,
			DBPath:  "propgen-cache.db",
		},
		History: HistoryConfig{
			DBPath: "propgen-history.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file, expands environment variables and applies
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults with environment
// overrides when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// ApplyEnv fills values from the environment. Keys from GEMINI_API_KEY or
// GOOGLE_API_KEY only apply to a gemini provider with no key set.
func (c *Config) ApplyEnv() {
	if c.Provider.APIKey == "" && c.providerType() == "gemini" {
		for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if v := os.Getenv(k); v != "" {
				c.Provider.APIKey = v
				break
			}
		}
	}
	if v := os.Getenv("PROPGEN_SOURCE_DSN"); v != "" {
		c.Source.DSN = v
	}
	if v := os.Getenv("PROPGEN_DEST_DSN"); v != "" {
		c.Destination.DSN = v
	}
}

func (c *Config) providerType() string {
	if c.Provider.Type == "" {
		return "gemini"
	}
	return c.Provider.Type
}

// maxAttempts bounds the per-request retry budget.
const maxAttempts = 20

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if !validDriver(c.Source.Driver) {
		errs = append(errs, fmt.Errorf("source.driver %q: want postgres or sqlite", c.Source.Driver))
	}
	if !validDriver(c.Destination.Driver) {
		errs = append(errs, fmt.Errorf("destination.driver %q: want postgres or sqlite", c.Destination.Driver))
	}
	switch c.providerType() {
	case "gemini", "openai", "anthropic", "ollama":
	default:
		errs = append(errs, fmt.Errorf("provider.type %q: unknown", c.Provider.Type))
	}
	if c.Batch.Size <= 0 {
		errs = append(errs, fmt.Errorf("batch.size must be positive, got %d", c.Batch.Size))
	}
	if c.Generation.MaxAttempts < 1 || c.Generation.MaxAttempts > maxAttempts {
		errs = append(errs, fmt.Errorf("generation.max_attempts must be between 1 and %d, got %d", maxAttempts, c.Generation.MaxAttempts))
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		errs = append(errs, fmt.Errorf("generation.top_p %v outside [0,1]", c.Generation.TopP))
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.max_requests and rate_limit.window must be positive"))
	}
	for name, t := range c.Tasks {
		if t.Temperature != nil && (*t.Temperature < 0 || *t.Temperature > 1) {
			errs = append(errs, fmt.Errorf("tasks.%s.temperature %v outside [0,1]", name, *t.Temperature))
		}
		if t.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("tasks.%s.max_tokens must not be negative", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func validDriver(d string) bool {
	return d == "postgres" || d == "sqlite"
}
