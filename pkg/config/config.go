package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent with every article fetch.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Extractor names accepted in Config.Extractor.
const (
	ExtractorText        = "text"
	ExtractorReadability = "readability"
)

// Config holds all briefbench configuration.
type Config struct {
	CacheDir        string        `yaml:"cache_dir" env:"BRIEFBENCH_CACHE_DIR"`
	Model           string        `yaml:"model" env:"BRIEFBENCH_MODEL"`
	SummaryLength   int           `yaml:"summary_length" env:"BRIEFBENCH_SUMMARY_LENGTH"`
	UserAgent       string        `yaml:"user_agent" env:"BRIEFBENCH_USER_AGENT"`
	Extractor       string        `yaml:"extractor" env:"BRIEFBENCH_EXTRACTOR"`
	FreshnessWindow time.Duration `yaml:"freshness_window" env:"BRIEFBENCH_FRESHNESS_WINDOW"`
	ReportDir       string        `yaml:"report_dir" env:"BRIEFBENCH_REPORT_DIR"`
	Timeouts        TimeoutConfig `yaml:"timeouts"`
	History         HistoryConfig `yaml:"history"`
	Log             LogConfig     `yaml:"log"`
}

// TimeoutConfig bounds each kind of blocking call.
type TimeoutConfig struct {
	Status   time.Duration `yaml:"status" env:"BRIEFBENCH_STATUS_TIMEOUT"`
	Fetch    time.Duration `yaml:"fetch" env:"BRIEFBENCH_FETCH_TIMEOUT"`
	Generate time.Duration `yaml:"generate" env:"BRIEFBENCH_GENERATE_TIMEOUT"`
	Run      time.Duration `yaml:"run" env:"BRIEFBENCH_RUN_TIMEOUT"`
}

// HistoryConfig controls the benchmark history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" env:"BRIEFBENCH_HISTORY_ENABLED"`
	DBPath  string `yaml:"db_path" env:"BRIEFBENCH_DB_PATH"`
}

// LogConfig controls logging. Level falls back to LOG_LEVEL.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	File  string `yaml:"file" env:"BRIEFBENCH_LOG_FILE"`
	JSON  bool   `yaml:"json" env:"BRIEFBENCH_LOG_JSON"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		CacheDir:        defaultCacheDir(),
		Model:           "qwen3:1.7b",
		SummaryLength:   257,
		UserAgent:       DefaultUserAgent,
		Extractor:       ExtractorText,
		FreshnessWindow: 24 * time.Hour,
		ReportDir:       ".",
		Timeouts: TimeoutConfig{
			Status:   5 * time.Second,
			Fetch:    10 * time.Second,
			Generate: 30 * time.Second,
			Run:      300 * time.Second,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "briefbench.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "briefbench")
	}
	return filepath.Join(dir, "briefbench")
}

// Load reads a YAML config file, expands environment variables and applies
// BRIEFBENCH_* overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.CacheDir == "":
		return errors.New("config: cache_dir is required")
	case c.Model == "":
		return errors.New("config: model is required")
	case c.SummaryLength <= 0:
		return fmt.Errorf("config: summary_length must be positive, got %d", c.SummaryLength)
	case c.FreshnessWindow <= 0:
		return fmt.Errorf("config: freshness_window must be positive, got %v", c.FreshnessWindow)
	case c.Extractor != ExtractorText && c.Extractor != ExtractorReadability:
		return fmt.Errorf("config: unknown extractor %q", c.Extractor)
	}

	for name, d := range map[string]time.Duration{
		"status":   c.Timeouts.Status,
		"fetch":    c.Timeouts.Fetch,
		"generate": c.Timeouts.Generate,
		"run":      c.Timeouts.Run,
	} {
		if d <= 0 {
			return fmt.Errorf("config: timeouts.%s must be positive, got %v", name, d)
		}
	}
	return nil
}
