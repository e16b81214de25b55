// Package config loads the forensics tooling configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// #region types
// Config holds all tool settings.
type Config struct {
	DBPath       string `yaml:"db_path" env:"FORENSICS_DB"`
	CodecAddr    string `yaml:"codec_addr" env:"CODEC_ADDR"`
	CacheVersion string `yaml:"cache_version" env:"CACHE_VERSION"`
	BiasTable    string `yaml:"bias_table" env:"BIAS_TABLE"`

	Forensics  ForensicsConfig  `yaml:"forensics"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Logging    LoggingConfig    `yaml:"logging"`
	Admin      AdminConfig      `yaml:"admin"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ForensicsConfig bounds harness runs.
type ForensicsConfig struct {
	Workers       int           `yaml:"workers" env:"FORENSICS_WORKERS"`
	TrialTimeout  time.Duration `yaml:"trial_timeout" env:"FORENSICS_TRIAL_TIMEOUT"`
	RunDeadline   time.Duration `yaml:"run_deadline" env:"FORENSICS_RUN_DEADLINE"`
	DefaultN      int           `yaml:"default_n" env:"FORENSICS_DEFAULT_N"`
	MaxN          int           `yaml:"max_n" env:"FORENSICS_MAX_N"`
	StyleMaxChars int           `yaml:"style_max_chars" env:"FORENSICS_STYLE_MAX_CHARS"`
}

// ThresholdsConfig are the --strict floors, in percent.
type ThresholdsConfig struct {
	PromptDistinctPct  float64 `yaml:"prompt_distinct_pct" env:"THRESHOLD_PROMPT_DISTINCT_PCT"`
	OutputDistinctPct  float64 `yaml:"output_distinct_pct" env:"THRESHOLD_OUTPUT_DISTINCT_PCT"`
	StylePassRepairPct float64 `yaml:"style_pass_after_repair_pct" env:"THRESHOLD_STYLE_PASS_PCT"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

// AdminConfig configures the admin HTTP endpoint.
type AdminConfig struct {
	Addr      string `yaml:"addr" env:"ADMIN_ADDR"`
	JWTSecret string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
}

// TracingConfig points span export at an OTLP/HTTP collector. Empty disables it.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
}

// #endregion types

// #region defaults
// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:       "quest_forensics.db",
		CodecAddr:    "localhost:50051",
		CacheVersion: "1",
		Forensics: ForensicsConfig{
			Workers:       4,
			TrialTimeout:  30 * time.Second,
			RunDeadline:   5 * time.Minute,
			DefaultN:      10,
			MaxN:          200,
			StyleMaxChars: 600,
		},
		Thresholds: ThresholdsConfig{
			PromptDistinctPct:  40,
			OutputDistinctPct:  25,
			StylePassRepairPct: 90,
		},
		Logging: LoggingConfig{Level: "info"},
		Admin:   AdminConfig{Addr: ":8089"},
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults (a missing path is skipped when empty),
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if c.CacheVersion == "" {
		errs = append(errs, errors.New("cache_version must be set"))
	}
	if c.Forensics.Workers < 1 {
		errs = append(errs, fmt.Errorf("forensics.workers must be >= 1, got %d", c.Forensics.Workers))
	}
	if c.Forensics.DefaultN < 1 {
		errs = append(errs, fmt.Errorf("forensics.default_n must be >= 1, got %d", c.Forensics.DefaultN))
	}
	if c.Forensics.MaxN < c.Forensics.DefaultN {
		errs = append(errs, fmt.Errorf("forensics.max_n %d below default_n %d", c.Forensics.MaxN, c.Forensics.DefaultN))
	}
	if c.Forensics.TrialTimeout < 0 || c.Forensics.RunDeadline < 0 {
		errs = append(errs, errors.New("forensics timeouts must not be negative"))
	}
	for name, v := range map[string]float64{
		"prompt_distinct_pct":         c.Thresholds.PromptDistinctPct,
		"output_distinct_pct":         c.Thresholds.OutputDistinctPct,
		"style_pass_after_repair_pct": c.Thresholds.StylePassRepairPct,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("thresholds.%s must be within [0,100], got %v", name, v))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion load
