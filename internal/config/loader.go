package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) if SEDEVAL_CONFIG is set
//  3. env (prefix SEDEVAL_)
func Load() (*Config, error) {
	base := Default()

	k := koanf.New(".")

	if path := os.Getenv("SEDEVAL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	// SEDEVAL_BOOTSTRAP_ITERATIONS -> bootstrap_iterations, keeping
	// underscores to match the koanf tags on the struct.
	envProvider := env.Provider("SEDEVAL_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "sedeval_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Fraction <= 0 || cfg.Fraction > 1 {
		return nil, fmt.Errorf("bootstrap_fraction must be in (0, 1], got %v", cfg.Fraction)
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		return nil, fmt.Errorf("confidence must be in (0, 1), got %v", cfg.Confidence)
	}
	if cfg.Iterations < 1 {
		return nil, fmt.Errorf("bootstrap_iterations must be positive, got %d", cfg.Iterations)
	}
	return &cfg, nil
}

// SlogLevel maps the configured log level onto slog's scale. Unknown
// names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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
