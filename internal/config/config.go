// Package config holds the runtime settings of the evaluation CLI and
// their layered loading: built-in defaults, an optional YAML file, and
// SEDEVAL_* environment variables.
package config

import "runtime"

// Config contains evaluation process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Iterations is the number of bootstrap samples per metric.
	Iterations int `koanf:"bootstrap_iterations"`

	// Fraction of ground truth filenames drawn per bootstrap sample.
	Fraction float64 `koanf:"bootstrap_fraction"`

	// Confidence is the two-sided confidence level for the interval.
	Confidence float64 `koanf:"confidence"`

	// Workers bounds concurrent bootstrap iterations.
	Workers int `koanf:"workers"`

	// Sessions sets the ONNX session pool size for prediction.
	Sessions int `koanf:"sessions"`

	// Thresholds is the size of the threshold sweep for PSDS.
	Thresholds int `koanf:"n_thresholds"`

	// SingleThreshold is the operating point for the F1 evaluation.
	SingleThreshold float64 `koanf:"single_threshold"`

	// Collar is the F1 onset matching collar in seconds.
	Collar float64 `koanf:"f1_collar_seconds"`

	// MaxEFPR caps the PSDS ROC integration, in events per hour.
	MaxEFPR float64 `koanf:"psds_max_efpr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return &Config{
		LogLevel:        "info",
		Iterations:      200,
		Fraction:        0.8,
		Confidence:      0.9,
		Workers:         workers,
		Sessions:        workers,
		Thresholds:      50,
		SingleThreshold: 0.5,
		Collar:          0.2,
		MaxEFPR:         100,
	}
}
