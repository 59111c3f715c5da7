package sedeval

import (
	"log/slog"
	"math/rand"
	"runtime"
)

// Option configures a Bootstrap run.
type Option func(*config)

type config struct {
	iterations int
	fraction   float64
	confidence float64
	workers    int
	seed       int64
	seeded     bool
	logger     *slog.Logger
}

func defaultConfig() config {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return config{
		iterations: 200,
		fraction:   0.8,
		confidence: 0.9,
		workers:    workers,
		logger:     slog.Default(),
	}
}

// baseSeed returns the seed iteration generators derive from. Unseeded
// runs draw a fresh base per call, so repeated runs differ while every
// iteration within a run still gets an independent generator.
func (c *config) baseSeed() int64 {
	if c.seeded {
		return c.seed
	}
	return rand.Int63()
}

// WithIterations sets the number of bootstrap iterations (default 200).
// Values below 2 are accepted but make the interval meaningless; that
// trade-off is the caller's.
func WithIterations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// WithFraction sets the fraction of ground truth filenames drawn per
// iteration (default 0.8). 1.0 collapses the interval onto the full-set
// score.
func WithFraction(f float64) Option {
	return func(c *config) {
		if f > 0 && f <= 1 {
			c.fraction = f
		}
	}
}

// WithConfidence sets the two-sided confidence level (default 0.9,
// giving the 5th and 95th percentiles).
func WithConfidence(level float64) Option {
	return func(c *config) {
		if level > 0 && level < 1 {
			c.confidence = level
		}
	}
}

// WithWorkers bounds how many iterations run concurrently (default:
// max(1, runtime.NumCPU()-1)).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSeed fixes the base random seed, making the run reproducible.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
		c.seeded = true
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
