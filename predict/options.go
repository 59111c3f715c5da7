package predict

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Option configures a Generator.
type Option func(*generatorConfig)

type generatorConfig struct {
	medianWin int
	parallel  int
	savePath  string
	logger    *slog.Logger
}

// WithMedianWindow overrides the post-processing median window (in
// output frames). Zero keeps the checkpoint's recorded value.
func WithMedianWindow(n int) Option {
	return func(c *generatorConfig) {
		if n > 0 {
			c.medianWin = n
		}
	}
}

// WithParallelism bounds how many clips are scored concurrently
// (default: runtime.NumCPU()).
func WithParallelism(n int) Option {
	return func(c *generatorConfig) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// WithSavePath persists generated prediction tables to the given TSV
// path. Sweep tables get a per-threshold suffix.
func WithSavePath(path string) Option {
	return func(c *generatorConfig) {
		c.savePath = path
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *generatorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ThresholdLadder returns n thresholds centred in equal slices of
// (0,1): (2i+1)/(2n) for i in 0..n-1. Five thresholds give
// 0.1, 0.3, 0.5, 0.7, 0.9.
func ThresholdLadder(n int) []float32 {
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(2*i+1) / float32(2*n)
	}
	return out
}

// sweepSavePath derives the per-threshold save path for a sweep table:
// predictions.tsv at 0.3 becomes predictions_th0.300.tsv.
func sweepSavePath(base string, threshold float32) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_th%.3f%s", stem, threshold, ext)
}
