// Package score implements the scoring abstractions the bootstrap
// estimator evaluates: an opaque Scorer capability plus event-based
// macro F1 and PSDS implementations.
package score

import (
	"errors"

	"github.com/truongskyo/dcase20-task4/dataset"
)

// Sentinel errors for conditions callers may need to handle
// differently.
var (
	// ErrWantSinglePoint indicates a scorer was given a
	// multi-operating-point prediction set but evaluates one table.
	ErrWantSinglePoint = errors.New("score: scorer requires single-operating-point predictions")

	// ErrWantMultiPoint indicates a scorer was given a single table but
	// evaluates a threshold sweep.
	ErrWantMultiPoint = errors.New("score: scorer requires multi-operating-point predictions")

	// ErrUndefinedScore indicates the metric is undefined on the given
	// sample, e.g. a bootstrap subset with no ground truth events.
	ErrUndefinedScore = errors.New("score: metric undefined on this sample")
)

// Scorer evaluates a prediction set against ground truth and returns a
// single scalar. Implementations carry their own configuration
// (collars, durations, normalisation constants) bound at construction,
// so the bootstrap engine can treat every scorer as a black box.
type Scorer interface {
	Score(preds dataset.Predictions, gt *dataset.EventTable) (float64, error)
}

// Func adapts a plain function to the Scorer interface.
type Func func(preds dataset.Predictions, gt *dataset.EventTable) (float64, error)

// Score calls f.
func (f Func) Score(preds dataset.Predictions, gt *dataset.EventTable) (float64, error) {
	return f(preds, gt)
}
