package sedeval

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrEmptyGroundTruth indicates the ground truth table carries no
	// filenames, leaving nothing to resample.
	ErrEmptyGroundTruth = errors.New("sedeval: ground truth has no filenames")

	// ErrNoScorer indicates Bootstrap was called without a scorer.
	ErrNoScorer = errors.New("sedeval: nil scorer")
)
