package sedeval

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/truongskyo/dcase20-task4/dataset"
	"github.com/truongskyo/dcase20-task4/score"
)

// Result is a bootstrap point estimate with its two-sided confidence
// interval. Lower <= Mean <= Upper always holds.
type Result struct {
	Mean  float64
	Lower float64
	Upper float64
}

func (r Result) String() string {
	return fmt.Sprintf("%.4f [%.4f, %.4f]", r.Mean, r.Lower, r.Upper)
}

// Bootstrap estimates the scorer's value on the full dataset together
// with a confidence interval, by evaluating it on repeated random
// subsets of the ground truth filenames.
//
// Predictions and ground truth are shared read-only across iterations;
// each iteration filters its own copy of the rows. Iterations are
// independent and run concurrently on a bounded worker group. The
// first iteration error cancels the remaining iterations and fails the
// whole call; there is no partial result.
func Bootstrap(ctx context.Context, preds dataset.Predictions, gt *dataset.EventTable, scorer score.Scorer, opts ...Option) (Result, error) {
	if scorer == nil {
		return Result{}, ErrNoScorer
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(gt.Filenames()) == 0 {
		return Result{}, ErrEmptyGroundTruth
	}

	base := cfg.baseSeed()
	cfg.logger.Debug("starting bootstrap",
		"iterations", cfg.iterations,
		"fraction", cfg.fraction,
		"workers", cfg.workers,
		"seed", base,
	)

	values := make([]float64, cfg.iterations)

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(cfg.workers)
	for i := 0; i < cfg.iterations; i++ {
		grp.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			v, err := resampleAndScore(iterationRand(base, i), preds, gt, scorer, cfg.fraction)
			if err != nil {
				return fmt.Errorf("bootstrap iteration %d: %w", i, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return Result{}, err
	}

	return summarize(values, cfg.confidence), nil
}

// summarize sorts the iteration scores and derives the point estimate
// and the two-sided interval. Quantiles interpolate linearly between
// order statistics.
func summarize(values []float64, confidence float64) Result {
	sort.Float64s(values)

	alpha := (1 - confidence) / 2
	return Result{
		Mean:  stat.Mean(values, nil),
		Lower: stat.Quantile(alpha, stat.LinInterp, values, nil),
		Upper: stat.Quantile(confidence+alpha, stat.LinInterp, values, nil),
	}
}
