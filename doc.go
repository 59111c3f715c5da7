// Package sedeval estimates sound-event-detection metrics with
// bootstrap confidence intervals.
//
// # Quick Start
//
//	f1 := score.NewEventF1()
//	res, err := sedeval.Bootstrap(ctx, predictions, groundtruth, f1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("macro F1: %.3f [%.3f, %.3f]\n", res.Mean, res.Lower, res.Upper)
//
// Each bootstrap iteration draws a random subset of the ground truth
// filenames, restricts predictions and ground truth to that subset,
// and evaluates the scorer on it. Iterations run in parallel on a
// bounded worker group; the mean and the two-sided confidence interval
// are computed from the sorted iteration scores.
//
// # Reproducibility
//
// Without WithSeed, every run draws fresh subsets and results differ
// run to run; that spread is the quantity being estimated, not a
// defect. With WithSeed, each iteration derives its own generator from
// the base seed and the iteration index, making runs reproducible and
// independent of worker scheduling.
package sedeval
