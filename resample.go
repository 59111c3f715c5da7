package sedeval

import (
	"math"
	"math/rand"

	"github.com/truongskyo/dcase20-task4/dataset"
	"github.com/truongskyo/dcase20-task4/score"
)

// iterationRand derives an independent generator for one iteration.
// Seeding from base plus index keeps iterations decoupled from worker
// scheduling: iteration i draws the same subset no matter which worker
// runs it or when.
func iterationRand(base int64, iteration int) *rand.Rand {
	return rand.New(rand.NewSource(base + int64(iteration)))
}

// resampleAndScore draws one bootstrap sample and evaluates the scorer
// on it. The sample is a simple random subset of the ground truth's
// unique filenames, of size round(fraction x count), drawn without
// replacement; all rows of a drawn filename travel together, and the
// same subset is applied to every prediction table. Scorer errors
// propagate unchanged.
func resampleAndScore(rng *rand.Rand, preds dataset.Predictions, gt *dataset.EventTable, scorer score.Scorer, fraction float64) (float64, error) {
	names := gt.Filenames()
	keep := sampleFiles(rng, names, fraction)

	return scorer.Score(preds.FilterFiles(keep), gt.FilterFiles(keep))
}

// sampleFiles draws round(fraction x len(names)) filenames without
// replacement.
func sampleFiles(rng *rand.Rand, names []string, fraction float64) map[string]struct{} {
	k := int(math.Round(fraction * float64(len(names))))
	if k > len(names) {
		k = len(names)
	}

	keep := make(map[string]struct{}, k)
	for _, idx := range rng.Perm(len(names))[:k] {
		keep[names[idx]] = struct{}{}
	}
	return keep
}
