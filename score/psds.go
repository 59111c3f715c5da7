package score

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"

	"github.com/truongskyo/dcase20-task4/dataset"
)

// PSDS computes a polyphonic sound detection score over a
// multi-operating-point prediction set: each threshold's table yields
// one (effective FPR, TPR) point, and the score is the normalised area
// under the resulting ROC up to a maximum effective FPR.
//
// Matching uses intersection criteria: a prediction is valid when at
// least dtc of its span intersects same-class ground truth, and a
// ground truth event counts as detected when at least gtc of its span
// is covered by valid predictions of its class.
type PSDS struct {
	durations dataset.Durations
	dtc       float64
	gtc       float64
	maxEFPR   float64 // events per hour
}

// PSDSOption configures a PSDS scorer.
type PSDSOption func(*PSDS)

// WithDTC sets the detection tolerance criterion (default 0.5).
func WithDTC(r float64) PSDSOption {
	return func(s *PSDS) {
		if r > 0 {
			s.dtc = r
		}
	}
}

// WithGTC sets the ground truth intersection criterion (default 0.5).
func WithGTC(r float64) PSDSOption {
	return func(s *PSDS) {
		if r > 0 {
			s.gtc = r
		}
	}
}

// WithMaxEFPR sets the effective FPR (events per hour) the ROC area is
// integrated and normalised to (default 100).
func WithMaxEFPR(perHour float64) PSDSOption {
	return func(s *PSDS) {
		if perHour > 0 {
			s.maxEFPR = perHour
		}
	}
}

// NewPSDS creates a PSDS scorer. The duration table must cover every
// filename the ground truth can contain.
func NewPSDS(durations dataset.Durations, opts ...PSDSOption) *PSDS {
	s := &PSDS{
		durations: durations,
		dtc:       0.5,
		gtc:       0.5,
		maxEFPR:   100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OperatingPoint is one threshold's position on the detection ROC.
type OperatingPoint struct {
	Threshold float32
	TPR       float64 // macro-averaged true positive rate
	EFPR      float64 // false positives per hour of audio
}

// Score evaluates a multi-operating-point prediction set.
func (s *PSDS) Score(preds dataset.Predictions, gt *dataset.EventTable) (float64, error) {
	points, err := s.OperatingPoints(preds, gt)
	if err != nil {
		return 0, err
	}
	return s.area(points), nil
}

// OperatingPoints computes the ROC point for every table in the
// prediction set, in threshold order.
func (s *PSDS) OperatingPoints(preds dataset.Predictions, gt *dataset.EventTable) ([]OperatingPoint, error) {
	if !preds.Multi() {
		return nil, ErrWantMultiPoint
	}
	if gt.Len() == 0 {
		return nil, ErrUndefinedScore
	}

	hours, err := s.audioHours(gt)
	if err != nil {
		return nil, err
	}

	thresholds := preds.Thresholds()
	points := make([]OperatingPoint, 0, len(preds.Tables()))
	for i, table := range preds.Tables() {
		tpr, fpCount := s.evaluateTable(table, gt)
		pt := OperatingPoint{
			TPR:  tpr,
			EFPR: float64(fpCount) / hours,
		}
		if i < len(thresholds) {
			pt.Threshold = thresholds[i]
		}
		points = append(points, pt)
	}
	return points, nil
}

func (s *PSDS) audioHours(gt *dataset.EventTable) (float64, error) {
	total, err := s.durations.Total(gt.Filenames())
	if err != nil {
		return 0, fmt.Errorf("psds: %w", err)
	}
	if total <= 0 {
		return 0, fmt.Errorf("psds: zero total audio duration")
	}
	return total / 3600, nil
}

// evaluateTable returns the macro TPR over ground truth classes and
// the count of predictions that matched nothing.
func (s *PSDS) evaluateTable(pred, gt *dataset.EventTable) (tpr float64, fpCount int) {
	type classTally struct {
		detected int
		total    int
	}
	tally := make(map[string]*classTally)
	for _, ev := range gt.Events() {
		t, ok := tally[ev.Label]
		if !ok {
			t = &classTally{}
			tally[ev.Label] = t
		}
		t.total++
	}

	for _, name := range gt.Filenames() {
		gtByClass := groupByLabel(gt.ForFile(name))
		predByClass := groupByLabel(pred.ForFile(name))

		for label, predEvents := range predByClass {
			gtEvents := gtByClass[label]
			for _, p := range predEvents {
				if !s.validDetection(p, gtEvents) {
					fpCount++
				}
			}
		}
		for label, gtEvents := range gtByClass {
			predEvents := predByClass[label]
			for _, g := range gtEvents {
				if s.covered(g, predEvents) {
					tally[label].detected++
				}
			}
		}
	}

	var sum float64
	for _, t := range tally {
		sum += float64(t.detected) / float64(t.total)
	}
	return sum / float64(len(tally)), fpCount
}

// validDetection reports whether at least dtc of the prediction's span
// intersects ground truth events of its class.
func (s *PSDS) validDetection(p dataset.Event, gtEvents []dataset.Event) bool {
	span := p.Offset - p.Onset
	if span <= 0 {
		return false
	}
	var overlap float64
	for _, g := range gtEvents {
		overlap += intersection(p, g)
	}
	return overlap/span >= s.dtc
}

// covered reports whether at least gtc of the ground truth event's
// span is covered by predictions of its class.
func (s *PSDS) covered(g dataset.Event, predEvents []dataset.Event) bool {
	span := g.Offset - g.Onset
	if span <= 0 {
		return false
	}
	var overlap float64
	for _, p := range predEvents {
		overlap += intersection(g, p)
	}
	return overlap/span >= s.gtc
}

func intersection(a, b dataset.Event) float64 {
	lo := a.Onset
	if b.Onset > lo {
		lo = b.Onset
	}
	hi := a.Offset
	if b.Offset < hi {
		hi = b.Offset
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// area integrates the monotone upper envelope of the operating points
// up to maxEFPR and normalises by maxEFPR, so a perfect detector
// scores 1.
func (s *PSDS) area(points []OperatingPoint) float64 {
	sorted := make([]OperatingPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EFPR < sorted[j].EFPR })

	// Staircase envelope anchored at (0, 0) and extended to maxEFPR.
	xs := []float64{0}
	ys := []float64{0}
	best := 0.0
	for _, pt := range sorted {
		if pt.EFPR > s.maxEFPR {
			break
		}
		if pt.TPR > best {
			best = pt.TPR
		}
		if pt.EFPR == xs[len(xs)-1] {
			ys[len(ys)-1] = best
			continue
		}
		xs = append(xs, pt.EFPR)
		ys = append(ys, best)
	}
	if xs[len(xs)-1] < s.maxEFPR {
		xs = append(xs, s.maxEFPR)
		ys = append(ys, best)
	}

	return integrate.Trapezoidal(xs, ys) / s.maxEFPR
}
