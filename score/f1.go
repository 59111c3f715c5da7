package score

import (
	"sort"

	"github.com/truongskyo/dcase20-task4/dataset"
)

// EventF1 computes event-based macro F1: predicted events match ground
// truth events of the same file and class when the onset lies within a
// fixed collar and the offset within max(collar, rate x event
// duration). Class F1 scores are averaged over the classes observed in
// either table.
type EventF1 struct {
	collar     float64
	offsetRate float64
}

// F1Option configures an EventF1 scorer.
type F1Option func(*EventF1)

// WithCollar sets the onset matching collar in seconds (default 0.2).
func WithCollar(seconds float64) F1Option {
	return func(s *EventF1) {
		if seconds > 0 {
			s.collar = seconds
		}
	}
}

// WithOffsetCollarRate sets the offset collar as a fraction of the
// ground truth event duration (default 0.2).
func WithOffsetCollarRate(rate float64) F1Option {
	return func(s *EventF1) {
		if rate > 0 {
			s.offsetRate = rate
		}
	}
}

// NewEventF1 creates an event-based macro F1 scorer.
func NewEventF1(opts ...F1Option) *EventF1 {
	s := &EventF1{collar: 0.2, offsetRate: 0.2}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates a single-operating-point prediction set.
func (s *EventF1) Score(preds dataset.Predictions, gt *dataset.EventTable) (float64, error) {
	if preds.Multi() {
		return 0, ErrWantSinglePoint
	}
	if gt.Len() == 0 {
		return 0, ErrUndefinedScore
	}

	counts := make(map[string]*classCounts)
	get := func(label string) *classCounts {
		c, ok := counts[label]
		if !ok {
			c = &classCounts{}
			counts[label] = c
		}
		return c
	}

	// Match per file so events never pair across clips.
	for _, name := range gt.Filenames() {
		gtByClass := groupByLabel(gt.ForFile(name))
		predByClass := groupByLabel(preds.Table().ForFile(name))

		for label, gtEvents := range gtByClass {
			predEvents := predByClass[label]
			tp := s.matchEvents(predEvents, gtEvents)
			c := get(label)
			c.tp += tp
			c.fp += len(predEvents) - tp
			c.fn += len(gtEvents) - tp
		}
		// Predicted classes with no ground truth in this file are all
		// false positives.
		for label, predEvents := range predByClass {
			if _, ok := gtByClass[label]; !ok {
				get(label).fp += len(predEvents)
			}
		}
	}

	var sum float64
	for _, c := range counts {
		sum += c.f1()
	}
	return sum / float64(len(counts)), nil
}

type classCounts struct {
	tp, fp, fn int
}

func (c *classCounts) f1() float64 {
	denom := float64(2*c.tp + c.fp + c.fn)
	if denom == 0 {
		return 0
	}
	return 2 * float64(c.tp) / denom
}

// matchEvents greedily pairs predictions with ground truth events in
// onset order and returns the number of matches.
func (s *EventF1) matchEvents(pred, gt []dataset.Event) int {
	sorted := make([]dataset.Event, len(pred))
	copy(sorted, pred)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Onset < sorted[j].Onset })

	matched := make([]bool, len(gt))
	tp := 0
	for _, p := range sorted {
		for i, g := range gt {
			if matched[i] {
				continue
			}
			offsetCollar := s.collar
			if d := s.offsetRate * (g.Offset - g.Onset); d > offsetCollar {
				offsetCollar = d
			}
			if abs(p.Onset-g.Onset) <= s.collar && abs(p.Offset-g.Offset) <= offsetCollar {
				matched[i] = true
				tp++
				break
			}
		}
	}
	return tp
}

func groupByLabel(events []dataset.Event) map[string][]dataset.Event {
	out := make(map[string][]dataset.Event)
	for _, ev := range events {
		out[ev.Label] = append(out[ev.Label], ev)
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
