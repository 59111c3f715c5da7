// Package encoder converts frame-level class activations into discrete
// sound event intervals. It is the decoding half of the many-hot label
// encoding used during training.
package encoder

import (
	"fmt"

	"github.com/truongskyo/dcase20-task4/dataset"
)

// Encoder decodes model output frames into labelled time intervals.
type Encoder struct {
	labels   []string
	frameHop float64 // seconds per feature frame, before pooling
}

// New creates an encoder over the given vocabulary. frameHop is the
// duration of one feature frame in seconds.
func New(labels []string, frameHop float64) (*Encoder, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("encoder: empty label vocabulary")
	}
	if frameHop <= 0 {
		return nil, fmt.Errorf("encoder: frame hop must be positive, got %v", frameHop)
	}
	return &Encoder{labels: labels, frameHop: frameHop}, nil
}

// Labels returns the vocabulary, indexed like the model's class axis.
func (e *Encoder) Labels() []string {
	return e.labels
}

// DecodeStrong thresholds the score matrix (output frames x classes),
// median-filters each class track, and emits one event per contiguous
// active run. poolingRatio converts output frames back to feature
// frames; medianWin is in output frames and is forced odd (a window
// below 2 disables filtering).
func (e *Encoder) DecodeStrong(filename string, scores [][]float32, threshold float32, medianWin, poolingRatio int) ([]dataset.Event, error) {
	if poolingRatio <= 0 {
		return nil, fmt.Errorf("encoder: pooling ratio must be positive, got %d", poolingRatio)
	}
	for i, row := range scores {
		if len(row) != len(e.labels) {
			return nil, fmt.Errorf("encoder: frame %d has %d classes, vocabulary has %d", i, len(row), len(e.labels))
		}
	}

	secondsPerFrame := e.frameHop * float64(poolingRatio)
	var events []dataset.Event

	active := make([]bool, len(scores))
	for c, label := range e.labels {
		for t := range scores {
			active[t] = scores[t][c] > threshold
		}
		filtered := medianFilter(active, medianWin)

		start := -1
		for t := 0; t <= len(filtered); t++ {
			on := t < len(filtered) && filtered[t]
			switch {
			case on && start < 0:
				start = t
			case !on && start >= 0:
				events = append(events, dataset.Event{
					Filename: filename,
					Label:    label,
					Onset:    float64(start) * secondsPerFrame,
					Offset:   float64(t) * secondsPerFrame,
				})
				start = -1
			}
		}
	}

	return events, nil
}

// medianFilter applies a sliding-window majority vote to a binary
// track. Even window sizes are widened by one to stay symmetric.
func medianFilter(track []bool, win int) []bool {
	if win < 2 || len(track) == 0 {
		out := make([]bool, len(track))
		copy(out, track)
		return out
	}
	if win%2 == 0 {
		win++
	}
	half := win / 2

	out := make([]bool, len(track))
	for t := range track {
		lo := t - half
		if lo < 0 {
			lo = 0
		}
		hi := t + half + 1
		if hi > len(track) {
			hi = len(track)
		}

		on := 0
		for i := lo; i < hi; i++ {
			if track[i] {
				on++
			}
		}
		out[t] = 2*on > hi-lo
	}
	return out
}
