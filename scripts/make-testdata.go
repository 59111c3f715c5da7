//go:build ignore

// Generate a synthetic evaluation fixture: feature files, ground truth
// and duration tables, and a checkpoint manifest without a model.
// Usage: go run ./scripts/make-testdata.go
package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/truongskyo/dcase20-task4/dataset"
)

const (
	outDir   = "testdata"
	numClips = 20
	frames   = 500 // 10 s of audio at a 20 ms hop
	melBins  = 64
	frameHop = 0.02
)

var labels = []string{"Speech", "Dog", "Dishes"}

func main() {
	featureDir := filepath.Join(outDir, "features")
	if err := os.MkdirAll(featureDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", featureDir, err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(1))
	var events []dataset.Event
	durations := make(dataset.Durations, numClips)

	for i := 0; i < numClips; i++ {
		name := fmt.Sprintf("synthetic_%02d.wav", i)
		durations[name] = frames * frameHop

		clipEvents := randomEvents(rng, name)
		events = append(events, clipEvents...)

		path := filepath.Join(featureDir, fmt.Sprintf("synthetic_%02d.feat", i))
		if err := dataset.WriteFeatures(path, renderFeatures(rng, clipEvents)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("  -> %s (%d events)\n", path, len(clipEvents))
	}

	gtPath := filepath.Join(outDir, "validation.tsv")
	if err := dataset.NewEventTable(events).Save(gtPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", gtPath, err)
		os.Exit(1)
	}

	durPath := filepath.Join(outDir, "durations.tsv")
	if err := durations.Save(durPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", durPath, err)
		os.Exit(1)
	}

	manifestPath := filepath.Join(outDir, "manifest.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifestYAML()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", manifestPath, err)
		os.Exit(1)
	}

	fmt.Printf("\nDone! Fixture written to %s/ (%d clips, %d events).\n", outDir, numClips, len(events))
	fmt.Println("Export a model to testdata/model.onnx to run the smoke evaluation.")
}

// randomEvents places one to three non-overlapping events in a clip.
func randomEvents(rng *rand.Rand, name string) []dataset.Event {
	clipLen := frames * frameHop
	n := 1 + rng.Intn(3)

	events := make([]dataset.Event, 0, n)
	cursor := 0.0
	for i := 0; i < n; i++ {
		onset := cursor + rng.Float64()*2
		length := 0.5 + rng.Float64()*2
		if onset+length > clipLen {
			break
		}
		events = append(events, dataset.Event{
			Filename: name,
			Label:    labels[rng.Intn(len(labels))],
			Onset:    onset,
			Offset:   onset + length,
		})
		cursor = onset + length
	}
	return events
}

// renderFeatures draws background noise and raises the band energy over
// each event's span, so the fixture looks like log-mel features rather
// than white noise.
func renderFeatures(rng *rand.Rand, events []dataset.Event) [][]float32 {
	out := make([][]float32, frames)
	for t := range out {
		row := make([]float32, melBins)
		for j := range row {
			row[j] = float32(rng.NormFloat64() * 0.1)
		}
		out[t] = row
	}
	for _, ev := range events {
		lo := int(math.Floor(ev.Onset / frameHop))
		hi := int(math.Ceil(ev.Offset / frameHop))
		for t := lo; t < hi && t < frames; t++ {
			for j := 0; j < melBins/2; j++ {
				out[t][j] += 1.0
			}
		}
	}
	return out
}

func manifestYAML() string {
	return `model: model.onnx
epoch: 1
labels: [Speech, Dog, Dishes]
pooling_time_ratio: 4
median_window: 9
frame_hop_seconds: 0.02
scaler:
  type: per_audio
`
}
