// Command sed-predict runs the prediction pipeline only: it scores the
// evaluation set with an exported model and writes the decoded event
// tables to disk, without bootstrapping any metric.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/truongskyo/dcase20-task4/checkpoint"
	"github.com/truongskyo/dcase20-task4/dataset"
	"github.com/truongskyo/dcase20-task4/inference"
	"github.com/truongskyo/dcase20-task4/predict"
)

func main() {
	var (
		manifestPath = flag.String("checkpoint", "", "Path to checkpoint manifest YAML (required)")
		gtPath       = flag.String("groundtruth", "", "Path to ground truth TSV (required)")
		featureDir   = flag.String("features", "", "Directory of pre-computed feature files (required)")
		outPath      = flag.String("out", "predictions.tsv", "Output TSV path")
		threshold    = flag.Float64("threshold", 0.5, "Detection threshold")
		thresholds   = flag.String("thresholds", "", "Comma-separated threshold sweep (overrides -threshold)")
		medianWin    = flag.Int("median-window", 0, "Median window in output frames (0: use checkpoint value)")
		sessions     = flag.Int("sessions", runtime.NumCPU(), "ONNX session pool size")
	)
	flag.Parse()

	if *manifestPath == "" || *gtPath == "" || *featureDir == "" {
		fmt.Fprintln(os.Stderr, "error: -checkpoint, -groundtruth and -features are required")
		flag.Usage()
		os.Exit(1)
	}

	man, err := checkpoint.Load(*manifestPath)
	if err != nil {
		fatal(err)
	}

	gt, err := dataset.LoadEvents(*gtPath)
	if err != nil {
		fatal(err)
	}

	store, err := dataset.OpenFeatureStore(*featureDir)
	if err != nil {
		fatal(err)
	}

	var names []string
	for _, name := range gt.Filenames() {
		if store.Has(name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		fatal(fmt.Errorf("no evaluable files in %s", *featureDir))
	}

	scaler, err := man.NewScaler()
	if err != nil {
		fatal(err)
	}

	pool, err := inference.NewPool(man.ModelPath(), *sessions)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = pool.Close() }()

	gen, err := predict.NewGenerator(pool, dataset.NewLoader(store, names, scaler), man,
		predict.WithMedianWindow(*medianWin),
		predict.WithParallelism(*sessions),
		predict.WithSavePath(*outPath),
	)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	if *thresholds != "" {
		sweep, err := parseThresholds(*thresholds)
		if err != nil {
			fatal(err)
		}
		preds, err := gen.Sweep(ctx, sweep)
		if err != nil {
			fatal(err)
		}
		slog.Info("sweep predictions written", "thresholds", len(preds.Tables()), "out", *outPath)
		return
	}

	preds, err := gen.Single(ctx, float32(*threshold))
	if err != nil {
		fatal(err)
	}
	slog.Info("predictions written", "events", preds.Table().Len(), "out", *outPath)
}

func parseThresholds(s string) ([]float32, error) {
	var out []float32
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("bad threshold %q: %w", part, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
