// Command sed-eval evaluates an exported sound-event-detection model
// against a ground truth table and reports event-based macro F1 and
// PSDS with bootstrap confidence intervals.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	sedeval "github.com/truongskyo/dcase20-task4"
	"github.com/truongskyo/dcase20-task4/checkpoint"
	"github.com/truongskyo/dcase20-task4/dataset"
	"github.com/truongskyo/dcase20-task4/inference"
	"github.com/truongskyo/dcase20-task4/internal/config"
	"github.com/truongskyo/dcase20-task4/predict"
	"github.com/truongskyo/dcase20-task4/report"
	"github.com/truongskyo/dcase20-task4/score"
)

func main() {
	var (
		manifestPath = flag.String("checkpoint", "", "Path to checkpoint manifest YAML (required)")
		gtPath       = flag.String("groundtruth", "", "Path to ground truth TSV (required)")
		featureDir   = flag.String("features", "", "Directory of pre-computed feature files (required)")
		durationsTSV = flag.String("durations", "", "Path to durations TSV (derived from features if absent)")
		medianWin    = flag.Int("median-window", 0, "Median window in output frames (0: use checkpoint value)")
		savePreds    = flag.String("save-predictions", "", "Optional TSV path for generated predictions")
		iterations   = flag.Int("iterations", 0, "Bootstrap iterations (0: use config)")
		seed         = flag.Int64("seed", 0, "Fixed random seed (0: fresh seed per run)")
		nbFiles      = flag.Int("nb-files", 0, "Evaluate only the first N files; useful for smoke runs")
		reportPath   = flag.String("report", "", "Optional HTML report output path")
	)
	flag.Parse()

	if *manifestPath == "" || *gtPath == "" || *featureDir == "" {
		fmt.Fprintln(os.Stderr, "error: -checkpoint, -groundtruth and -features are required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	if err := run(context.Background(), cfg, logger, runConfig{
		manifestPath: *manifestPath,
		gtPath:       *gtPath,
		featureDir:   *featureDir,
		durationsTSV: *durationsTSV,
		medianWin:    *medianWin,
		savePreds:    *savePreds,
		iterations:   *iterations,
		seed:         *seed,
		nbFiles:      *nbFiles,
		reportPath:   *reportPath,
		runID:        runID,
	}); err != nil {
		logger.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

type runConfig struct {
	manifestPath string
	gtPath       string
	featureDir   string
	durationsTSV string
	medianWin    int
	savePreds    string
	iterations   int
	seed         int64
	nbFiles      int
	reportPath   string
	runID        string
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, rc runConfig) error {
	man, err := checkpoint.Load(rc.manifestPath)
	if err != nil {
		return err
	}
	logger.Info("checkpoint loaded", "model", man.ModelPath(), "epoch", man.Epoch, "classes", len(man.Labels))

	gt, err := dataset.LoadEvents(rc.gtPath)
	if err != nil {
		return err
	}

	store, err := dataset.OpenFeatureStore(rc.featureDir)
	if err != nil {
		return err
	}

	// Restrict evaluation to ground truth files with features on disk.
	names := make([]string, 0, len(gt.Filenames()))
	for _, name := range gt.Filenames() {
		if store.Has(name) {
			names = append(names, name)
		}
	}
	if dropped := len(gt.Filenames()) - len(names); dropped > 0 {
		logger.Warn("files without features skipped", "count", dropped)
	}
	if rc.nbFiles > 0 && rc.nbFiles < len(names) {
		names = names[:rc.nbFiles]
	}
	if len(names) == 0 {
		return fmt.Errorf("no evaluable files: ground truth and feature store share no filenames")
	}
	keep := make(map[string]struct{}, len(names))
	for _, name := range names {
		keep[name] = struct{}{}
	}
	gt = gt.FilterFiles(keep)
	logger.Info("evaluation set ready", "files", len(names), "events", gt.Len())

	durations, err := loadOrDeriveDurations(rc, store, names, man.FrameHop, logger)
	if err != nil {
		return err
	}

	scaler, err := man.NewScaler()
	if err != nil {
		return err
	}
	loader := dataset.NewLoader(store, names, scaler)

	pool, err := inference.NewPool(man.ModelPath(), cfg.Sessions)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	gen, err := predict.NewGenerator(pool, loader, man,
		predict.WithMedianWindow(rc.medianWin),
		predict.WithParallelism(cfg.Sessions),
		predict.WithSavePath(rc.savePreds),
		predict.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	logger.Info("prediction pipeline ready", "median_window", gen.MedianWindow(), "pooling", man.PoolingTimeRatio)

	bootstrapOpts := []sedeval.Option{
		sedeval.WithIterations(cfg.Iterations),
		sedeval.WithFraction(cfg.Fraction),
		sedeval.WithConfidence(cfg.Confidence),
		sedeval.WithWorkers(cfg.Workers),
		sedeval.WithLogger(logger),
	}
	if rc.iterations > 0 {
		bootstrapOpts = append(bootstrapOpts, sedeval.WithIterations(rc.iterations))
	}
	if rc.seed != 0 {
		bootstrapOpts = append(bootstrapOpts, sedeval.WithSeed(rc.seed))
	}

	// Single operating point: event-based macro F1.
	single, err := gen.Single(ctx, float32(cfg.SingleThreshold))
	if err != nil {
		return err
	}
	f1, err := sedeval.Bootstrap(ctx, single, gt, score.NewEventF1(score.WithCollar(cfg.Collar)), bootstrapOpts...)
	if err != nil {
		return err
	}
	logger.Info("event-based macro F1", "mean", f1.Mean, "lower", f1.Lower, "upper", f1.Upper)

	// Threshold sweep: PSDS over operating points.
	sweep, err := gen.Sweep(ctx, predict.ThresholdLadder(cfg.Thresholds))
	if err != nil {
		return err
	}
	psdsScorer := score.NewPSDS(durations, score.WithMaxEFPR(cfg.MaxEFPR))
	psds, err := sedeval.Bootstrap(ctx, sweep, gt, psdsScorer, bootstrapOpts...)
	if err != nil {
		return err
	}
	logger.Info("PSDS", "mean", psds.Mean, "lower", psds.Lower, "upper", psds.Upper)

	fmt.Printf("Event-based macro F1: %s\n", f1)
	fmt.Printf("PSDS:                 %s\n", psds)

	if rc.reportPath != "" {
		points, err := psdsScorer.OperatingPoints(sweep, gt)
		if err != nil {
			return err
		}
		if err := report.Render(rc.reportPath, report.Run{
			ID:     rc.runID,
			F1:     f1,
			PSDS:   psds,
			Points: points,
		}); err != nil {
			return err
		}
		logger.Info("report written", "path", rc.reportPath)
	}

	return nil
}

// loadOrDeriveDurations loads the duration table, or derives one from
// the feature store and persists it beside the ground truth the way a
// first evaluation run would.
func loadOrDeriveDurations(rc runConfig, store *dataset.FeatureStore, names []string, frameHop float64, logger *slog.Logger) (dataset.Durations, error) {
	path := rc.durationsTSV
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return dataset.LoadDurations(path)
		}
	}

	durations, err := dataset.DurationsFromStore(store, names, frameHop)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := durations.Save(path); err != nil {
			logger.Warn("failed to save derived durations", "path", path, "error", err)
		}
	}
	logger.Info("durations derived from feature store", "files", len(durations))
	return durations, nil
}
