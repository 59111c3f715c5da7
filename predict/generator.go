// Package predict turns model output into prediction tables: it runs a
// sound-event-detection model over the evaluation set and decodes the
// frame scores at one detection threshold or a threshold sweep.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/truongskyo/dcase20-task4/checkpoint"
	"github.com/truongskyo/dcase20-task4/dataset"
	"github.com/truongskyo/dcase20-task4/encoder"
)

// ErrNoMedianWindow indicates no median window was supplied and the
// checkpoint manifest does not record one either.
var ErrNoMedianWindow = errors.New("predict: no median window configured or recorded in checkpoint")

// Model scores one clip's feature matrix. Implementations must be safe
// for concurrent use; inference.Pool satisfies this.
type Model interface {
	Predict(ctx context.Context, frames [][]float32) ([][]float32, error)
}

// Generator produces prediction tables from a model and a dataloader.
// The model forward pass runs once per clip no matter how many
// thresholds are decoded, so every table in a sweep is a consistent
// snapshot of the same raw output.
type Generator struct {
	model     Model
	loader    *dataset.Loader
	enc       *encoder.Encoder
	pooling   int
	medianWin int
	parallel  int
	savePath  string
	logger    *slog.Logger
}

// NewGenerator builds a generator from a model, a dataloader and the
// checkpoint manifest the model was exported with. The median window
// falls back to the manifest when no WithMedianWindow option is given;
// if the manifest records none either, that is a configuration error.
func NewGenerator(model Model, loader *dataset.Loader, man *checkpoint.Manifest, opts ...Option) (*Generator, error) {
	cfg := generatorConfig{
		parallel: runtime.NumCPU(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	medianWin := cfg.medianWin
	if medianWin == 0 {
		medianWin = man.MedianWindow
	}
	if medianWin <= 0 {
		return nil, ErrNoMedianWindow
	}

	enc, err := encoder.New(man.Labels, man.FrameHop)
	if err != nil {
		return nil, fmt.Errorf("building encoder: %w", err)
	}

	return &Generator{
		model:     model,
		loader:    loader,
		enc:       enc,
		pooling:   man.PoolingTimeRatio,
		medianWin: medianWin,
		parallel:  cfg.parallel,
		savePath:  cfg.savePath,
		logger:    cfg.logger,
	}, nil
}

// MedianWindow returns the window the generator decodes with, after
// checkpoint fallback.
func (g *Generator) MedianWindow() int {
	return g.medianWin
}

// Single decodes the evaluation set at one detection threshold and
// returns a single-operating-point prediction set.
func (g *Generator) Single(ctx context.Context, threshold float32) (dataset.Predictions, error) {
	tables, err := g.decodeAll(ctx, []float32{threshold})
	if err != nil {
		return dataset.Predictions{}, err
	}
	preds := dataset.SinglePoint(tables[0])
	g.save(preds)
	return preds, nil
}

// Sweep decodes the evaluation set once per threshold, reusing a
// single forward pass per clip, and returns a multi-operating-point
// prediction set with tables in threshold order.
func (g *Generator) Sweep(ctx context.Context, thresholds []float32) (dataset.Predictions, error) {
	if len(thresholds) == 0 {
		return dataset.Predictions{}, fmt.Errorf("predict: empty threshold sweep")
	}
	tables, err := g.decodeAll(ctx, thresholds)
	if err != nil {
		return dataset.Predictions{}, err
	}
	preds := dataset.MultiPoint(tables, thresholds)
	g.save(preds)
	return preds, nil
}

// decodeAll runs the model over every clip in loader order and decodes
// each clip's scores at every threshold. Clips are scored in parallel;
// results are merged in clip order so table contents are deterministic
// for a deterministic model.
func (g *Generator) decodeAll(ctx context.Context, thresholds []float32) ([]*dataset.EventTable, error) {
	// perClip[i][k] holds clip i's events at thresholds[k].
	perClip := make([][][]dataset.Event, g.loader.Len())

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.parallel)

	for i := 0; i < g.loader.Len(); i++ {
		grp.Go(func() error {
			clip, err := g.loader.Clip(i)
			if err != nil {
				return err
			}

			scores, err := g.model.Predict(ctx, clip.Frames)
			if err != nil {
				return fmt.Errorf("scoring %s: %w", clip.Filename, err)
			}

			decoded := make([][]dataset.Event, len(thresholds))
			for k, threshold := range thresholds {
				events, err := g.enc.DecodeStrong(clip.Filename, scores, threshold, g.medianWin, g.pooling)
				if err != nil {
					return fmt.Errorf("decoding %s: %w", clip.Filename, err)
				}
				decoded[k] = events
			}
			perClip[i] = decoded
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	tables := make([]*dataset.EventTable, len(thresholds))
	for k := range thresholds {
		var events []dataset.Event
		for i := range perClip {
			events = append(events, perClip[i][k]...)
		}
		tables[k] = dataset.NewEventTable(events)
	}
	return tables, nil
}

// save persists the prediction set when a save path is configured.
// Failure to write is reported but never invalidates the predictions.
func (g *Generator) save(preds dataset.Predictions) {
	if g.savePath == "" {
		return
	}
	for i, table := range preds.Tables() {
		path := g.savePath
		if preds.Multi() {
			path = sweepSavePath(g.savePath, preds.Thresholds()[i])
		}
		if err := table.Save(path); err != nil {
			g.logger.Warn("failed to save predictions", "path", path, "error", err)
			continue
		}
		g.logger.Info("saved predictions", "path", path, "events", table.Len())
	}
}
