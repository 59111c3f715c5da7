package predict

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongskyo/dcase20-task4/checkpoint"
	"github.com/truongskyo/dcase20-task4/dataset"
)

// identityModel echoes its input frames back as class scores and counts
// forward passes.
type identityModel struct {
	calls atomic.Int64
	err   error
}

func (m *identityModel) Predict(_ context.Context, frames [][]float32) ([][]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return frames, nil
}

func squareWaveClips() map[string][][]float32 {
	return map[string][][]float32{
		// One strong run, frames 0-1.
		"a.wav": {{0.9}, {0.9}, {0.1}, {0.1}},
		// Two runs separated by a gap.
		"b.wav": {{0.8}, {0.1}, {0.1}, {0.8}},
		// Nothing above any threshold in the ladder.
		"c.wav": {{0.05}, {0.05}, {0.05}, {0.05}},
	}
}

func testLoader(t *testing.T) *dataset.Loader {
	t.Helper()
	dir := t.TempDir()
	names := []string{"a.wav", "b.wav", "c.wav"}
	clips := squareWaveClips()
	for _, name := range names {
		base := name[:len(name)-len(filepath.Ext(name))]
		path := filepath.Join(dir, base+".feat")
		require.NoError(t, dataset.WriteFeatures(path, clips[name]))
	}
	store, err := dataset.OpenFeatureStore(dir)
	require.NoError(t, err)
	return dataset.NewLoader(store, names, nil)
}

func testManifest() *checkpoint.Manifest {
	return &checkpoint.Manifest{
		Model:            "model.onnx",
		Labels:           []string{"Speech"},
		PoolingTimeRatio: 1,
		MedianWindow:     1,
		FrameHop:         0.02,
	}
}

func TestSweepRunsModelOncePerClip(t *testing.T) {
	model := &identityModel{}
	gen, err := NewGenerator(model, testLoader(t), testManifest())
	require.NoError(t, err)

	thresholds := ThresholdLadder(5)
	preds, err := gen.Sweep(context.Background(), thresholds)
	require.NoError(t, err)

	assert.EqualValues(t, 3, model.calls.Load(), "one forward pass per clip, shared across thresholds")
	assert.True(t, preds.Multi())
	assert.Len(t, preds.Tables(), 5)
	assert.Equal(t, thresholds, preds.Thresholds())
}

func TestSweepTablesShrinkWithThreshold(t *testing.T) {
	gen, err := NewGenerator(&identityModel{}, testLoader(t), testManifest())
	require.NoError(t, err)

	preds, err := gen.Sweep(context.Background(), []float32{0.5, 0.85})
	require.NoError(t, err)

	tables := preds.Tables()
	// At 0.5: a.wav has one run, b.wav two. At 0.85: only a.wav survives.
	assert.Equal(t, 3, tables[0].Len())
	assert.Equal(t, 1, tables[1].Len())
	assert.Equal(t, []string{"a.wav"}, tables[1].Filenames())
}

func TestSingleReturnsSinglePoint(t *testing.T) {
	gen, err := NewGenerator(&identityModel{}, testLoader(t), testManifest())
	require.NoError(t, err)

	preds, err := gen.Single(context.Background(), 0.5)
	require.NoError(t, err)

	assert.False(t, preds.Multi())
	events := preds.Table().ForFile("a.wav")
	require.Len(t, events, 1)
	assert.InDelta(t, 0.0, events[0].Onset, 1e-9)
	assert.InDelta(t, 2*0.02, events[0].Offset, 1e-9)
}

func TestSweepRejectsEmptyThresholds(t *testing.T) {
	gen, err := NewGenerator(&identityModel{}, testLoader(t), testManifest())
	require.NoError(t, err)

	_, err = gen.Sweep(context.Background(), nil)
	assert.Error(t, err)
}

func TestMedianWindowFallback(t *testing.T) {
	man := testManifest()
	man.MedianWindow = 7

	gen, err := NewGenerator(&identityModel{}, testLoader(t), man)
	require.NoError(t, err)
	assert.Equal(t, 7, gen.MedianWindow())

	gen, err = NewGenerator(&identityModel{}, testLoader(t), man, WithMedianWindow(3))
	require.NoError(t, err)
	assert.Equal(t, 3, gen.MedianWindow())

	man.MedianWindow = 0
	_, err = NewGenerator(&identityModel{}, testLoader(t), man)
	assert.ErrorIs(t, err, ErrNoMedianWindow)
}

func TestModelErrorCarriesFilename(t *testing.T) {
	model := &identityModel{err: errors.New("session gone")}
	gen, err := NewGenerator(model, testLoader(t), testManifest(), WithParallelism(1))
	require.NoError(t, err)

	_, err = gen.Single(context.Background(), 0.5)
	require.Error(t, err)
	assert.ErrorContains(t, err, ".wav")
}

func TestSavePath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "predictions.tsv")

	gen, err := NewGenerator(&identityModel{}, testLoader(t), testManifest(),
		WithSavePath(base))
	require.NoError(t, err)

	_, err = gen.Single(context.Background(), 0.5)
	require.NoError(t, err)
	assert.FileExists(t, base)

	_, err = gen.Sweep(context.Background(), []float32{0.3, 0.7})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "predictions_th0.300.tsv"))
	assert.FileExists(t, filepath.Join(dir, "predictions_th0.700.tsv"))
}

func TestSaveFailureIsNonFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-dir", "predictions.tsv")

	gen, err := NewGenerator(&identityModel{}, testLoader(t), testManifest(),
		WithSavePath(missing))
	require.NoError(t, err)

	preds, err := gen.Single(context.Background(), 0.5)
	require.NoError(t, err)
	assert.NotNil(t, preds.Table())
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}
