package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongskyo/dcase20-task4/dataset"
)

const validManifest = `model: model.onnx
epoch: 182
labels: [Speech, Dog, Cat]
pooling_time_ratio: 4
median_window: 9
frame_hop_seconds: 0.02
scaler:
  type: standard
  mean: [1.0, 2.0]
  std: [0.5, 0.5]
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, validManifest)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 182, m.Epoch)
	assert.Equal(t, []string{"Speech", "Dog", "Cat"}, m.Labels)
	assert.Equal(t, 4, m.PoolingTimeRatio)
	assert.Equal(t, 9, m.MedianWindow)
	assert.InDelta(t, 0.02, m.FrameHop, 1e-12)
	assert.Equal(t, ScalerStandard, m.Scaler.Type)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing model",
			body: "labels: [Speech]\npooling_time_ratio: 4\nframe_hop_seconds: 0.02\nscaler: {type: per_audio}\n",
			want: "missing model",
		},
		{
			name: "missing labels",
			body: "model: m.onnx\npooling_time_ratio: 4\nframe_hop_seconds: 0.02\nscaler: {type: per_audio}\n",
			want: "missing labels",
		},
		{
			name: "zero pooling",
			body: "model: m.onnx\nlabels: [Speech]\nframe_hop_seconds: 0.02\nscaler: {type: per_audio}\n",
			want: "pooling_time_ratio",
		},
		{
			name: "zero frame hop",
			body: "model: m.onnx\nlabels: [Speech]\npooling_time_ratio: 4\nscaler: {type: per_audio}\n",
			want: "frame_hop_seconds",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tc.body))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoad_UnknownScaler(t *testing.T) {
	body := "model: m.onnx\nlabels: [Speech]\npooling_time_ratio: 4\nframe_hop_seconds: 0.02\nscaler: {type: minmax}\n"
	_, err := Load(writeManifest(t, body))
	assert.True(t, errors.Is(err, ErrUnknownScaler), "got %v", err)
}

func TestModelPath_ResolvesAgainstManifestDir(t *testing.T) {
	path := writeManifest(t, validManifest)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "model.onnx"), m.ModelPath())

	m.Model = "/abs/model.onnx"
	assert.Equal(t, "/abs/model.onnx", m.ModelPath())
}

func TestNewScaler(t *testing.T) {
	m, err := Load(writeManifest(t, validManifest))
	require.NoError(t, err)

	sc, err := m.NewScaler()
	require.NoError(t, err)
	std, ok := sc.(*dataset.StandardScaler)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, std.Mean)

	m.Scaler = ScalerState{Type: ScalerPerAudio}
	sc, err = m.NewScaler()
	require.NoError(t, err)
	_, ok = sc.(dataset.PerAudioScaler)
	assert.True(t, ok)
}

func TestNewScaler_LengthMismatch(t *testing.T) {
	m, err := Load(writeManifest(t, validManifest))
	require.NoError(t, err)

	m.Scaler.Std = m.Scaler.Std[:1]
	_, err = m.NewScaler()
	assert.ErrorContains(t, err, "length mismatch")
}
