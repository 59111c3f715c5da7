// Package checkpoint loads the evaluation manifest written next to an
// exported model: the model file to run, the label vocabulary, the
// temporal pooling ratio, the median window chosen after training, and
// the feature scaler state.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/truongskyo/dcase20-task4/dataset"
)

// Sentinel errors for conditions callers may need to handle
// differently.
var (
	// ErrManifestNotFound indicates the manifest file does not exist.
	ErrManifestNotFound = errors.New("checkpoint: manifest not found")

	// ErrUnknownScaler indicates the manifest names a scaler type this
	// build does not implement.
	ErrUnknownScaler = errors.New("checkpoint: unknown scaler type")
)

// Scaler type tags accepted in a manifest.
const (
	ScalerStandard = "standard"
	ScalerPerAudio = "per_audio"
)

// ScalerState is the persisted scaler sub-state: a type tag plus the
// statistics the tagged type needs.
type ScalerState struct {
	Type string    `yaml:"type"`
	Mean []float32 `yaml:"mean,omitempty"`
	Std  []float32 `yaml:"std,omitempty"`
}

// Manifest describes an exported model checkpoint.
type Manifest struct {
	// Model is the ONNX model file, relative to the manifest unless
	// absolute.
	Model string `yaml:"model"`

	// Epoch the checkpoint was taken at. Informational.
	Epoch int `yaml:"epoch"`

	// Labels is the event vocabulary, indexed like the model's class
	// axis.
	Labels []string `yaml:"labels"`

	// PoolingTimeRatio is the temporal downsampling between feature
	// frames and model output frames.
	PoolingTimeRatio int `yaml:"pooling_time_ratio"`

	// MedianWindow is the post-processing window (in output frames)
	// selected after training. Zero means none was recorded.
	MedianWindow int `yaml:"median_window"`

	// FrameHop is the duration of one feature frame in seconds.
	FrameHop float64 `yaml:"frame_hop_seconds"`

	Scaler ScalerState `yaml:"scaler"`

	dir string
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.dir = filepath.Dir(path)

	if m.Model == "" {
		return nil, fmt.Errorf("manifest %s: missing model path", path)
	}
	if len(m.Labels) == 0 {
		return nil, fmt.Errorf("manifest %s: missing labels", path)
	}
	if m.PoolingTimeRatio <= 0 {
		return nil, fmt.Errorf("manifest %s: pooling_time_ratio must be positive", path)
	}
	if m.FrameHop <= 0 {
		return nil, fmt.Errorf("manifest %s: frame_hop_seconds must be positive", path)
	}
	switch m.Scaler.Type {
	case ScalerStandard, ScalerPerAudio:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScaler, m.Scaler.Type)
	}

	return &m, nil
}

// ModelPath returns the model file path, resolved against the manifest
// location.
func (m *Manifest) ModelPath() string {
	if filepath.IsAbs(m.Model) || m.dir == "" {
		return m.Model
	}
	return filepath.Join(m.dir, m.Model)
}

// NewScaler builds the feature scaler the manifest describes.
func (m *Manifest) NewScaler() (dataset.Scaler, error) {
	switch m.Scaler.Type {
	case ScalerStandard:
		if len(m.Scaler.Mean) == 0 || len(m.Scaler.Mean) != len(m.Scaler.Std) {
			return nil, fmt.Errorf("standard scaler state: mean/std length mismatch (%d vs %d)",
				len(m.Scaler.Mean), len(m.Scaler.Std))
		}
		return &dataset.StandardScaler{Mean: m.Scaler.Mean, Std: m.Scaler.Std}, nil
	case ScalerPerAudio:
		return dataset.PerAudioScaler{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScaler, m.Scaler.Type)
	}
}
