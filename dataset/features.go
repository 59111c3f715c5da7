package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Feature files hold one pre-computed log-mel feature matrix per audio
// clip: a small header (magic, frame count, bin count) followed by
// row-major little-endian float32 data.
const (
	featureMagic = "SEDF"
	featureExt   = ".feat"

	// maxFeatureDim guards against reading a corrupt header as a
	// multi-gigabyte allocation.
	maxFeatureDim = 1 << 20
)

// Clip is one evaluation example: the clip's filename as it appears in
// the ground truth, plus its feature matrix (frames x mel bins).
type Clip struct {
	Filename string
	Frames   [][]float32
}

// FeatureStore reads per-clip feature matrices from a directory. The
// feature file for "a.wav" is "a.feat".
type FeatureStore struct {
	dir string
}

// OpenFeatureStore validates that dir exists and returns a store over
// it.
func OpenFeatureStore(dir string) (*FeatureStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("feature dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("feature dir: %s is not a directory", dir)
	}
	return &FeatureStore{dir: dir}, nil
}

func (s *FeatureStore) path(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(s.dir, base+featureExt)
}

// Has reports whether a feature file exists for the named clip.
func (s *FeatureStore) Has(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Load reads the feature matrix for the named clip.
func (s *FeatureStore) Load(name string) (*Clip, error) {
	frames, err := ReadFeatures(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("features for %s: %w", name, err)
	}
	return &Clip{Filename: name, Frames: frames}, nil
}

// ReadFeatures decodes one feature file.
func ReadFeatures(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)

	magic := make([]byte, 4)
	if _, err := r.Read(magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != featureMagic {
		return nil, fmt.Errorf("bad magic %q", magic)
	}

	var rows, cols uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, fmt.Errorf("read frame count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, fmt.Errorf("read bin count: %w", err)
	}
	if rows > maxFeatureDim || cols > maxFeatureDim {
		return nil, fmt.Errorf("implausible shape %dx%d", rows, cols)
	}

	flat := make([]float32, int(rows)*int(cols))
	if err := binary.Read(r, binary.LittleEndian, flat); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	frames := make([][]float32, rows)
	for i := range frames {
		frames[i] = flat[i*int(cols) : (i+1)*int(cols)]
	}
	return frames, nil
}

// WriteFeatures encodes a feature matrix to path. Every row must have
// the same length.
func WriteFeatures(path string, frames [][]float32) error {
	cols := 0
	if len(frames) > 0 {
		cols = len(frames[0])
	}
	for i, row := range frames {
		if len(row) != cols {
			return fmt.Errorf("ragged frame %d: %d bins, want %d", i, len(row), cols)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(featureMagic); err != nil {
		_ = f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(frames))); err != nil {
		_ = f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(cols)); err != nil {
		_ = f.Close()
		return err
	}
	for _, row := range frames {
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			_ = f.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
