// Package inference provides ONNX Runtime integration for running an
// exported CRNN sound-event-detection model over feature matrices.
package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Exported model tensor names, fixed at export time.
const (
	inputName  = "input"  // [1, frames, mel bins]
	outputName = "strong" // [1, frames / pooling ratio, classes]
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Session wraps an ONNX Runtime session producing frame-level class
// scores for one clip at a time.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file.
func NewSession(modelPath string) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// Infer runs the model over one clip's feature matrix (frames x mel
// bins) and returns the strong output: one score row per pooled output
// frame, one column per event class.
func (s *Session) Infer(ctx context.Context, frames [][]float32) ([][]float32, error) {
	// Check context before expensive operation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("empty feature matrix")
	}
	bins := len(frames[0])
	flat := make([]float32, 0, len(frames)*bins)
	for i, row := range frames {
		if len(row) != bins {
			return nil, fmt.Errorf("ragged feature frame %d: %d bins, want %d", i, len(row), bins)
		}
		flat = append(flat, row...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}

	input, err := ort.NewTensor(
		ort.NewShape(1, int64(len(frames)), int64(bins)),
		flat,
	)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	// nil entries are allocated by Run
	outputs := []ort.Value{nil}

	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	strong, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	shape := strong.GetShape()
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	outFrames := int(shape[1])
	classes := int(shape[2])

	data := strong.GetData()
	if len(data) < outFrames*classes {
		return nil, fmt.Errorf("short output: %d values for shape %v", len(data), shape)
	}

	scores := make([][]float32, outFrames)
	for i := range scores {
		row := make([]float32, classes)
		copy(row, data[i*classes:(i+1)*classes])
		scores[i] = row
	}

	return scores, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
