package dataset

import "math"

// Scaler normalises a feature matrix before inference. Transform must
// not modify its input; all scalers return a fresh matrix.
type Scaler interface {
	Transform(frames [][]float32) [][]float32
}

// StandardScaler applies the per-bin mean/std recorded at training
// time. Mean and Std are indexed by mel bin.
type StandardScaler struct {
	Mean []float32
	Std  []float32
}

// Transform returns (x - mean) / std per bin. Bins beyond the recorded
// statistics pass through unchanged.
func (s *StandardScaler) Transform(frames [][]float32) [][]float32 {
	out := make([][]float32, len(frames))
	for i, row := range frames {
		scaled := make([]float32, len(row))
		for j, v := range row {
			if j < len(s.Mean) && j < len(s.Std) && s.Std[j] != 0 {
				scaled[j] = (v - s.Mean[j]) / s.Std[j]
			} else {
				scaled[j] = v
			}
		}
		out[i] = scaled
	}
	return out
}

// PerAudioScaler normalises each clip by its own per-bin statistics,
// computed over the clip's frames.
type PerAudioScaler struct{}

// Transform standardises each bin by the clip-local mean and standard
// deviation.
func (PerAudioScaler) Transform(frames [][]float32) [][]float32 {
	if len(frames) == 0 {
		return nil
	}
	bins := len(frames[0])
	mean := make([]float64, bins)
	for _, row := range frames {
		for j, v := range row {
			mean[j] += float64(v)
		}
	}
	n := float64(len(frames))
	for j := range mean {
		mean[j] /= n
	}

	variance := make([]float64, bins)
	for _, row := range frames {
		for j, v := range row {
			d := float64(v) - mean[j]
			variance[j] += d * d
		}
	}

	out := make([][]float32, len(frames))
	for i, row := range frames {
		scaled := make([]float32, len(row))
		for j, v := range row {
			std := math.Sqrt(variance[j] / n)
			if std == 0 {
				scaled[j] = float32(float64(v) - mean[j])
			} else {
				scaled[j] = float32((float64(v) - mean[j]) / std)
			}
		}
		out[i] = scaled
	}
	return out
}
