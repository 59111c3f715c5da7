package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongskyo/dcase20-task4/dataset"
)

func multiPoint(thresholds []float32, tables ...*dataset.EventTable) dataset.Predictions {
	return dataset.MultiPoint(tables, thresholds)
}

func TestPSDS_RejectsSinglePoint(t *testing.T) {
	gt := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})

	_, err := NewPSDS(dataset.Durations{"a.wav": 10}).Score(singlePoint(), gt)
	assert.ErrorIs(t, err, ErrWantMultiPoint)
}

func TestPSDS_EmptyGroundTruth(t *testing.T) {
	preds := multiPoint([]float32{0.5}, dataset.NewEventTable(nil))

	_, err := NewPSDS(dataset.Durations{}).Score(preds, dataset.NewEventTable(nil))
	assert.ErrorIs(t, err, ErrUndefinedScore)
}

func TestPSDS_MissingDuration(t *testing.T) {
	gt := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})
	preds := multiPoint([]float32{0.5}, dataset.NewEventTable(nil))

	_, err := NewPSDS(dataset.Durations{}).Score(preds, gt)
	assert.ErrorContains(t, err, "a.wav")
}

func TestPSDS_PerfectDetectorScoresOne(t *testing.T) {
	gt := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})
	perfect := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})

	preds := multiPoint([]float32{0.3, 0.7}, perfect, perfect)
	got, err := NewPSDS(dataset.Durations{"a.wav": 10}).Score(preds, gt)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestPSDS_SilentDetectorScoresZero(t *testing.T) {
	gt := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})
	empty := dataset.NewEventTable(nil)

	preds := multiPoint([]float32{0.5}, empty)
	got, err := NewPSDS(dataset.Durations{"a.wav": 10}).Score(preds, gt)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestPSDS_MacroTPRAveragesClasses(t *testing.T) {
	gt := dataset.NewEventTable([]dataset.Event{
		{Filename: "a.wav", Label: "Speech", Onset: 1, Offset: 3},
		{Filename: "a.wav", Label: "Dog", Onset: 5, Offset: 6},
	})
	// Speech fully covered, Dog never predicted.
	half := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})

	preds := multiPoint([]float32{0.5}, half)
	got, err := NewPSDS(dataset.Durations{"a.wav": 10}).Score(preds, gt)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)
}

func TestPSDS_OperatingPoints(t *testing.T) {
	gt := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})

	withFalsePositive := dataset.NewEventTable([]dataset.Event{
		speechEvent(1, 3),
		speechEvent(10, 11),
	})
	perfect := dataset.NewEventTable([]dataset.Event{speechEvent(1, 3)})

	// One hour of audio makes eFPR equal the raw false positive count.
	scorer := NewPSDS(dataset.Durations{"a.wav": 3600})
	preds := multiPoint([]float32{0.3, 0.7}, withFalsePositive, perfect)

	points, err := scorer.OperatingPoints(preds, gt)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, float32(0.3), points[0].Threshold)
	assert.Equal(t, 1.0, points[0].TPR)
	assert.InDelta(t, 1.0, points[0].EFPR, 1e-12)

	assert.Equal(t, float32(0.7), points[1].Threshold)
	assert.Equal(t, 1.0, points[1].TPR)
	assert.Equal(t, 0.0, points[1].EFPR)
}

func TestPSDS_IntersectionCriteria(t *testing.T) {
	gt := dataset.NewEventTable([]dataset.Event{speechEvent(0, 10)})
	scorer := NewPSDS(dataset.Durations{"a.wav": 3600}, WithDTC(0.5), WithGTC(0.5))

	// Covers 6 of 10 seconds of the ground truth, and the prediction
	// lies entirely inside it. Valid detection, ground truth detected.
	covering := dataset.NewEventTable([]dataset.Event{speechEvent(0, 6)})
	points, err := scorer.OperatingPoints(multiPoint([]float32{0.5}, covering), gt)
	require.NoError(t, err)
	assert.Equal(t, 1.0, points[0].TPR)
	assert.Equal(t, 0.0, points[0].EFPR)

	// Only 2 of 10 seconds covered. The prediction still intersects
	// enough of the ground truth to be valid, but the event is missed.
	grazing := dataset.NewEventTable([]dataset.Event{speechEvent(8, 12)})
	points, err = scorer.OperatingPoints(multiPoint([]float32{0.5}, grazing), gt)
	require.NoError(t, err)
	assert.Equal(t, 0.0, points[0].TPR)
	assert.Equal(t, 0.0, points[0].EFPR)

	// Barely touches the ground truth. Not a valid detection, so it
	// counts as a false positive, and the event stays missed.
	missing := dataset.NewEventTable([]dataset.Event{speechEvent(9.5, 14)})
	points, err = scorer.OperatingPoints(multiPoint([]float32{0.5}, missing), gt)
	require.NoError(t, err)
	assert.Equal(t, 0.0, points[0].TPR)
	assert.InDelta(t, 1.0, points[0].EFPR, 1e-12)
}
