package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/adrift/pkg/models"
)

func TestObserverEvents(t *testing.T) {
	o := New(prometheus.NewRegistry())

	o.OnBoundary(models.BoundaryEvent{Kind: models.BoundaryBlackFrame})
	o.OnBoundary(models.BoundaryEvent{Kind: models.BoundaryBlackFrame})
	o.OnBoundary(models.BoundaryEvent{Kind: models.BoundarySceneChange})
	o.OnSegmentClassified(models.Segment{DetectedType: models.SegmentCommercial})
	o.OnFingerprint(models.Segment{DetectedType: models.SegmentCommercial})
	o.OnProgress(90 * time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.boundaries.WithLabelValues(models.BoundaryBlackFrame.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.boundaries.WithLabelValues(models.BoundarySceneChange.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.classified.WithLabelValues("commercial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.fingerprinted.WithLabelValues("commercial")))
	assert.Equal(t, 90.0, testutil.ToFloat64(o.position))
}

func TestRecordResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(reg)

	id := int64(3)
	o.RecordResult(&models.VideoResult{
		Segments: []models.Segment{
			{Type: models.SegmentCommercial, DetectedType: models.SegmentCommercial, Duration: 30},
			{Type: models.SegmentStationID, DetectedType: models.SegmentCommercial, Duration: 15, DuplicateOf: &id},
		},
		Failed: []models.SegmentFailure{{StartTime: 1, EndTime: 16}},
	})
	o.RecordResult(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(o.videos))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.failures))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.duplicates.WithLabelValues("station_id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.reclassified))

	families, err := reg.Gather()
	require.NoError(t, err)

	var hist *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "adrift_segment_duration_seconds" {
			hist = mf
		}
	}
	require.NotNil(t, hist)
	var samples uint64
	for _, m := range hist.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(2), samples)
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
