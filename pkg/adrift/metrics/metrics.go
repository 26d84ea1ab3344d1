// Package metrics exposes pipeline activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/himanishpuri/adrift/pkg/models"
)

const namespace = "adrift"

// Observer records pipeline events. It satisfies adrift.Observer.
type Observer struct {
	boundaries    *prometheus.CounterVec
	classified    *prometheus.CounterVec
	fingerprinted *prometheus.CounterVec
	duplicates    *prometheus.CounterVec
	reclassified  prometheus.Counter
	failures      prometheus.Counter
	videos        prometheus.Counter
	position      prometheus.Gauge
	durations     *prometheus.HistogramVec
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		boundaries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundaries_total",
			Help:      "Boundary events parsed from analysis passes, by kind.",
		}, []string{"kind"}),
		classified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_classified_total",
			Help:      "Candidate segments matched against the length tables, by type.",
		}, []string{"type"}),
		fingerprinted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fingerprints_total",
			Help:      "Segments fingerprinted, by detected type.",
		}, []string{"type"}),
		duplicates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Segments matched to an existing store record, by resolved type.",
		}, []string{"type"}),
		reclassified: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclassified_total",
			Help:      "Segments whose stored type differed from the detected type.",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_failures_total",
			Help:      "Segments dropped because sampling failed.",
		}),
		videos: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_processed_total",
			Help:      "Videos that completed processing.",
		}),
		position: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_position_seconds",
			Help:      "Position of the running analysis pass within the current video.",
		}),
		durations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_duration_seconds",
			Help:      "Duration of reported segments.",
			Buckets:   []float64{3, 5, 10, 15, 20, 30, 45, 60, 90},
		}, []string{"type"}),
	}
}

func (o *Observer) OnProgress(elapsed time.Duration) {
	o.position.Set(elapsed.Seconds())
}

func (o *Observer) OnBoundary(ev models.BoundaryEvent) {
	o.boundaries.WithLabelValues(ev.Kind.String()).Inc()
}

func (o *Observer) OnSegmentClassified(seg models.Segment) {
	o.classified.WithLabelValues(string(seg.DetectedType)).Inc()
}

func (o *Observer) OnFingerprint(seg models.Segment) {
	o.fingerprinted.WithLabelValues(string(seg.DetectedType)).Inc()
}

// RecordResult accounts for the outcome of one ProcessVideo call.
func (o *Observer) RecordResult(res *models.VideoResult) {
	if res == nil {
		return
	}
	o.videos.Inc()
	o.failures.Add(float64(len(res.Failed)))
	for _, seg := range res.Segments {
		o.durations.WithLabelValues(string(seg.Type)).Observe(seg.Duration)
		if seg.IsDuplicate() {
			o.duplicates.WithLabelValues(string(seg.Type)).Inc()
		}
		if seg.Reclassified() {
			o.reclassified.Inc()
		}
	}
}
