package adrift

import (
	"time"

	"github.com/himanishpuri/adrift/pkg/models"
)

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnProgress(time.Duration)           {}
func (NopObserver) OnBoundary(models.BoundaryEvent)    {}
func (NopObserver) OnSegmentClassified(models.Segment) {}
func (NopObserver) OnFingerprint(models.Segment)       {}

// LogObserver writes pipeline events to a Logger at debug level.
type LogObserver struct {
	Log Logger
}

func (o LogObserver) OnProgress(elapsed time.Duration) {}

func (o LogObserver) OnBoundary(ev models.BoundaryEvent) {
	o.Log.Debugf("%s boundary at %.3fs-%.3fs", ev.Kind, ev.Start, ev.End)
}

func (o LogObserver) OnSegmentClassified(seg models.Segment) {
	o.Log.Debugf("classified %s %.3fs-%.3fs (%.3fs)", seg.DetectedType, seg.StartTime, seg.EndTime, seg.Duration)
}

func (o LogObserver) OnFingerprint(seg models.Segment) {
	if seg.Fingerprint == nil {
		return
	}
	o.Log.Debugf("fingerprinted %.3fs-%.3fs audio=%016x video=%016x",
		seg.StartTime, seg.EndTime, seg.Fingerprint.AudioHash, seg.Fingerprint.VideoHash)
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnProgress(elapsed time.Duration) {
	for _, o := range m {
		o.OnProgress(elapsed)
	}
}

func (m MultiObserver) OnBoundary(ev models.BoundaryEvent) {
	for _, o := range m {
		o.OnBoundary(ev)
	}
}

func (m MultiObserver) OnSegmentClassified(seg models.Segment) {
	for _, o := range m {
		o.OnSegmentClassified(seg)
	}
}

func (m MultiObserver) OnFingerprint(seg models.Segment) {
	for _, o := range m {
		o.OnFingerprint(seg)
	}
}
