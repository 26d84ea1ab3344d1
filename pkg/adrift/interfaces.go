package adrift

import (
	"context"
	"time"

	"github.com/himanishpuri/adrift/pkg/adrift/detect"
	"github.com/himanishpuri/adrift/pkg/adrift/fingerprint"
	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/models"
)

type Service interface {
	ProcessVideo(ctx context.Context, path string) (*models.VideoResult, error)
	ExtractSegments(ctx context.Context, video, outDir string, format media.OutputFormat, segments []models.Segment) ([]string, error)
	CheckCompatibility(ctx context.Context) (string, error)
	ListRecords(filter models.RecordFilter) ([]models.FingerprintRecord, error)
	GetRecord(id int64) (*models.FingerprintRecord, error)
	Stats() (models.StoreStats, error)
	Close() error
}

type Storage interface {
	FindSimilar(fp models.Fingerprint, threshold float64) (*int64, error)
	Store(fp models.Fingerprint, segmentType models.SegmentType) (int64, error)
	UpdateOccurrence(id int64) error
	GetType(id int64) (models.SegmentType, error)
	Get(id int64) (*models.FingerprintRecord, error)
	List(filter models.RecordFilter) ([]models.FingerprintRecord, error)
	Stats() (models.StoreStats, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Analyzer runs the combined black-frame and scene-change pass.
type Analyzer interface {
	Analyze(ctx context.Context, video string, cfg detect.Config, obs detect.Observer) (models.Analysis, error)
}

// Transcoder samples segments for fingerprinting and cuts them for output.
type Transcoder interface {
	fingerprint.Transcoder
	ExtractSegment(ctx context.Context, video, outPath string, start, end float64) error
	CheckCompatibility(ctx context.Context) (string, error)
}

// Observer is notified at each stage of ProcessVideo. Calls happen on the
// goroutine running ProcessVideo.
type Observer interface {
	OnProgress(elapsed time.Duration)
	OnBoundary(ev models.BoundaryEvent)
	OnSegmentClassified(seg models.Segment)
	OnFingerprint(seg models.Segment)
}
