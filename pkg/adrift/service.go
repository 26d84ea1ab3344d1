package adrift

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/adrift/pkg/adrift/detect"
	"github.com/himanishpuri/adrift/pkg/adrift/fingerprint"
	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/adrift/segment"
	"github.com/himanishpuri/adrift/pkg/logger"
	"github.com/himanishpuri/adrift/pkg/models"
	"github.com/himanishpuri/adrift/pkg/utils"
)

// adriftService is the default implementation of the Service interface.
type adriftService struct {
	storage    Storage // nil when persistence is disabled
	analyzer   Analyzer
	transcoder Transcoder
	generator  *fingerprint.Generator
	log        Logger
	obs        Observer
	config     *Config

	compatMu sync.Mutex
	compatOK bool
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if err := cfg.Detection.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection config: %w", err)
	}

	if cfg.Transcoder == nil {
		cfg.Transcoder = media.New(media.Config{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			TempDir:     cfg.TempDir,
		})
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = detect.New(cfg.FFmpegPath, detect.WithLogger(cfg.Logger))
	}

	// Create or use provided storage
	stor := cfg.Storage
	if stor == nil && cfg.DBPath != "" {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}
	if stor == nil {
		cfg.Logger.Infof("No database configured, duplicates are tracked within a run only")
	}

	return &adriftService{
		storage:    stor,
		analyzer:   cfg.Analyzer,
		transcoder: cfg.Transcoder,
		generator:  fingerprint.NewGenerator(cfg.Transcoder),
		log:        cfg.Logger,
		obs:        cfg.Observer,
		config:     cfg,
	}, nil
}

// CheckCompatibility verifies the transcoder supports the analysis pass.
func (s *adriftService) CheckCompatibility(ctx context.Context) (string, error) {
	version, err := s.transcoder.CheckCompatibility(ctx)
	if err != nil {
		if !errors.Is(err, ErrCompatibility) {
			err = fmt.Errorf("%w: %w", ErrCompatibility, err)
		}
		return "", err
	}
	return version, nil
}

func (s *adriftService) ensureCompatible(ctx context.Context) error {
	if s.config.SkipCompatibilityCheck {
		return nil
	}
	s.compatMu.Lock()
	defer s.compatMu.Unlock()
	if s.compatOK {
		return nil
	}
	version, err := s.CheckCompatibility(ctx)
	if err != nil {
		return err
	}
	s.log.Debugf("Using %s", version)
	s.compatOK = true
	return nil
}

// ProcessVideo detects, fingerprints and deduplicates the commercials and
// station IDs in a single video.
func (s *adriftService) ProcessVideo(ctx context.Context, path string) (*models.VideoResult, error) {
	if err := s.ensureCompatible(ctx); err != nil {
		return nil, err
	}

	result := &models.VideoResult{
		RunID: utils.GenerateUUID(),
		Path:  path,
	}
	s.log.Infof("Analyzing video for commercial breaks: %s", path)

	// 1. Black-frame and scene-change analysis
	analysis, err := s.analyzer.Analyze(ctx, path, s.config.Detection, s.obs)
	if err != nil {
		return nil, fmt.Errorf("analysis of %s failed: %w", path, err)
	}
	result.Analysis = analysis

	// 2. Score boundaries and classify the spans between them
	segments, boundaries := s.classify(analysis)
	result.Boundary = len(boundaries)
	s.log.Infof("Found %d black intervals, %d scene changes, %d candidate segments",
		len(analysis.BlackFrames), len(analysis.SceneChanges), len(segments))

	if len(segments) == 0 {
		result.Processed = time.Now()
		return result, nil
	}

	// 3. Fingerprint every candidate
	fps := s.fingerprintAll(ctx, path, segments)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. Resolve against the in-run set and the store
	seen := make(inRunSet, len(segments))
	for i, seg := range segments {
		if fps[i].err != nil {
			s.log.Warnf("Dropping segment %.3fs-%.3fs: %v", seg.StartTime, seg.EndTime, fps[i].err)
			result.Failed = append(result.Failed, models.SegmentFailure{
				StartTime: seg.StartTime,
				EndTime:   seg.EndTime,
				Err:       fps[i].err.Error(),
			})
			continue
		}

		fp := fps[i].fp
		seg.Fingerprint = &fp
		s.obs.OnFingerprint(seg)

		keep, err := s.resolve(&seg, seen)
		if err != nil {
			return nil, err
		}
		if keep {
			result.Segments = append(result.Segments, seg)
		}
	}

	s.log.Infof("Found %d segments in %s (%d dropped)", len(result.Segments), path, len(result.Failed))
	result.Processed = time.Now()
	return result, nil
}

func (s *adriftService) classify(a models.Analysis) ([]models.Segment, []models.BoundaryCandidate) {
	boundaries := segment.ScoreBoundaries(a.BlackFrames, a.SceneChanges, s.config.MaxGap)
	pairs := segment.MergePairs(
		segment.BlackFramePairs(a.BlackFrames),
		segment.BoundaryPairs(boundaries),
	)
	segments := segment.Classify(pairs, s.config.Lengths)
	for _, seg := range segments {
		s.obs.OnSegmentClassified(seg)
	}
	return segments, boundaries
}

type fpResult struct {
	fp  models.Fingerprint
	err error
}

// fingerprintAll samples segments with at most Workers concurrent ffmpeg
// invocations. Results keep the order of segments.
func (s *adriftService) fingerprintAll(ctx context.Context, path string, segments []models.Segment) []fpResult {
	results := make([]fpResult, len(segments))

	var g errgroup.Group
	g.SetLimit(s.config.Workers)
	for i := range segments {
		i := i
		g.Go(func() error {
			fp, err := s.generator.Generate(ctx, path, segments[i].StartTime, segments[i].EndTime)
			results[i] = fpResult{fp: fp, err: err}
			return nil
		})
	}
	g.Wait()

	return results
}

// inRunSet holds the fingerprints already reported for one video, bucketed
// by millisecond key. Equal fingerprints can straddle a bucket edge, so
// lookups also scan the neighbouring buckets.
type inRunSet map[models.FingerprintKey][]models.Fingerprint

func (s inRunSet) contains(fp models.Fingerprint) bool {
	key := fp.Key()
	for delta := int64(-1); delta <= 1; delta++ {
		k := key
		k.DurationMs += delta
		for _, other := range s[k] {
			if other.Equal(fp) {
				return true
			}
		}
	}
	return false
}

func (s inRunSet) add(fp models.Fingerprint) {
	key := fp.Key()
	s[key] = append(s[key], fp)
}

// resolve applies the store and in-run deduplication to seg. It reports
// whether seg belongs in the output.
func (s *adriftService) resolve(seg *models.Segment, seen inRunSet) (bool, error) {
	fp := *seg.Fingerprint

	if s.storage != nil {
		id, err := s.storage.FindSimilar(fp, s.config.SimilarityThreshold)
		if err != nil {
			return false, err
		}
		if id != nil {
			if err := s.storage.UpdateOccurrence(*id); err != nil {
				return false, err
			}
			storedType, err := s.storage.GetType(*id)
			if err != nil {
				return false, err
			}
			seg.DuplicateOf = id
			seg.Type = storedType
			if seg.Reclassified() {
				s.log.Infof("Segment %.3fs-%.3fs detected as %s but known as %s (record %d)",
					seg.StartTime, seg.EndTime, seg.DetectedType, seg.Type, *id)
			}
			return true, nil
		}
	}

	if seen.contains(fp) {
		s.log.Debugf("Skipping repeat of segment %.3fs-%.3fs within this run", seg.StartTime, seg.EndTime)
		return false, nil
	}
	seen.add(fp)

	if s.storage != nil {
		id, err := s.storage.Store(fp, seg.Type)
		if err != nil {
			return false, err
		}
		s.log.Debugf("Stored new %s fingerprint as record %d", seg.Type, id)
	}
	return true, nil
}

// ExtractSegments cuts each segment into outDir as
// "<stem>-<type>-<index>.<ext>", numbering each type from zero.
func (s *adriftService) ExtractSegments(ctx context.Context, video, outDir string, format media.OutputFormat, segments []models.Segment) ([]string, error) {
	if err := utils.MakeDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := format.Extension(video)
	counters := make(map[models.SegmentType]int)
	paths := make([]string, 0, len(segments))

	for _, seg := range segments {
		idx := counters[seg.Type]
		counters[seg.Type]++

		out := filepath.Join(outDir, media.SegmentFileName(video, string(seg.Type), idx, ext))
		if err := s.transcoder.ExtractSegment(ctx, video, out, seg.StartTime, seg.EndTime); err != nil {
			return paths, fmt.Errorf("extracting %s %d: %w", seg.Type, idx, err)
		}
		s.log.Infof("Extracted %s", out)
		paths = append(paths, out)
	}
	return paths, nil
}

func (s *adriftService) ListRecords(filter models.RecordFilter) ([]models.FingerprintRecord, error) {
	if s.storage == nil {
		return nil, ErrNoStore
	}
	return s.storage.List(filter)
}

func (s *adriftService) GetRecord(id int64) (*models.FingerprintRecord, error) {
	if s.storage == nil {
		return nil, ErrNoStore
	}
	return s.storage.Get(id)
}

func (s *adriftService) Stats() (models.StoreStats, error) {
	if s.storage == nil {
		return models.StoreStats{}, ErrNoStore
	}
	return s.storage.Stats()
}

// Close releases all resources held by the service.
func (s *adriftService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}
