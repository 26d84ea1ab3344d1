package models

import (
	"math"
	"time"
)

// SegmentType classifies a detected segment.
type SegmentType string

const (
	SegmentCommercial SegmentType = "commercial"
	SegmentStationID  SegmentType = "station_id"
)

// Valid reports whether t is one of the known segment types.
func (t SegmentType) Valid() bool {
	return t == SegmentCommercial || t == SegmentStationID
}

// Interval is a black-frame range reported by the analysis pass, in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Length returns the interval length in seconds.
func (i Interval) Length() float64 {
	return i.End - i.Start
}

// Score weights for boundary candidates.
const (
	BlackFrameWeight  = 0.7
	SceneChangeWeight = 0.3
	MinBoundaryScore  = 0.5
)

// BoundaryCandidate is a potential cut point carrying evidence from the
// black-frame and scene-change signals.
type BoundaryCandidate struct {
	Time             float64 // candidate cut time in seconds
	End              float64 // end of the black interval, or Time for scene-only candidates
	BlackFrameScore  float64 // [0,1]
	SceneChangeScore float64 // 0 or 1
	TotalScore       float64
}

// Recompute refreshes TotalScore from the two sub-scores and returns it.
func (c *BoundaryCandidate) Recompute() float64 {
	c.TotalScore = BlackFrameWeight*c.BlackFrameScore + SceneChangeWeight*c.SceneChangeScore
	return c.TotalScore
}

// Survives reports whether the candidate is strong enough to become a boundary.
func (c *BoundaryCandidate) Survives() bool {
	return c.Recompute() > MinBoundaryScore
}

// DurationTolerance is the maximum duration difference for two fingerprints
// with identical hashes to compare equal.
const DurationTolerance = 0.001

// Fingerprint is the compact digest of one segment.
type Fingerprint struct {
	Duration  float64 // seconds, end - start of the segment window
	AudioHash uint64
	VideoHash uint64
}

// Equal reports whether both hashes match and the durations are within
// DurationTolerance.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.AudioHash == o.AudioHash &&
		f.VideoHash == o.VideoHash &&
		math.Abs(f.Duration-o.Duration) < DurationTolerance
}

// FingerprintKey is a comparable form of Fingerprint for map lookups.
type FingerprintKey struct {
	DurationMs int64
	AudioHash  uint64
	VideoHash  uint64
}

// Key quantizes the duration to integer milliseconds.
func (f Fingerprint) Key() FingerprintKey {
	return FingerprintKey{
		DurationMs: int64(math.Round(f.Duration * 1000)),
		AudioHash:  f.AudioHash,
		VideoHash:  f.VideoHash,
	}
}

// Segment is a typed span of the input video.
type Segment struct {
	Type         SegmentType  // resolved type; the store's type when DuplicateOf is set
	DetectedType SegmentType  // type inferred from the duration tables
	StartTime    float64      // seconds
	EndTime      float64      // seconds
	Duration     float64      // seconds
	Fingerprint  *Fingerprint // nil until fingerprinted
	DuplicateOf  *int64       // store record ID of an earlier sighting
}

// IsDuplicate reports whether the segment matched a stored fingerprint.
func (s Segment) IsDuplicate() bool {
	return s.DuplicateOf != nil
}

// Reclassified reports whether the store overrode the locally inferred type.
func (s Segment) Reclassified() bool {
	return s.DetectedType != "" && s.Type != s.DetectedType
}

// BoundaryKind distinguishes the events streamed by the analysis pass.
type BoundaryKind int

const (
	BoundaryBlackFrame BoundaryKind = iota
	BoundarySceneChange
)

func (k BoundaryKind) String() string {
	switch k {
	case BoundaryBlackFrame:
		return "black_frame"
	case BoundarySceneChange:
		return "scene_change"
	default:
		return "unknown"
	}
}

// BoundaryEvent is a single parsed marker from the analysis diagnostics.
type BoundaryEvent struct {
	Kind  BoundaryKind
	Start float64 // black_start, or the scene timestamp
	End   float64 // black_end, or the scene timestamp
}

// Analysis is the raw output of the combined analysis pass.
type Analysis struct {
	BlackFrames  []Interval
	SceneChanges []float64
}

// SegmentFailure records a segment dropped because fingerprinting failed.
type SegmentFailure struct {
	StartTime float64
	EndTime   float64
	Err       string
}

// VideoResult is the outcome of processing one video.
type VideoResult struct {
	RunID     string
	Path      string
	Segments  []Segment
	Failed    []SegmentFailure
	Analysis  Analysis
	Boundary  int // surviving boundary candidates
	Processed time.Time
}
