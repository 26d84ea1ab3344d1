package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/adrift/pkg/models"
)

// ScanRequest is the request body for POST /api/scan
type ScanRequest struct {
	Path string `json:"path"`
}

// Validate checks that a path was supplied.
func (r *ScanRequest) Validate() error {
	r.Path = strings.TrimSpace(r.Path)
	if r.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// SegmentDTO represents a detected segment in API responses
type SegmentDTO struct {
	Type         string  `json:"type"`
	DetectedType string  `json:"detected_type"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Duration     float64 `json:"duration"`
	AudioHash    string  `json:"audio_hash,omitempty"`
	VideoHash    string  `json:"video_hash,omitempty"`
	DuplicateOf  *int64  `json:"duplicate_of,omitempty"`
}

// FailureDTO represents a segment dropped during fingerprinting
type FailureDTO struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Error     string  `json:"error"`
}

// ScanResponse is the response for POST /api/scan
type ScanResponse struct {
	RunID        string       `json:"run_id"`
	Path         string       `json:"path"`
	BlackFrames  int          `json:"black_frames"`
	SceneChanges int          `json:"scene_changes"`
	Boundaries   int          `json:"boundaries"`
	Segments     []SegmentDTO `json:"segments"`
	Failed       []FailureDTO `json:"failed,omitempty"`
	Processed    time.Time    `json:"processed"`
}

// FingerprintDTO represents a stored fingerprint in API responses
type FingerprintDTO struct {
	ID              int64     `json:"id"`
	Type            string    `json:"type"`
	Duration        float64   `json:"duration"`
	AudioHash       string    `json:"audio_hash"`
	VideoHash       string    `json:"video_hash"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	OccurrenceCount int       `json:"occurrence_count"`
}

// ListFingerprintsResponse is the response for GET /api/fingerprints
type ListFingerprintsResponse struct {
	Fingerprints []FingerprintDTO `json:"fingerprints"`
	Count        int              `json:"count"`
}

// StatsResponse summarizes the fingerprint store
type StatsResponse struct {
	Records      int64            `json:"records"`
	Occurrences  int64            `json:"occurrences"`
	ByType       map[string]int64 `json:"by_type"`
	DatabasePath string           `json:"database_path"`
	DatabaseSize string           `json:"database_size,omitempty"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func hashString(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

func toSegmentDTO(seg models.Segment) SegmentDTO {
	dto := SegmentDTO{
		Type:         string(seg.Type),
		DetectedType: string(seg.DetectedType),
		StartTime:    seg.StartTime,
		EndTime:      seg.EndTime,
		Duration:     seg.Duration,
		DuplicateOf:  seg.DuplicateOf,
	}
	if seg.Fingerprint != nil {
		dto.AudioHash = hashString(seg.Fingerprint.AudioHash)
		dto.VideoHash = hashString(seg.Fingerprint.VideoHash)
	}
	return dto
}

func toScanResponse(res *models.VideoResult) ScanResponse {
	resp := ScanResponse{
		RunID:        res.RunID,
		Path:         res.Path,
		BlackFrames:  len(res.Analysis.BlackFrames),
		SceneChanges: len(res.Analysis.SceneChanges),
		Boundaries:   res.Boundary,
		Segments:     make([]SegmentDTO, 0, len(res.Segments)),
		Processed:    res.Processed,
	}
	for _, seg := range res.Segments {
		resp.Segments = append(resp.Segments, toSegmentDTO(seg))
	}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, FailureDTO{StartTime: f.StartTime, EndTime: f.EndTime, Error: f.Err})
	}
	return resp
}

func toFingerprintDTO(r models.FingerprintRecord) FingerprintDTO {
	return FingerprintDTO{
		ID:              r.ID,
		Type:            string(r.SegmentType),
		Duration:        r.Duration,
		AudioHash:       hashString(r.AudioHash),
		VideoHash:       hashString(r.VideoHash),
		FirstSeen:       r.FirstSeen,
		LastSeen:        r.LastSeen,
		OccurrenceCount: r.OccurrenceCount,
	}
}
