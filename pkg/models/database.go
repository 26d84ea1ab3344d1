package models

import "time"

// FingerprintRecord is a persisted fingerprint with occurrence tracking.
type FingerprintRecord struct {
	ID              int64
	SegmentType     SegmentType
	Duration        float64
	AudioHash       uint64
	VideoHash       uint64
	FirstSeen       time.Time
	LastSeen        time.Time
	OccurrenceCount int
}

// Fingerprint returns the digest part of the record.
func (r FingerprintRecord) Fingerprint() Fingerprint {
	return Fingerprint{Duration: r.Duration, AudioHash: r.AudioHash, VideoHash: r.VideoHash}
}

// RecordFilter narrows ListRecords results.
type RecordFilter struct {
	Type   SegmentType // empty for all types
	Limit  int
	Offset int
}

// StoreStats summarizes the fingerprint store.
type StoreStats struct {
	Records     int64
	Occurrences int64
	ByType      map[SegmentType]int64
}
