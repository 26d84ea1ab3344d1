package adrift

import (
	"errors"

	"github.com/himanishpuri/adrift/pkg/adrift/detect"
	"github.com/himanishpuri/adrift/pkg/adrift/fingerprint"
	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/adrift/storage"
)

var (
	// ErrLaunch: the analysis process could not be started. Fatal for the file.
	ErrLaunch = detect.ErrLaunch
	// ErrAnalysis: the analysis process exited with an error. Fatal for the file.
	ErrAnalysis = detect.ErrAnalysis
	// ErrSegment: sampling one segment failed. The segment is dropped.
	ErrSegment = fingerprint.ErrExtract
	// ErrStorage: the fingerprint store failed. Fatal for the run.
	ErrStorage = errors.New("fingerprint store failure")
	// ErrStoreLocked: another process holds the fingerprint store.
	ErrStoreLocked = storage.ErrLocked
	// ErrCompatibility: ffmpeg is missing or lacks a required filter.
	ErrCompatibility = media.ErrIncompatible
	// ErrNoStore is returned by record queries when persistence is disabled.
	ErrNoStore = errors.New("persistence is disabled")
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = storage.ErrNotFound
)

// IsFatalForRun reports whether err should stop processing of any further
// files, not just the current one.
func IsFatalForRun(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrCompatibility)
}
