// Package fingerprint computes the compact audio/video digest of a segment
// and scores digests against each other.
package fingerprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/adrift/pkg/models"
)

// ErrExtract marks a transcoder failure for a single segment window.
var ErrExtract = errors.New("segment extraction failed")

// Transcoder extracts reduced samples of a time window.
type Transcoder interface {
	// ExtractFrame returns one downsampled grayscale frame as raw pixel bytes.
	ExtractFrame(ctx context.Context, video string, start, end float64) ([]byte, error)
	// ExtractAudio returns downsampled mono PCM bytes.
	ExtractAudio(ctx context.Context, video string, start, end float64) ([]byte, error)
}

// Generator produces segment fingerprints.
type Generator struct {
	tc Transcoder
}

func NewGenerator(tc Transcoder) *Generator {
	return &Generator{tc: tc}
}

// Generate fingerprints the window [start, end) of video. Duration is taken
// from the window itself, not from the length tables.
func (g *Generator) Generate(ctx context.Context, video string, start, end float64) (models.Fingerprint, error) {
	if end <= start {
		return models.Fingerprint{}, fmt.Errorf("%w: empty window %.3f-%.3f", ErrExtract, start, end)
	}

	frame, err := g.tc.ExtractFrame(ctx, video, start, end)
	if err != nil {
		return models.Fingerprint{}, fmt.Errorf("%w: video frame at %.3f: %w", ErrExtract, start, err)
	}

	samples, err := g.tc.ExtractAudio(ctx, video, start, end)
	if err != nil {
		return models.Fingerprint{}, fmt.Errorf("%w: audio at %.3f: %w", ErrExtract, start, err)
	}

	return models.Fingerprint{
		Duration:  end - start,
		AudioHash: Digest(samples, NoAudioSentinel),
		VideoHash: Digest(frame, NoVideoSentinel),
	}, nil
}

// Compare is Similarity over two fingerprints.
func Compare(a, b models.Fingerprint) float64 {
	return Similarity(a.AudioHash, a.VideoHash, a.Duration, b.AudioHash, b.VideoHash, b.Duration)
}
