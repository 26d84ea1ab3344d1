package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/logger"
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if c.Scoring.MaxGap < 0 {
		return fmt.Errorf("scoring.max_gap must not be negative, got %v", c.Scoring.MaxGap)
	}
	if err := c.validateClassification(); err != nil {
		return err
	}
	if err := c.validateDedup(); err != nil {
		return err
	}
	if _, err := media.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if strings.TrimSpace(c.FFmpeg.FFmpegPath) == "" {
		return errors.New("ffmpeg.ffmpeg_path must be set")
	}
	if c.Logging.Level != "" {
		if _, ok := logger.ParseLevel(c.Logging.Level); !ok {
			return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
		}
	}
	switch logger.Format(c.Logging.Format) {
	case "", logger.FormatAuto, logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateClassification() error {
	t := c.Classification
	if len(t.StationID) == 0 && len(t.Commercial) == 0 {
		return errors.New("classification: at least one length table must be non-empty")
	}
	if t.StationIDTolerance < 0 || t.CommercialTolerance < 0 {
		return errors.New("classification: tolerances must not be negative")
	}
	for _, l := range append(append([]float64(nil), t.StationID...), t.Commercial...) {
		if l <= 0 {
			return fmt.Errorf("classification: lengths must be positive, got %v", l)
		}
	}
	return nil
}

func (c *Config) validateDedup() error {
	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("dedup.similarity_threshold must be within (0,1], got %v", c.Dedup.SimilarityThreshold)
	}
	if c.Dedup.Workers < 1 {
		return fmt.Errorf("dedup.workers must be at least 1, got %d", c.Dedup.Workers)
	}
	if c.Dedup.Persist && strings.TrimSpace(c.Paths.Database) == "" {
		return errors.New("paths.database must be set when dedup.persist is enabled")
	}
	return nil
}
