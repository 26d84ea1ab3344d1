package config

import (
	"fmt"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/logger"
)

// ServiceOptions translates the loaded configuration into service options.
// Callers append their own logger and observer.
func (c *Config) ServiceOptions() []adrift.Option {
	return []adrift.Option{
		adrift.WithDBPath(c.DatabasePath()),
		adrift.WithTempDir(c.Paths.TempDir),
		adrift.WithFFmpegPath(c.FFmpeg.FFmpegPath),
		adrift.WithFFprobePath(c.FFmpeg.FFprobePath),
		adrift.WithBlackFrame(c.Detection.BlackFrame),
		adrift.WithScene(c.Detection.Scene),
		adrift.WithLengths(c.Classification),
		adrift.WithSimilarityThreshold(c.Dedup.SimilarityThreshold),
		adrift.WithMaxGap(c.Scoring.MaxGap),
		adrift.WithWorkers(c.Dedup.Workers),
		adrift.WithSkipCompatibilityCheck(c.FFmpeg.SkipCompatibilityCheck),
	}
}

// OutputFormat returns the parsed extraction container.
func (c *Config) OutputFormat() (media.OutputFormat, error) {
	return media.ParseFormat(c.Output.Format)
}

// ApplyLogging configures the process-wide logger from the logging section.
func (c *Config) ApplyLogging() error {
	log := logger.GetLogger()
	if c.Logging.Level != "" {
		level, ok := logger.ParseLevel(c.Logging.Level)
		if !ok {
			return fmt.Errorf("unknown log level %q", c.Logging.Level)
		}
		log.SetLevel(level)
	}
	if c.Logging.Format != "" {
		log.SetFormat(logger.Format(c.Logging.Format))
	}
	return nil
}
