package adrift

import (
	"os"

	"github.com/himanishpuri/adrift/pkg/adrift/detect"
	"github.com/himanishpuri/adrift/pkg/adrift/segment"
)

type Config struct {
	DBPath      string // empty disables persistence
	TempDir     string
	FFmpegPath  string
	FFprobePath string
	Logger      Logger
	Storage     Storage
	Observer    Observer
	Analyzer    Analyzer
	Transcoder  Transcoder

	Detection           detect.Config
	Lengths             segment.LengthTables
	SimilarityThreshold float64
	MaxGap              float64
	Workers             int

	SkipCompatibilityCheck bool
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithFFmpegPath(path string) Option {
	return func(c *Config) {
		c.FFmpegPath = path
	}
}

func WithFFprobePath(path string) Option {
	return func(c *Config) {
		c.FFprobePath = path
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStorage overrides the store; WithDBPath is then ignored.
func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithObserver(obs Observer) Option {
	return func(c *Config) {
		c.Observer = obs
	}
}

func WithAnalyzer(a Analyzer) Option {
	return func(c *Config) {
		c.Analyzer = a
	}
}

func WithTranscoder(t Transcoder) Option {
	return func(c *Config) {
		c.Transcoder = t
	}
}

func WithBlackFrame(bf detect.BlackFrameConfig) Option {
	return func(c *Config) {
		c.Detection.BlackFrame = bf
	}
}

func WithScene(sc detect.SceneConfig) Option {
	return func(c *Config) {
		c.Detection.Scene = sc
	}
}

func WithLengths(t segment.LengthTables) Option {
	return func(c *Config) {
		c.Lengths = t
	}
}

func WithSimilarityThreshold(th float64) Option {
	return func(c *Config) {
		c.SimilarityThreshold = th
	}
}

func WithMaxGap(gap float64) Option {
	return func(c *Config) {
		c.MaxGap = gap
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithSkipCompatibilityCheck(skip bool) Option {
	return func(c *Config) {
		c.SkipCompatibilityCheck = skip
	}
}

func defaultConfig() *Config {
	return &Config{
		TempDir:             os.TempDir(),
		FFmpegPath:          "ffmpeg",
		FFprobePath:         "ffprobe",
		Detection:           detect.DefaultConfig(),
		Lengths:             segment.DefaultLengthTables(),
		SimilarityThreshold: 0.9,
		MaxGap:              segment.DefaultMaxGap,
		Workers:             2,
	}
}
