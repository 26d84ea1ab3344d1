// Package config loads ADrift settings from an optional TOML file and
// ADRIFT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/adrift/pkg/adrift/detect"
	"github.com/himanishpuri/adrift/pkg/adrift/segment"
)

// Paths contains file locations.
type Paths struct {
	Database  string `toml:"database"`
	TempDir   string `toml:"temp_dir"`
	OutputDir string `toml:"output_dir"`
}

// FFmpeg locates the transcoder binaries.
type FFmpeg struct {
	FFmpegPath             string `toml:"ffmpeg_path"`
	FFprobePath            string `toml:"ffprobe_path"`
	SkipCompatibilityCheck bool   `toml:"skip_compatibility_check"`
}

// Scoring controls how scene changes reinforce black-frame boundaries.
type Scoring struct {
	MaxGap float64 `toml:"max_gap"`
}

// Dedup controls fingerprint matching against the store.
type Dedup struct {
	Persist             bool    `toml:"persist"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	Workers             int     `toml:"workers"`
}

// Output controls segment extraction.
type Output struct {
	Format  string `toml:"format"` // same, mp4, webm, mkv, mov
	Extract bool   `toml:"extract"`
}

type Server struct {
	Bind string `toml:"bind"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for ADrift.
type Config struct {
	Paths          Paths                `toml:"paths"`
	FFmpeg         FFmpeg               `toml:"ffmpeg"`
	Detection      detect.Config        `toml:"detection"`
	Scoring        Scoring              `toml:"scoring"`
	Classification segment.LengthTables `toml:"classification"`
	Dedup          Dedup                `toml:"dedup"`
	Output         Output               `toml:"output"`
	Server         Server               `toml:"server"`
	Logging        Logging              `toml:"logging"`
}

const (
	defaultDatabase  = "~/.local/share/adrift/adrift.sqlite3"
	defaultOutputDir = "commercials"
	defaultBind      = "127.0.0.1:8080"
	defaultWorkers   = 2
	defaultThreshold = 0.9
)

// DefaultConfigPath is where Load looks when no path is given.
const DefaultConfigPath = "~/.config/adrift/config.toml"

func Default() Config {
	return Config{
		Paths: Paths{
			Database:  defaultDatabase,
			TempDir:   os.TempDir(),
			OutputDir: defaultOutputDir,
		},
		FFmpeg: FFmpeg{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Detection:      detect.DefaultConfig(),
		Scoring:        Scoring{MaxGap: segment.DefaultMaxGap},
		Classification: segment.DefaultLengthTables(),
		Dedup: Dedup{
			Persist:             true,
			SimilarityThreshold: defaultThreshold,
			Workers:             defaultWorkers,
		},
		Output:  Output{Format: "same", Extract: true},
		Server:  Server{Bind: defaultBind},
		Logging: Logging{Level: "info", Format: "auto"},
	}
}

// Load parses path (or the default location when path is empty) over the
// defaults, applies environment overrides and validates the result. A
// missing file is not an error; the returned bool reports whether one was
// read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		if env := os.Getenv("ADRIFT_CONFIG"); env != "" {
			path = env
		} else {
			path = DefaultConfigPath
		}
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// ApplyEnv overrides fields from ADRIFT_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"ADRIFT_DB_PATH":     &c.Paths.Database,
		"ADRIFT_TEMP_DIR":    &c.Paths.TempDir,
		"ADRIFT_OUTPUT_DIR":  &c.Paths.OutputDir,
		"ADRIFT_FFMPEG":      &c.FFmpeg.FFmpegPath,
		"ADRIFT_FFPROBE":     &c.FFmpeg.FFprobePath,
		"ADRIFT_FORMAT":      &c.Output.Format,
		"ADRIFT_SERVER_BIND": &c.Server.Bind,
		"ADRIFT_LOG_LEVEL":   &c.Logging.Level,
		"ADRIFT_LOG_FORMAT":  &c.Logging.Format,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := os.LookupEnv("ADRIFT_PERSIST"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ADRIFT_PERSIST: %w", err)
		}
		c.Dedup.Persist = b
	}
	if v, ok := os.LookupEnv("ADRIFT_SIMILARITY_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ADRIFT_SIMILARITY_THRESHOLD: %w", err)
		}
		c.Dedup.SimilarityThreshold = f
	}
	if v, ok := os.LookupEnv("ADRIFT_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ADRIFT_WORKERS: %w", err)
		}
		c.Dedup.Workers = n
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.Database, err = ExpandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if c.Paths.TempDir, err = ExpandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.OutputDir, err = ExpandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// DatabasePath returns the store location, or "" when persistence is off.
func (c *Config) DatabasePath() string {
	if !c.Dedup.Persist {
		return ""
	}
	return c.Paths.Database
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
