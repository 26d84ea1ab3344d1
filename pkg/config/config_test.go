package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ADRIFT_CONFIG", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(home, ".config", "adrift", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}

	wantDB := filepath.Join(home, ".local", "share", "adrift", "adrift.sqlite3")
	if cfg.Paths.Database != wantDB {
		t.Fatalf("unexpected database path: got %q want %q", cfg.Paths.Database, wantDB)
	}
	if cfg.DatabasePath() != wantDB {
		t.Fatalf("DatabasePath() = %q", cfg.DatabasePath())
	}
	if cfg.Dedup.SimilarityThreshold != 0.9 {
		t.Fatalf("unexpected similarity threshold %v", cfg.Dedup.SimilarityThreshold)
	}
	if got := cfg.Classification.Commercial; len(got) != 3 || got[0] != 15 || got[2] != 60 {
		t.Fatalf("unexpected commercial lengths %v", got)
	}
	if cfg.Detection.BlackFrame.MinDuration != 0.1 {
		t.Fatalf("unexpected black frame min duration %v", cfg.Detection.BlackFrame.MinDuration)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[paths]
database = "/var/lib/adrift/store.db"

[detection.black_frame]
min_duration = 0.2
max_brightness = 0.05

[detection.scene]
threshold = 0.4

[classification]
commercial = [15.0, 30.0]
commercial_tolerance = 2.0

[dedup]
similarity_threshold = 0.85
workers = 4

[output]
format = "MKV"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file %q to be read, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Paths.Database != "/var/lib/adrift/store.db" {
		t.Fatalf("database not overridden: %q", cfg.Paths.Database)
	}
	if cfg.Detection.BlackFrame.MinDuration != 0.2 || cfg.Detection.BlackFrame.MaxBrightness != 0.05 {
		t.Fatalf("black frame not overridden: %+v", cfg.Detection.BlackFrame)
	}
	if cfg.Detection.BlackFrame.NoiseTolerance != 0.02 {
		t.Fatalf("unset field should keep default, got %v", cfg.Detection.BlackFrame.NoiseTolerance)
	}
	if cfg.Detection.Scene.Threshold != 0.4 {
		t.Fatalf("scene threshold not overridden: %v", cfg.Detection.Scene.Threshold)
	}
	if len(cfg.Classification.Commercial) != 2 || cfg.Classification.CommercialTolerance != 2.0 {
		t.Fatalf("classification not overridden: %+v", cfg.Classification)
	}
	if len(cfg.Classification.StationID) != 3 {
		t.Fatalf("station id table should keep default, got %v", cfg.Classification.StationID)
	}
	if cfg.Dedup.Workers != 4 || cfg.Dedup.SimilarityThreshold != 0.85 {
		t.Fatalf("dedup not overridden: %+v", cfg.Dedup)
	}
	if cfg.Output.Format != "mkv" {
		t.Fatalf("format not normalized: %q", cfg.Output.Format)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[dedup]
workers = 4
`)
	t.Setenv("ADRIFT_WORKERS", "8")
	t.Setenv("ADRIFT_DB_PATH", "/tmp/env.db")
	t.Setenv("ADRIFT_PERSIST", "false")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dedup.Workers != 8 {
		t.Fatalf("expected env workers, got %d", cfg.Dedup.Workers)
	}
	if cfg.Paths.Database != "/tmp/env.db" {
		t.Fatalf("expected env database, got %q", cfg.Paths.Database)
	}
	if cfg.DatabasePath() != "" {
		t.Fatalf("persistence disabled, DatabasePath() = %q", cfg.DatabasePath())
	}
}

func TestEnvParseError(t *testing.T) {
	t.Setenv("ADRIFT_SIMILARITY_THRESHOLD", "high")
	_, _, _, err := config.Load(writeConfig(t, ""))
	if err == nil || !strings.Contains(err.Error(), "ADRIFT_SIMILARITY_THRESHOLD") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, _, _, err := config.Load(writeConfig(t, `
[dedup]
similarity = 0.5
`))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"threshold too high", func(c *config.Config) { c.Dedup.SimilarityThreshold = 1.5 }, "similarity_threshold"},
		{"no workers", func(c *config.Config) { c.Dedup.Workers = 0 }, "workers"},
		{"bad format", func(c *config.Config) { c.Output.Format = "avi" }, "output.format"},
		{"empty tables", func(c *config.Config) {
			c.Classification.StationID = nil
			c.Classification.Commercial = nil
		}, "classification"},
		{"negative length", func(c *config.Config) { c.Classification.Commercial = []float64{-1} }, "positive"},
		{"bad detection", func(c *config.Config) { c.Detection.Scene.Threshold = 0 }, "detection"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"persist without db", func(c *config.Config) { c.Paths.Database = "" }, "paths.database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := config.ExpandPath("~/data/store.db")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "data", "store.db") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("empty path should stay empty, got %q", got)
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Database = "/data/adrift.sqlite3"
	cfg.Dedup.Workers = 5
	cfg.Dedup.SimilarityThreshold = 0.75
	cfg.FFmpeg.FFmpegPath = "/opt/ffmpeg"

	var got adrift.Config
	for _, opt := range cfg.ServiceOptions() {
		opt(&got)
	}
	if got.DBPath != "/data/adrift.sqlite3" {
		t.Fatalf("DBPath = %q", got.DBPath)
	}
	if got.Workers != 5 || got.SimilarityThreshold != 0.75 || got.FFmpegPath != "/opt/ffmpeg" {
		t.Fatalf("unexpected options: %+v", got)
	}
	if got.Lengths.Commercial[0] != cfg.Classification.Commercial[0] {
		t.Fatalf("lengths not forwarded")
	}

	cfg.Dedup.Persist = false
	got = adrift.Config{}
	for _, opt := range cfg.ServiceOptions() {
		opt(&got)
	}
	if got.DBPath != "" {
		t.Fatalf("expected persistence disabled, got %q", got.DBPath)
	}
}

func TestOutputFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "webm"
	format, err := cfg.OutputFormat()
	if err != nil {
		t.Fatalf("OutputFormat: %v", err)
	}
	if format != media.FormatWebM {
		t.Fatalf("format = %q", format)
	}
}
