// Package media wraps the ffmpeg and ffprobe binaries used to sample,
// probe and cut video segments.
package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"github.com/himanishpuri/adrift/pkg/utils"
)

const (
	DefaultSampleRate = 8000
	DefaultFrameSize  = 8
)

type Config struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string
	SampleRate  int // Hz, for fingerprint audio
	FrameSize   int // edge of the square grayscale sample frame
}

type FFmpeg struct {
	cfg Config
}

func New(cfg Config) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	return &FFmpeg{cfg: cfg}
}

func (f *FFmpeg) FFmpegPath() string {
	return f.cfg.FFmpegPath
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// noStream reports whether ffmpeg failed only because the requested stream
// type is absent from the input.
func noStream(stderr string) bool {
	return strings.Contains(stderr, "does not contain any stream") ||
		strings.Contains(stderr, "matches no streams")
}

// ExtractFrame returns a single downsampled grayscale frame taken from the
// middle of [start, end] as raw 8-bit pixels. A video without a picture
// stream yields an empty slice.
func (f *FFmpeg) ExtractFrame(ctx context.Context, video string, start, end float64) ([]byte, error) {
	ctx, cancel := withDefaultTimeout(ctx, 30*time.Second)
	defer cancel()

	size := f.cfg.FrameSize
	cmd := exec.CommandContext(
		ctx,
		f.cfg.FFmpegPath,
		"-v", "error",
		"-ss", seconds(start+(end-start)/2),
		"-i", video,
		"-frames:v", "1",
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d,format=gray", size, size),
		"-f", "rawvideo",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if noStream(stderr.String()) {
			return nil, nil
		}
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ExtractAudio returns mono 16-bit little-endian PCM for [start, end]. The
// samples pass through a temporary WAV file in the configured temp dir. A
// video without audio yields an empty slice.
func (f *FFmpeg) ExtractAudio(ctx context.Context, video string, start, end float64) ([]byte, error) {
	ctx, cancel := withDefaultTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := utils.MakeDir(f.cfg.TempDir); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(f.cfg.TempDir, "adrift-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		f.cfg.FFmpegPath,
		"-y",
		"-v", "error",
		"-ss", seconds(start),
		"-i", video,
		"-t", seconds(end-start),
		"-vn",
		"-ac", "1", // mono
		"-ar", strconv.Itoa(f.cfg.SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		tmpPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if noStream(stderr.String()) {
			return nil, nil
		}
		return nil, fmt.Errorf("ffmpeg audio extraction failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	return ReadPCM16(tmpPath)
}

// ReadPCM16 decodes a WAV file and re-encodes its samples as 16-bit
// little-endian PCM.
func ReadPCM16(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading samples from %s: %w", path, err)
	}

	out := make([]byte, 0, len(buf.Data)*2)
	for _, s := range buf.Data {
		out = binary.LittleEndian.AppendUint16(out, uint16(int16(s)))
	}
	return out, nil
}

// ExtractSegment cuts [start, end] of video into outPath, re-encoding when
// the output container needs it. The file is written under a temporary name
// and renamed once ffmpeg succeeds.
func (f *FFmpeg) ExtractSegment(ctx context.Context, video, outPath string, start, end float64) error {
	if end <= start {
		return fmt.Errorf("empty segment [%v, %v]", start, end)
	}
	if err := utils.MakeDir(filepath.Dir(outPath)); err != nil {
		return err
	}

	tmpPath := filepath.Join(filepath.Dir(outPath), ".partial-"+filepath.Base(outPath))
	defer os.Remove(tmpPath)

	args := []string{
		"-y",
		"-v", "error",
		"-i", video,
		"-ss", seconds(start),
		"-t", seconds(end - start),
	}
	args = append(args, CodecArgs(filepath.Ext(outPath))...)
	args = append(args, tmpPath)

	cmd := exec.CommandContext(ctx, f.cfg.FFmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg segment extraction failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	return utils.MoveFile(tmpPath, outPath)
}

var ErrIncompatible = errors.New("incompatible ffmpeg")

// RequiredFilters are the ffmpeg filters the analysis pass depends on.
var RequiredFilters = []string{"blackdetect", "select", "showinfo"}

// CheckCompatibility verifies that ffmpeg runs and provides every filter in
// RequiredFilters. It returns the reported version line.
func (f *FFmpeg) CheckCompatibility(ctx context.Context) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, f.cfg.FFmpegPath, "-hide_banner", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%w: running %s -version: %w", ErrIncompatible, f.cfg.FFmpegPath, err)
	}
	version, _, _ := strings.Cut(string(out), "\n")
	version = strings.TrimSpace(version)
	if !strings.HasPrefix(version, "ffmpeg version") {
		return "", fmt.Errorf("%w: unexpected version output %q", ErrIncompatible, version)
	}

	out, err = exec.CommandContext(ctx, f.cfg.FFmpegPath, "-hide_banner", "-filters").Output()
	if err != nil {
		return "", fmt.Errorf("%w: listing filters: %w", ErrIncompatible, err)
	}
	available := parseFilters(string(out))
	var missing []string
	for _, name := range RequiredFilters {
		if !available[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s lacks filters %s", ErrIncompatible, version, strings.Join(missing, ", "))
	}
	return version, nil
}

// parseFilters reads the name column of `ffmpeg -filters`, whose entries
// look like " TSC blackdetect        V->V       Detect video intervals...".
func parseFilters(out string) map[string]bool {
	names := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = true
	}
	return names
}
