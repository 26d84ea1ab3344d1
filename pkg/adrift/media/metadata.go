package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Metadata struct {
	Filename    string
	DurationSec float64
	Format      string
	Width       int
	Height      int
	FrameRate   float64
	HasVideo    bool
	HasAudio    bool
	SampleRate  int
	Channels    int
}

type ffprobeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Format   string `json:"format_name"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

func (p *ffprobeOutput) firstStream(codecType string) *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}
	return nil
}

// Probe reads container and stream metadata with ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*Metadata, error) {
	ctx, cancel := withDefaultTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(
		ctx,
		f.cfg.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return parseProbe(path, out)
}

func parseProbe(path string, out []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	meta := &Metadata{
		Filename:    filepath.Base(path),
		DurationSec: duration,
		Format:      probe.Format.Format,
	}

	if v := probe.firstStream("video"); v != nil {
		meta.HasVideo = true
		meta.Width = v.Width
		meta.Height = v.Height
		meta.FrameRate = parseRate(v.AvgFrameRate)
	}
	if a := probe.firstStream("audio"); a != nil {
		meta.HasAudio = true
		meta.SampleRate, _ = strconv.Atoi(a.SampleRate)
		meta.Channels = a.Channels
	}
	return meta, nil
}

// parseRate turns ffprobe's "30000/1001" notation into frames per second.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
