// Package detect runs ffmpeg's black-frame and scene-change analysis and
// turns its diagnostic output into boundary events.
package detect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/himanishpuri/adrift/pkg/logger"
	"github.com/himanishpuri/adrift/pkg/models"
)

const DefaultQueueCapacity = 256

var (
	ErrLaunch   = errors.New("failed to launch analysis process")
	ErrAnalysis = errors.New("analysis process failed")
)

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Observer receives events while an analysis pass is running.
type Observer interface {
	OnProgress(elapsed time.Duration)
	OnBoundary(ev models.BoundaryEvent)
}

type BlackFrameConfig struct {
	MinDuration    float64 `toml:"min_duration"`    // seconds
	MaxBrightness  float64 `toml:"max_brightness"`  // pixel luminance threshold, 0..1
	NoiseTolerance float64 `toml:"noise_tolerance"` // share of pixels allowed above MaxBrightness
	FrameStride    int     `toml:"frame_stride"`    // analyse every Nth frame
}

type SceneConfig struct {
	Threshold      float64 `toml:"threshold"`
	MinSceneLength float64 `toml:"min_scene_length"` // seconds
}

type Config struct {
	BlackFrame BlackFrameConfig `toml:"black_frame"`
	Scene      SceneConfig      `toml:"scene"`
}

func DefaultBlackFrameConfig() BlackFrameConfig {
	return BlackFrameConfig{
		MinDuration:    0.1,
		MaxBrightness:  0.1,
		NoiseTolerance: 0.02,
		FrameStride:    1,
	}
}

func DefaultSceneConfig() SceneConfig {
	return SceneConfig{Threshold: 0.3, MinSceneLength: 1.0}
}

func DefaultConfig() Config {
	return Config{BlackFrame: DefaultBlackFrameConfig(), Scene: DefaultSceneConfig()}
}

func (c BlackFrameConfig) Validate() error {
	if c.MinDuration <= 0 {
		return fmt.Errorf("black frame min duration must be positive, got %v", c.MinDuration)
	}
	if c.MaxBrightness < 0 || c.MaxBrightness > 1 {
		return fmt.Errorf("black frame max brightness must be within [0,1], got %v", c.MaxBrightness)
	}
	if c.NoiseTolerance < 0 || c.NoiseTolerance > 1 {
		return fmt.Errorf("black frame noise tolerance must be within [0,1], got %v", c.NoiseTolerance)
	}
	if c.FrameStride < 0 {
		return fmt.Errorf("frame stride must not be negative, got %d", c.FrameStride)
	}
	return nil
}

func (c SceneConfig) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("scene threshold must be within (0,1], got %v", c.Threshold)
	}
	if c.MinSceneLength < 0 {
		return fmt.Errorf("min scene length must not be negative, got %v", c.MinSceneLength)
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.BlackFrame.Validate(); err != nil {
		return err
	}
	return c.Scene.Validate()
}

func (c BlackFrameConfig) filter() string {
	return fmt.Sprintf("blackdetect=d=%s:pix_th=%s:pic_th=%s",
		formatFloat(c.MinDuration),
		formatFloat(c.MaxBrightness),
		formatFloat(1-c.NoiseTolerance),
	)
}

func (c BlackFrameConfig) stride() string {
	if c.FrameStride > 1 {
		return "framestep=" + strconv.Itoa(c.FrameStride)
	}
	return ""
}

func (c SceneConfig) filter() string {
	return fmt.Sprintf("select='gt(scene,%s)',showinfo", formatFloat(c.Threshold))
}

// FilterChain returns the -vf argument of the combined analysis pass.
func (c Config) FilterChain() string {
	return joinFilters(c.BlackFrame.stride(), c.BlackFrame.filter(), c.Scene.filter())
}

func joinFilters(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type Detector struct {
	ffmpegPath    string
	log           Logger
	queueCapacity int
}

type Option func(*Detector)

func WithLogger(l Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

func WithQueueCapacity(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.queueCapacity = n
		}
	}
}

func New(ffmpegPath string, opts ...Option) *Detector {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	d := &Detector{
		ffmpegPath:    ffmpegPath,
		log:           logger.GetLogger(),
		queueCapacity: DefaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectBlackFrames returns the black intervals of video in emission order.
func (d *Detector) DetectBlackFrames(ctx context.Context, video string, cfg BlackFrameConfig) ([]models.Interval, error) {
	chain := joinFilters(cfg.stride(), cfg.filter())
	a, err := d.run(ctx, video, chain, 0, nil)
	if err != nil {
		return nil, err
	}
	return a.BlackFrames, nil
}

// DetectSceneChanges returns scene-change timestamps, dropping any closer
// than cfg.MinSceneLength to the previously kept one.
func (d *Detector) DetectSceneChanges(ctx context.Context, video string, cfg SceneConfig) ([]float64, error) {
	a, err := d.run(ctx, video, cfg.filter(), cfg.MinSceneLength, nil)
	if err != nil {
		return nil, err
	}
	return a.SceneChanges, nil
}

// Analyze performs black-frame and scene-change detection in a single
// ffmpeg pass. obs may be nil.
func (d *Detector) Analyze(ctx context.Context, video string, cfg Config, obs Observer) (models.Analysis, error) {
	return d.run(ctx, video, cfg.FilterChain(), cfg.Scene.MinSceneLength, obs)
}

func (d *Detector) run(ctx context.Context, video, chain string, minSceneLength float64, obs Observer) (models.Analysis, error) {
	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", video,
		"-vf", chain,
		"-an",
		"-f", "null",
		"-progress", "pipe:1",
		"-",
	}
	d.log.Debugf("running %s %s", d.ffmpegPath, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return models.Analysis{}, fmt.Errorf("%w: stderr pipe: %w", ErrLaunch, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return models.Analysis{}, fmt.Errorf("%w: stdout pipe: %w", ErrLaunch, err)
	}
	if err := cmd.Start(); err != nil {
		return models.Analysis{}, fmt.Errorf("%w: %s: %w", ErrLaunch, d.ffmpegPath, err)
	}

	q := newEventQueue(d.queueCapacity, 2)
	var (
		wg   sync.WaitGroup
		tail lineTail
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer q.done()
		dedup := sceneDedup{minLength: minSceneLength}
		skipped := scanLines(stderr, func(line string) {
			if iv, ok := parseBlackLine(line); ok {
				q.push(event{kind: eventBoundary, boundary: models.BoundaryEvent{
					Kind: models.BoundaryBlackFrame, Start: iv.Start, End: iv.End,
				}})
				return
			}
			if ts, ok := parseSceneLine(line); ok {
				if dedup.keep(ts) {
					q.push(event{kind: eventBoundary, boundary: models.BoundaryEvent{
						Kind: models.BoundarySceneChange, Start: ts, End: ts,
					}})
				}
				return
			}
			tail.add(line)
		})
		if skipped > 0 {
			d.log.Warnf("skipped %d oversized diagnostic line(s) while analysing %s", skipped, video)
		}
	}()

	go func() {
		defer wg.Done()
		defer q.done()
		scanLines(stdout, func(line string) {
			if elapsed, ok := parseProgressLine(line); ok {
				q.push(event{kind: eventProgress, elapsed: elapsed})
			}
		})
	}()

	var analysis models.Analysis
	for {
		ev, ok := q.pop()
		if !ok {
			break
		}
		switch ev.kind {
		case eventProgress:
			if obs != nil {
				obs.OnProgress(ev.elapsed)
			}
		case eventBoundary:
			b := ev.boundary
			if b.Kind == models.BoundaryBlackFrame {
				analysis.BlackFrames = append(analysis.BlackFrames, models.Interval{Start: b.Start, End: b.End})
			} else {
				analysis.SceneChanges = append(analysis.SceneChanges, b.Start)
			}
			if obs != nil {
				obs.OnBoundary(b)
			}
		}
	}

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return models.Analysis{}, fmt.Errorf("%w: %s: %w", ErrAnalysis, video, ctx.Err())
		}
		return models.Analysis{}, fmt.Errorf("%w: %s: %w (%s)", ErrAnalysis, video, err, tail.String())
	}

	d.log.Debugf("analysis of %s: %d black intervals, %d scene changes",
		video, len(analysis.BlackFrames), len(analysis.SceneChanges))
	return analysis, nil
}

// maxLineBytes bounds one diagnostic line; longer lines are skipped.
const maxLineBytes = 1024 * 1024

// scanLines feeds every line of r to fn without its line ending. Lines
// longer than maxLineBytes are skipped and counted, and reading resumes at
// the next line. After a read error the rest of r is drained so the writer
// never blocks.
func scanLines(r io.Reader, fn func(string)) (skipped int) {
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !oversized {
				line = append(line, chunk...)
				if len(line) > maxLineBytes {
					oversized = true
					line = line[:0]
				}
			}
			continue
		}

		if oversized {
			skipped++
		} else {
			line = append(line, chunk...)
			text := strings.TrimRight(string(line), "\r\n")
			switch {
			case len(text) > maxLineBytes:
				skipped++
			case len(line) > 0:
				fn(text)
			}
		}
		line = line[:0]
		oversized = false

		if err != nil {
			if err != io.EOF {
				io.Copy(io.Discard, r)
			}
			return skipped
		}
	}
}

const tailLines = 5

// lineTail keeps the last few unrecognised diagnostic lines for error
// reports.
type lineTail struct {
	lines []string
}

func (t *lineTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(t.lines) == tailLines {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:tailLines-1]
	}
	t.lines = append(t.lines, line)
}

func (t *lineTail) String() string {
	return strings.Join(t.lines, "; ")
}
