package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/models"
)

// progressObserver draws one bar per video while the analysis pass runs.
// The bar is hidden when w is not a terminal.
type progressObserver struct {
	adrift.NopObserver

	w       io.Writer
	visible bool
	bar     *progressbar.ProgressBar

	segments int
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w, visible: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// start resets the bar for video. duration <= 0 renders a spinner.
func (p *progressObserver) start(video string, duration time.Duration) {
	p.segments = 0

	total := int64(-1)
	if duration > 0 {
		total = duration.Milliseconds()
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetVisibility(p.visible),
		progressbar.OptionSetDescription(filepath.Base(video)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressObserver) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}

func (p *progressObserver) OnProgress(elapsed time.Duration) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Set64(elapsed.Milliseconds())
}

func (p *progressObserver) OnSegmentClassified(models.Segment) {
	p.segments++
	if p.bar != nil {
		p.bar.Describe(progressDescription(p.segments))
	}
}

func progressDescription(segments int) string {
	if segments == 1 {
		return "fingerprinting 1 segment"
	}
	return fmt.Sprintf("fingerprinting %d segments", segments)
}
