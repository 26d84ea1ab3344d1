package detect

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/adrift/pkg/models"
)

var (
	blackStartRe = regexp.MustCompile(`black_start:\s*(-?\d+(?:\.\d+)?)`)
	blackEndRe   = regexp.MustCompile(`black_end:\s*(-?\d+(?:\.\d+)?)`)
	ptsTimeRe    = regexp.MustCompile(`pts_time:\s*(-?\d+(?:\.\d+)?)`)
)

// parseBlackLine extracts an interval from a blackdetect diagnostic line.
func parseBlackLine(line string) (models.Interval, bool) {
	if !strings.Contains(line, "black_start") {
		return models.Interval{}, false
	}
	start, ok := matchFloat(blackStartRe, line)
	if !ok {
		return models.Interval{}, false
	}
	end, ok := matchFloat(blackEndRe, line)
	if !ok || end < start {
		return models.Interval{}, false
	}
	return models.Interval{Start: start, End: end}, true
}

// parseSceneLine extracts the timestamp of a frame reported by showinfo.
func parseSceneLine(line string) (float64, bool) {
	if !strings.Contains(line, "showinfo") {
		return 0, false
	}
	return matchFloat(ptsTimeRe, line)
}

// parseProgressLine reads the elapsed position from a -progress key/value
// line. ffmpeg reports out_time_ms in microseconds.
func parseProgressLine(line string) (time.Duration, bool) {
	v, ok := strings.CutPrefix(strings.TrimSpace(line), "out_time_ms=")
	if !ok {
		return 0, false
	}
	us, err := strconv.ParseInt(v, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}

func matchFloat(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sceneDedup keeps a timestamp only when it lies at least minLength after
// the previously kept one.
type sceneDedup struct {
	minLength float64
	last      float64
	seen      bool
}

func (d *sceneDedup) keep(ts float64) bool {
	if d.seen && ts < d.last+d.minLength {
		return false
	}
	d.last, d.seen = ts, true
	return true
}
