package main

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/adrift/pkg/models"
)

// formatTimestamp renders seconds as h:mm:ss.mmm.
func formatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms%1000)
}

func formatSeconds(sec float64) string {
	return fmt.Sprintf("%.2fs", sec)
}

func typeLabel(t models.SegmentType) string {
	switch t {
	case models.SegmentCommercial:
		return "Commercial"
	case models.SegmentStationID:
		return "Station ID"
	default:
		return string(t)
	}
}

func formatSeen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatCount(n int64) string {
	return humanize.Comma(n)
}
