// Package segment turns raw analysis markers into scored boundaries and
// typed segments.
package segment

import (
	"math"
	"sort"

	"github.com/himanishpuri/adrift/pkg/models"
)

// DefaultMaxGap is how close (in seconds) a scene change must be to a
// black-frame candidate to reinforce it.
const DefaultMaxGap = 0.5

// Pair is a candidate segment span, start then end, in seconds.
type Pair [2]float64

// Start returns the span start.
func (p Pair) Start() float64 { return p[0] }

// End returns the span end.
func (p Pair) End() float64 { return p[1] }

// ScoreBoundaries merges black-frame intervals and scene-change timestamps
// into scored candidates. Only candidates with a total score above
// models.MinBoundaryScore are returned, sorted by time.
func ScoreBoundaries(blackFrames []models.Interval, sceneChanges []float64, maxGap float64) []models.BoundaryCandidate {
	candidates := make([]models.BoundaryCandidate, 0, len(blackFrames)+len(sceneChanges))
	for _, iv := range blackFrames {
		candidates = append(candidates, models.BoundaryCandidate{
			Time:            iv.Start,
			End:             iv.End,
			BlackFrameScore: math.Min(iv.Length(), 1.0),
		})
	}

	for _, ts := range sceneChanges {
		if idx := nearestWithin(candidates, ts, maxGap); idx >= 0 {
			candidates[idx].SceneChangeScore = 1.0
			continue
		}
		candidates = append(candidates, models.BoundaryCandidate{
			Time:             ts,
			End:              ts,
			SceneChangeScore: 1.0,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Time < candidates[j].Time })

	out := candidates[:0]
	for _, c := range candidates {
		if c.Survives() {
			out = append(out, c)
		}
	}
	return out
}

// nearestWithin returns the index of the candidate closest to ts within
// maxGap, or -1.
func nearestWithin(candidates []models.BoundaryCandidate, ts, maxGap float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range candidates {
		d := math.Abs(candidates[i].Time - ts)
		if d <= maxGap && d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// BoundaryPairs returns the spans between consecutive boundaries: from the
// end of one boundary to the start of the next.
func BoundaryPairs(boundaries []models.BoundaryCandidate) []Pair {
	if len(boundaries) < 2 {
		return nil
	}
	pairs := make([]Pair, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		pairs = append(pairs, Pair{boundaries[i].End, boundaries[i+1].Time})
	}
	return pairs
}

// BlackFramePairs returns the spans between consecutive black-frame
// intervals, from the end of one to the start of the next.
func BlackFramePairs(blackFrames []models.Interval) []Pair {
	if len(blackFrames) < 2 {
		return nil
	}
	sorted := append([]models.Interval(nil), blackFrames...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	pairs := make([]Pair, 0, len(sorted)-1)
	for i := 0; i+1 < len(sorted); i++ {
		pairs = append(pairs, Pair{sorted[i].End, sorted[i+1].Start})
	}
	return pairs
}

// MergePairs combines pair lists, dropping spans that are identical at
// millisecond resolution or not strictly positive, sorted by start then end.
func MergePairs(lists ...[]Pair) []Pair {
	type key struct{ start, end int64 }
	seen := make(map[key]struct{})

	var out []Pair
	for _, list := range lists {
		for _, p := range list {
			if p.End() <= p.Start() {
				continue
			}
			k := key{int64(math.Round(p.Start() * 1000)), int64(math.Round(p.End() * 1000))}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start() == out[j].Start() {
			return out[i].End() < out[j].End()
		}
		return out[i].Start() < out[j].Start()
	})
	return out
}
