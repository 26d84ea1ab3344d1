package segment

import (
	"math"

	"github.com/himanishpuri/adrift/pkg/models"
)

// LengthTables holds the canonical segment lengths and their tolerances.
type LengthTables struct {
	StationID           []float64 `toml:"station_id"`
	StationIDTolerance  float64   `toml:"station_id_tolerance"`
	Commercial          []float64 `toml:"commercial"`
	CommercialTolerance float64   `toml:"commercial_tolerance"`
}

// DefaultLengthTables returns the broadcast lengths ADrift looks for.
func DefaultLengthTables() LengthTables {
	return LengthTables{
		StationID:           []float64{3, 5, 10},
		StationIDTolerance:  0.2,
		Commercial:          []float64{15, 30, 60},
		CommercialTolerance: 1.0,
	}
}

// Classify types each pair by duration. Station IDs are checked first so
// that their short lengths are not absorbed by the wider commercial
// tolerance. Pairs matching neither table are dropped.
func Classify(pairs []Pair, tables LengthTables) []models.Segment {
	segments := make([]models.Segment, 0, len(pairs))
	for _, p := range pairs {
		duration := p.End() - p.Start()

		var kind models.SegmentType
		switch {
		case matchesAny(duration, tables.StationID, tables.StationIDTolerance):
			kind = models.SegmentStationID
		case matchesAny(duration, tables.Commercial, tables.CommercialTolerance):
			kind = models.SegmentCommercial
		default:
			continue
		}

		segments = append(segments, models.Segment{
			Type:         kind,
			DetectedType: kind,
			StartTime:    p.Start(),
			EndTime:      p.End(),
			Duration:     duration,
		})
	}
	return segments
}

func matchesAny(duration float64, lengths []float64, tolerance float64) bool {
	for _, l := range lengths {
		if math.Abs(duration-l) <= tolerance {
			return true
		}
	}
	return false
}
