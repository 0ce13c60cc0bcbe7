package moods

import "math"

// Trend is a descriptive label for the direction of past scores. It is not a
// forecast.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendThreshold is the slope magnitude, in score points per entry, above
// which scores count as moving.
const trendThreshold = 0.1

// Statistics summarizes a patient's entries over a range. Trend is nil when
// fewer than two entries matched.
type Statistics struct {
	TotalEntries     int          `json:"totalEntries"`
	AverageScore     float64      `json:"averageScore"`
	MoodDistribution map[Mood]int `json:"moodDistribution"`
	Trend            *Trend       `json:"trend"`
}

// ComputeStatistics expects entries ordered ascending by date; the trend is
// fitted against that order.
func ComputeStatistics(entries []Entry) Statistics {
	stats := Statistics{MoodDistribution: map[Mood]int{}}
	if len(entries) == 0 {
		return stats
	}

	scores := make([]int, len(entries))
	total := 0
	for i, e := range entries {
		scores[i] = e.MoodScore
		total += e.MoodScore
		stats.MoodDistribution[e.Mood]++
	}
	stats.TotalEntries = len(entries)
	stats.AverageScore = round2(float64(total) / float64(len(entries)))

	if len(entries) >= 2 {
		trend := ClassifySlope(TrendSlope(scores))
		stats.Trend = &trend
	}
	return stats
}

// TrendSlope is the ordinary least squares slope of scores against their
// index 0..n-1. It returns 0 for fewer than two points.
func TrendSlope(scores []int) float64 {
	n := float64(len(scores))
	if len(scores) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, s := range scores {
		x, y := float64(i), float64(s)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func ClassifySlope(slope float64) Trend {
	switch {
	case slope > trendThreshold:
		return TrendImproving
	case slope < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
