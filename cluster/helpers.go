package cluster

import (
	"math"
	"math/rand"
)

type Summary struct {
	TotalPoints       int       `json:"totalPoints"`
	NumClusters       int       `json:"numClusters"`
	NumSingleFeatures int       `json:"numSingleFeatures"`
	Fill              FillStats `json:"fill"`
}

type FillStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
}

// CalculateSummary aggregates counts and fill statistics over records.
func CalculateSummary(records []*Record) Summary {
	var summary Summary
	if len(records) == 0 {
		return summary
	}

	summary.Fill.Min = math.Inf(1)
	summary.Fill.Max = math.Inf(-1)

	for _, r := range records {
		if r.Leaf {
			summary.NumSingleFeatures++
		} else {
			summary.NumClusters++
		}
		summary.TotalPoints += len(r.Members)

		summary.Fill.Min = math.Min(summary.Fill.Min, r.Fill)
		summary.Fill.Max = math.Max(summary.Fill.Max, r.Fill)
		summary.Fill.Sum += r.Fill
	}
	summary.Fill.Average = summary.Fill.Sum / float64(len(records))

	return summary
}

// GenerateTestPoints scatters n points uniformly over extent with ids 1..n.
func GenerateTestPoints(n int, extent Extent, seed int64) []Point {
	r := rand.New(rand.NewSource(seed))
	points := make([]Point, n)

	for i := 0; i < n; i++ {
		points[i] = Point{
			ID: uint32(i + 1),
			X:  extent.MinX + r.Float64()*extent.Width(),
			Y:  extent.MinY + r.Float64()*extent.Height(),
		}
	}

	return points
}
