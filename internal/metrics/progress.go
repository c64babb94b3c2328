package metrics

import (
	"sort"
	"time"

	"github.com/lildude/fitdash/internal/activity"
)

// ProgressPoint is one entry of the cumulative progress series.
type ProgressPoint struct {
	Number               int       `json:"rideNumber"`
	ActivityID           int64     `json:"activityId"`
	Date                 time.Time `json:"date"`
	DistanceKm           float64   `json:"distanceKm"`
	CumulativeDistanceKm float64   `json:"cumulativeDistanceKm"`
	TimeHours            float64   `json:"timeHours"`
	CumulativeTimeHours  float64   `json:"cumulativeTimeHours"`
	AverageSpeedKmh      float64   `json:"averageSpeedKmh"`
}

// CumulativeProgress orders activities oldest first and returns running
// totals of distance and time. Numbers start at 1.
func CumulativeProgress(acts []activity.Activity) []ProgressPoint {
	sorted := make([]activity.Activity, len(acts))
	copy(sorted, acts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	points := make([]ProgressPoint, 0, len(sorted))
	var dist, hours float64
	for i := range sorted {
		a := &sorted[i]
		dist += Km(a)
		hours += Hours(a)
		points = append(points, ProgressPoint{
			Number:               i + 1,
			ActivityID:           a.ID,
			Date:                 a.StartDate,
			DistanceKm:           Km(a),
			CumulativeDistanceKm: dist,
			TimeHours:            Hours(a),
			CumulativeTimeHours:  hours,
			AverageSpeedKmh:      SpeedKmh(a),
		})
	}
	return points
}

// ImprovementTrend is the percent change in average speed from the first
// to the last point. It is 0 with fewer than two points or no first speed.
func ImprovementTrend(points []ProgressPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first, last := points[0].AverageSpeedKmh, points[len(points)-1].AverageSpeedKmh
	if first <= 0 {
		return 0
	}
	return (last - first) / first * 100
}

// ConsistencyScore is the percentage of consecutive pairs in which the
// later distance is at least 80% of the earlier one.
func ConsistencyScore(points []ProgressPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	kept := 0
	for i := 1; i < len(points); i++ {
		if points[i].DistanceKm >= points[i-1].DistanceKm*0.8 {
			kept++
		}
	}
	return float64(kept) / float64(len(points)-1) * 100
}

// Progress bundles the progress series with its derived scores.
type Progress struct {
	Points           []ProgressPoint `json:"points"`
	ImprovementTrend float64         `json:"improvementTrend"`
	ConsistencyScore float64         `json:"consistencyScore"`
}

func ProgressOf(acts []activity.Activity) Progress {
	points := CumulativeProgress(acts)
	return Progress{
		Points:           points,
		ImprovementTrend: ImprovementTrend(points),
		ConsistencyScore: ConsistencyScore(points),
	}
}
