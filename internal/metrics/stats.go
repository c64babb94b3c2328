// Package metrics derives aggregate and per-activity training metrics.
//
// Raw distances in metres and times in seconds are converted to kilometres
// and hours here. Every speed is distance over time and is zero, never NaN
// or infinite, when no time has been recorded.
package metrics

import (
	"fmt"

	"github.com/lildude/fitdash/internal/activity"
)

// CategoryStats aggregates a set of activities.
type CategoryStats struct {
	Count           int     `json:"count"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
	TotalTimeHours  float64 `json:"totalTimeHours"`
	TotalElevationM float64 `json:"totalElevationM"`
	AverageSpeedKmh float64 `json:"averageSpeedKmh"`
}

func (s *CategoryStats) add(a *activity.Activity) {
	s.Count++
	s.TotalDistanceKm += Km(a)
	s.TotalTimeHours += Hours(a)
	s.TotalElevationM += a.TotalElevationGain
	s.AverageSpeedKmh = speed(s.TotalDistanceKm, s.TotalTimeHours)
}

// Stats aggregates every activity in acts.
func Stats(acts []activity.Activity) CategoryStats {
	var s CategoryStats
	for i := range acts {
		s.add(&acts[i])
	}
	return s
}

// ForCategory aggregates the activities of category c. An empty selection
// gives all-zero stats.
func ForCategory(acts []activity.Activity, c activity.Category) CategoryStats {
	var s CategoryStats
	for i := range acts {
		if acts[i].Category == c {
			s.add(&acts[i])
		}
	}
	return s
}

// Km returns the activity distance in kilometres.
func Km(a *activity.Activity) float64 {
	return a.Distance / 1000
}

// Hours returns the activity moving time in hours.
func Hours(a *activity.Activity) float64 {
	return float64(a.MovingTime) / 3600
}

// SpeedKmh returns the activity's average moving speed.
func SpeedKmh(a *activity.Activity) float64 {
	return speed(Km(a), Hours(a))
}

// PaceMinPerKm returns minutes per kilometre, or 0 without distance.
func PaceMinPerKm(a *activity.Activity) float64 {
	km := Km(a)
	if km <= 0 {
		return 0
	}
	return float64(a.MovingTime) / 60 / km
}

func speed(km, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return km / hours
}

// FormatDuration renders seconds as "1h 5min" or "42min".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dmin", h, m)
	}
	return fmt.Sprintf("%dmin", m)
}

// Overview summarises a set of activities for the statistics view.
type Overview struct {
	CategoryStats
	LongestKm           float64 `json:"longestKm"`
	FastestKmh          float64 `json:"fastestKmh"`
	Weeks               int     `json:"weeks"`
	AvgWeeklyDistanceKm float64 `json:"avgWeeklyDistanceKm"`
	AvgWeeklyTimeHours  float64 `json:"avgWeeklyTimeHours"`
	AvgWeeklyCount      float64 `json:"avgWeeklyCount"`
}

// Summarize builds the Overview of acts. Weekly averages divide by the
// number of ISO weeks containing at least one activity.
func Summarize(acts []activity.Activity) Overview {
	o := Overview{CategoryStats: Stats(acts)}
	weeks := make(map[string]struct{})
	for i := range acts {
		a := &acts[i]
		if km := Km(a); km > o.LongestKm {
			o.LongestKm = km
		}
		if v := SpeedKmh(a); v > o.FastestKmh {
			o.FastestKmh = v
		}
		weeks[weekKey(localStart(a))] = struct{}{}
	}

	o.Weeks = len(weeks)
	n := float64(max(o.Weeks, 1))
	o.AvgWeeklyDistanceKm = o.TotalDistanceKm / n
	o.AvgWeeklyTimeHours = o.TotalTimeHours / n
	o.AvgWeeklyCount = float64(o.Count) / n
	return o
}
