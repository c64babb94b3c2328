package metrics

import (
	"math"

	"github.com/lildude/fitdash/internal/activity"
)

// Zone is a heart rate band in beats per minute.
type Zone struct {
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HeartRateZones holds the five training zones for an estimated maximum
// heart rate. Zones[0] is zone 1.
type HeartRateZones struct {
	MaxHR int     `json:"maxHR"`
	Zones [5]Zone `json:"zones"`
}

var zoneBounds = [6]float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

var zoneInfo = [5][2]string{
	{"Recovery", "Easy effort, active recovery"},
	{"Aerobic endurance", "Base pace, builds aerobic capacity"},
	{"Tempo", "Marathon pace, endurance"},
	{"Lactate threshold", "Threshold work, intervals"},
	{"Maximum", "Maximum effort, sprints"},
}

// TrainingZones derives the zones from age using maxHR = 220 - age. Zone
// bounds are rounded to whole beats and zone 5 ends at maxHR.
func TrainingZones(age int) HeartRateZones {
	maxHR := 220 - age
	z := HeartRateZones{MaxHR: maxHR}
	for i := range z.Zones {
		z.Zones[i] = Zone{
			Min:         int(math.Round(float64(maxHR) * zoneBounds[i])),
			Max:         int(math.Round(float64(maxHR) * zoneBounds[i+1])),
			Name:        zoneInfo[i][0],
			Description: zoneInfo[i][1],
		}
	}
	z.Zones[4].Max = maxHR
	return z
}

// ZoneFor returns the 1-based zone containing hr, or 0 when hr is outside
// every zone. Zones 1 to 4 exclude their upper bound; zone 5 includes it.
func (z HeartRateZones) ZoneFor(hr float64) int {
	for i, zone := range z.Zones {
		lo, hi := float64(zone.Min), float64(zone.Max)
		if hr < lo {
			continue
		}
		if hr < hi || (i == len(z.Zones)-1 && hr <= hi) {
			return i + 1
		}
	}
	return 0
}

// TrainingZoneAnalysis attributes an activity's moving time to zones.
type TrainingZoneAnalysis struct {
	TotalTime       int64    `json:"totalTime"`
	Zone1Time       int64    `json:"zone1Time"`
	Zone2Time       int64    `json:"zone2Time"`
	Zone3Time       int64    `json:"zone3Time"`
	Zone4Time       int64    `json:"zone4Time"`
	Zone5Time       int64    `json:"zone5Time"`
	Zone2Percentage float64  `json:"zone2Percentage"`
	Recommendations []string `json:"recommendations"`
}

const (
	recNoHeartRate = "No heart rate data, use a heart rate monitor during training"
	recExcellent   = "🎯 Excellent! Most of the session was in zone 2, ideal for aerobic capacity"
	recGood        = "👍 Good! Zone 2 dominated the session, keep this pace"
	recPartial     = "💪 Partly in zone 2, try to spend more time in this zone"
	recNoZone2     = "⚠️ No time in zone 2, consider a slower pace to build aerobic capacity"
	recRecovery    = "⚡ High intensity, remember to recover between sessions"
	recTooEasy     = "🐌 Lots of time in zone 1, consider increasing the intensity"
)

// AnalyzeTrainingZones attributes the whole moving time to the zone that
// contains the activity's average heart rate. Only the average is known, so
// this is an approximation rather than a per-sample breakdown.
func AnalyzeTrainingZones(a *activity.Activity, zones HeartRateZones) TrainingZoneAnalysis {
	res := TrainingZoneAnalysis{TotalTime: a.MovingTime}
	if !a.HasHeartrate() {
		res.Recommendations = []string{recNoHeartRate}
		return res
	}

	switch zones.ZoneFor(a.AverageHeartrate) {
	case 1:
		res.Zone1Time = a.MovingTime
	case 2:
		res.Zone2Time = a.MovingTime
	case 3:
		res.Zone3Time = a.MovingTime
	case 4:
		res.Zone4Time = a.MovingTime
	case 5:
		res.Zone5Time = a.MovingTime
	}

	if res.TotalTime > 0 {
		res.Zone2Percentage = float64(res.Zone2Time) / float64(res.TotalTime) * 100
	}

	switch p := res.Zone2Percentage; {
	case p >= 80:
		res.Recommendations = append(res.Recommendations, recExcellent)
	case p >= 50:
		res.Recommendations = append(res.Recommendations, recGood)
	case p > 0:
		res.Recommendations = append(res.Recommendations, recPartial)
	default:
		res.Recommendations = append(res.Recommendations, recNoZone2)
	}
	if res.Zone4Time > 0 || res.Zone5Time > 0 {
		res.Recommendations = append(res.Recommendations, recRecovery)
	}
	if float64(res.Zone1Time) > float64(res.TotalTime)*0.5 {
		res.Recommendations = append(res.Recommendations, recTooEasy)
	}
	return res
}

// IsZone2Training reports whether at least 60% of the time was in zone 2.
func IsZone2Training(r TrainingZoneAnalysis) bool {
	return r.Zone2Percentage >= 60
}
