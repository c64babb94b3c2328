package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/lildude/fitdash/internal/activity"
	"golang.org/x/text/language"
)

// PeriodStats aggregates the activities of one month, day or week.
type PeriodStats struct {
	Key             string  `json:"key"`
	Label           string  `json:"label"`
	Count           int     `json:"count"`
	DistanceKm      float64 `json:"distanceKm"`
	TimeHours       float64 `json:"timeHours"`
	ElevationM      float64 `json:"elevationM"`
	AverageSpeedKmh float64 `json:"averageSpeedKmh"`
}

func (p *PeriodStats) add(a *activity.Activity) {
	p.Count++
	p.DistanceKm += Km(a)
	p.TimeHours += Hours(a)
	p.ElevationM += a.TotalElevationGain
	p.AverageSpeedKmh = speed(p.DistanceKm, p.TimeHours)
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses "2024-05".
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("parsing month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label returns the localised month and year, e.g. "Maj 2024".
func (k MonthKey) Label(lang language.Tag) string {
	return fmt.Sprintf("%s %d", MonthName(k.Month, lang), k.Year)
}

var polishMonths = [...]string{
	"Styczeń", "Luty", "Marzec", "Kwiecień", "Maj", "Czerwiec",
	"Lipiec", "Sierpień", "Wrzesień", "Październik", "Listopad", "Grudzień",
}

// MonthName returns the name of m in lang, falling back to English.
func MonthName(m time.Month, lang language.Tag) string {
	if activity.IsPolish(lang) && m >= time.January && m <= time.December {
		return polishMonths[m-1]
	}
	return m.String()
}

// localStart is the athlete's wall clock start time.
func localStart(a *activity.Activity) time.Time {
	if !a.StartDateLocal.IsZero() {
		return a.StartDateLocal
	}
	return a.StartDate
}

func weekKey(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

type bucketer func(a *activity.Activity) (key, label string, ok bool)

func aggregate(acts []activity.Activity, bucket bucketer) []PeriodStats {
	idx := make(map[string]int)
	var out []PeriodStats
	for i := range acts {
		a := &acts[i]
		key, label, ok := bucket(a)
		if !ok {
			continue
		}
		j, seen := idx[key]
		if !seen {
			j = len(out)
			idx[key] = j
			out = append(out, PeriodStats{Key: key, Label: label})
		}
		out[j].add(a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MonthlyAggregate groups activities by calendar month, oldest first.
func MonthlyAggregate(acts []activity.Activity, lang language.Tag) []PeriodStats {
	return aggregate(acts, func(a *activity.Activity) (string, string, bool) {
		k := MonthOf(localStart(a))
		return k.String(), k.Label(lang), true
	})
}

// DailyAggregate groups the activities of one month by day, oldest first.
func DailyAggregate(acts []activity.Activity, month MonthKey, lang language.Tag) []PeriodStats {
	layout := "Jan 2"
	if activity.IsPolish(lang) {
		layout = "2.01.2006"
	}
	return aggregate(acts, func(a *activity.Activity) (string, string, bool) {
		t := localStart(a)
		if MonthOf(t) != month {
			return "", "", false
		}
		return t.Format("2006-01-02"), t.Format(layout), true
	})
}

// WeeklyAggregate groups activities by ISO week, oldest first.
func WeeklyAggregate(acts []activity.Activity) []PeriodStats {
	return aggregate(acts, func(a *activity.Activity) (string, string, bool) {
		k := weekKey(localStart(a))
		return k, k, true
	})
}

// Months lists the months that contain activities, most recent first.
func Months(acts []activity.Activity) []MonthKey {
	seen := make(map[MonthKey]struct{})
	var out []MonthKey
	for i := range acts {
		k := MonthOf(localStart(&acts[i]))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() > out[j].String() })
	return out
}
