// Package activity defines provider activity records and their classification.
package activity

import "time"

// Category is the coarse classification of an activity.
type Category string

const (
	Cycling Category = "cycling"
	Running Category = "running"
	Other   Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{Cycling, Running, Other}

// ParseCategory returns the category named by s.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case Cycling, Running, Other:
		return c, true
	}
	return "", false
}

// Raw is an activity summary as returned by a provider. Distances are in
// metres, times in seconds and speeds in metres per second. Heart rate and
// power fields are zero when the provider has no data.
type Raw struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Distance             float64   `json:"distance"`
	MovingTime           int64     `json:"moving_time"`
	ElapsedTime          int64     `json:"elapsed_time"`
	TotalElevationGain   float64   `json:"total_elevation_gain"`
	Type                 string    `json:"type"`
	StartDate            time.Time `json:"start_date"`
	StartDateLocal       time.Time `json:"start_date_local"`
	AverageSpeed         float64   `json:"average_speed"`
	MaxSpeed             float64   `json:"max_speed"`
	AverageCadence       float64   `json:"average_cadence,omitempty"`
	AverageWatts         float64   `json:"average_watts,omitempty"`
	MaxWatts             float64   `json:"max_watts,omitempty"`
	WeightedAverageWatts float64   `json:"weighted_average_watts,omitempty"`
	Kilojoules           float64   `json:"kilojoules,omitempty"`
	AverageHeartrate     float64   `json:"average_heartrate,omitempty"`
	MaxHeartrate         float64   `json:"max_heartrate,omitempty"`
	ElevHigh             float64   `json:"elev_high,omitempty"`
	ElevLow              float64   `json:"elev_low,omitempty"`
	Calories             float64   `json:"calories,omitempty"`
	Source               string    `json:"source,omitempty"`
}

// HasHeartrate reports whether the activity carries heart rate data.
func (r *Raw) HasHeartrate() bool {
	return r.AverageHeartrate > 0
}

// Activity is a raw activity with its derived category.
type Activity struct {
	Raw
	Category  Category `json:"category"`
	IsCycling bool     `json:"isCycling"`
	IsRunning bool     `json:"isRunning"`
}

// ListOptions parameterises a provider activity fetch. Zero values select
// the provider defaults.
type ListOptions struct {
	After   time.Time
	Before  time.Time
	Type    string
	PerPage int
}

// DefaultWindow is how far back a fetch reaches when After is not set.
const DefaultWindow = -4

// WindowStart returns After, or the default window start relative to now.
func (o ListOptions) WindowStart(now time.Time) time.Time {
	if !o.After.IsZero() {
		return o.After
	}
	return now.AddDate(0, DefaultWindow, 0)
}

// WindowEnd returns Before, or now.
func (o ListOptions) WindowEnd(now time.Time) time.Time {
	if !o.Before.IsZero() {
		return o.Before
	}
	return now
}
