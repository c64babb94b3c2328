package activity

import "sort"

var taxonomy = map[string]Category{
	"Ride":              Cycling,
	"Handcycle":         Cycling,
	"Velomobile":        Cycling,
	"VirtualRide":       Cycling,
	"EBikeRide":         Cycling,
	"EMountainBikeRide": Cycling,
	"MountainBikeRide":  Cycling,
	"GravelRide":        Cycling,

	"Run":        Running,
	"Walk":       Running,
	"Hike":       Running,
	"VirtualRun": Running,
	"TrailRun":   Running,
}

// CategoryOf returns the category for a provider activity type. Unknown and
// empty types are Other.
func CategoryOf(activityType string) Category {
	if c, ok := taxonomy[activityType]; ok {
		return c
	}
	return Other
}

// Classify derives the category of a raw activity.
func Classify(r Raw) Activity {
	c := CategoryOf(r.Type)
	return Activity{
		Raw:       r,
		Category:  c,
		IsCycling: c == Cycling,
		IsRunning: c == Running,
	}
}

// ClassifyAll classifies every activity, keeping the input order.
func ClassifyAll(raws []Raw) []Activity {
	out := make([]Activity, 0, len(raws))
	for _, r := range raws {
		out = append(out, Classify(r))
	}
	return out
}

// Filter returns the activities in category c.
func Filter(acts []Activity, c Category) []Activity {
	var out []Activity
	for _, a := range acts {
		if a.Category == c {
			out = append(out, a)
		}
	}
	return out
}

// GroupByCategory buckets activities by category. Categories with no
// activities are absent from the map.
func GroupByCategory(acts []Activity) map[Category][]Activity {
	groups := make(map[Category][]Activity)
	for _, a := range acts {
		groups[a.Category] = append(groups[a.Category], a)
	}
	return groups
}

// TypesIn returns the provider types that classify as c.
func TypesIn(c Category) []string {
	var types []string
	for t, tc := range taxonomy {
		if tc == c {
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}
