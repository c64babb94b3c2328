package activity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var supported = []language.Tag{language.English, language.Polish}

var matcher = language.NewMatcher(supported)

// MatchLanguage returns the supported display language closest to the given
// BCP 47 tags or Accept-Language values. English is the fallback.
func MatchLanguage(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		t, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, t...)
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// IsPolish reports whether lang selects Polish labels.
func IsPolish(lang language.Tag) bool {
	b, _ := lang.Base()
	return b.String() == "pl"
}

var englishNames = map[string]string{
	"EBikeRide":         "E-Bike Ride",
	"EMountainBikeRide": "E-Mountain Bike Ride",
	"Crossfit":          "CrossFit",
	"StandUpPaddling":   "Stand Up Paddling",
}

var polishNames = map[string]string{
	"Ride":            "Jazda rowerem",
	"VirtualRide":     "Wirtualna jazda rowerem",
	"EBikeRide":       "Jazda rowerem elektrycznym",
	"Run":             "Bieg",
	"VirtualRun":      "Wirtualny bieg",
	"TrailRun":        "Bieg terenowy",
	"Walk":            "Spacer",
	"Hike":            "Wędrówka",
	"Swim":            "Pływanie",
	"Yoga":            "Joga",
	"Workout":         "Trening",
	"Handcycle":       "Rower ręczny",
	"Velomobile":      "Velomobile",
	"AlpineSki":       "Narciarstwo alpejskie",
	"BackcountrySki":  "Narciarstwo backcountry",
	"Canoeing":        "Kajakarstwo",
	"Crossfit":        "Crossfit",
	"Elliptical":      "Orbitrek",
	"Golf":            "Golf",
	"IceSkate":        "Łyżwiarstwo",
	"InlineSkate":     "Rolki",
	"Kayaking":        "Kajakarstwo",
	"Kettlebell":      "Kettlebell",
	"NordicSki":       "Narciarstwo biegowe",
	"RockClimbing":    "Wspinaczka",
	"RollerSki":       "Narty rolkowe",
	"Rowing":          "Wioślarstwo",
	"Snowboard":       "Snowboard",
	"Snowshoe":        "Rakiety śnieżne",
	"StairStepper":    "Stepper",
	"StandUpPaddling": "SUP",
	"Surfing":         "Surfing",
	"WeightTraining":  "Trening siłowy",
	"Wheelchair":      "Wózek inwalidzki",
}

// DisplayName returns a human readable label for a provider activity type.
// Types without a translation are split on their word boundaries.
func DisplayName(activityType string, lang language.Tag) string {
	names := englishNames
	if IsPolish(lang) {
		names = polishNames
	}
	if n, ok := names[activityType]; ok {
		return n
	}
	if activityType == "" {
		return cases.Title(lang).String(string(Other))
	}
	return cases.Title(lang).String(splitWords(activityType))
}

// splitWords turns "AlpineSki" into "Alpine Ski".
func splitWords(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
