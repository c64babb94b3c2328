package googlefit

// activityTypes maps Google Fit activity codes to provider activity type
// names. Sleep, vehicle, still and unknown codes have no entry.
var activityTypes = map[int64]string{
	1:   "Ride",
	9:   "Workout",
	14:  "Handcycle",
	15:  "MountainBikeRide",
	16:  "Ride",
	17:  "VirtualRide",
	18:  "VirtualRide",
	19:  "Ride",
	7:   "Walk",
	93:  "Walk",
	94:  "Walk",
	95:  "Walk",
	116: "Walk",
	8:   "Run",
	56:  "Run",
	57:  "Run",
	58:  "VirtualRun",
	88:  "VirtualRun",
	35:  "Hike",
	22:  "Workout",
	25:  "Elliptical",
	32:  "Golf",
	40:  "Kayaking",
	41:  "Kettlebell",
	52:  "RockClimbing",
	53:  "Rowing",
	54:  "Rowing",
	64:  "InlineSkate",
	66:  "BackcountrySki",
	67:  "NordicSki",
	68:  "AlpineSki",
	70:  "RollerSki",
	73:  "Snowboard",
	75:  "Snowshoe",
	77:  "StairStepper",
	78:  "StairStepper",
	79:  "StandUpPaddling",
	80:  "WeightTraining",
	81:  "Surfing",
	82:  "Swim",
	83:  "Swim",
	84:  "Swim",
	97:  "WeightTraining",
	98:  "Wheelchair",
	100: "Yoga",
	104: "IceSkate",
	105: "IceSkate",
	108: "Workout",
	113: "Crossfit",
	114: "Workout",
	115: "Workout",
}

// ActivityType returns the activity type name for a Google Fit activity code.
func ActivityType(code int64) (string, bool) {
	t, ok := activityTypes[code]
	return t, ok
}
