package rules

// levelThresholds holds the lifetime-point floor for each level. Index i
// is the minimum total for level i+1.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000}

// MaxLevel is the highest reachable level.
const MaxLevel = 10

// LevelFor derives a user's level from lifetime points.
func LevelFor(totalPoints int) int {
	level := 1
	for i, floor := range levelThresholds {
		if totalPoints >= floor {
			level = i + 1
		}
	}
	return level
}

// NextLevelAt returns the lifetime-point floor of the next level, or -1
// when the user is already at MaxLevel.
func NextLevelAt(totalPoints int) int {
	for _, floor := range levelThresholds {
		if totalPoints < floor {
			return floor
		}
	}
	return -1
}
