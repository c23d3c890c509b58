package game

// MaxLevel is the highest level a character can reach.
const MaxLevel = 20

// levelTable holds the cumulative XP required to reach each level.
// Index 0 = level 1 (0 XP), index 1 = level 2 (100 XP), etc.
var levelTable = [MaxLevel]int{
	0,     // Level 1
	100,   // Level 2
	250,   // Level 3
	450,   // Level 4
	700,   // Level 5
	1000,  // Level 6
	1400,  // Level 7
	1900,  // Level 8
	2500,  // Level 9
	3200,  // Level 10
	4000,  // Level 11
	5000,  // Level 12
	6200,  // Level 13
	7600,  // Level 14
	9200,  // Level 15
	11000, // Level 16
	13000, // Level 17
	15500, // Level 18
	18500, // Level 19
	22000, // Level 20
}

// ExpForLevel returns the cumulative XP required to reach the given level.
func ExpForLevel(level int) int {
	if level < 1 {
		return 0
	}
	if level > MaxLevel {
		return levelTable[MaxLevel-1]
	}
	return levelTable[level-1]
}

// ExpToNextLevel returns the remaining XP needed to reach the next level.
func ExpToNextLevel(level, experience int) int {
	if level >= MaxLevel {
		return 0
	}
	remaining := ExpForLevel(level+1) - experience
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LevelForExp returns the highest level whose threshold experience has reached.
func LevelForExp(experience int) int {
	level := 1
	for i := 1; i < MaxLevel; i++ {
		if experience < levelTable[i] {
			break
		}
		level = i + 1
	}
	return level
}
