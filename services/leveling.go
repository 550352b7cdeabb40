package services

// Leveling is presentation-side progression derived from XP: 100 XP per
// level, flat. Titles band levels into ranks for display.

const xpPerLevel = 100

func LevelFromXP(xp int) int {
	if xp < 0 {
		return 0
	}
	return xp / xpPerLevel
}

// XPForNextLevel returns the total XP at which the next level is reached.
func XPForNextLevel(currentXP int) int {
	return (LevelFromXP(currentXP) + 1) * xpPerLevel
}

// XPProgress returns the percentage progress (0–100) through the current
// level.
func XPProgress(currentXP int) int {
	level := LevelFromXP(currentXP)
	levelFloor := level * xpPerLevel
	progress := (currentXP - levelFloor) * 100 / xpPerLevel
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

func TitleForLevel(level int) string {
	switch {
	case level >= 50:
		return "Grandmaster"
	case level >= 40:
		return "Platinum"
	case level >= 30:
		return "Diamond"
	case level >= 20:
		return "Gold"
	case level >= 10:
		return "Silver"
	default:
		return "Bronze"
	}
}
