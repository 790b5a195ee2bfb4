// Package leveling converts accumulated XP into levels and computes the XP
// awarded for each answer.
package leveling

import (
	"math"

	"github.com/danieldreier/mcp-vocab/internal/srs"
)

// Tier is one rung of the level ladder.
type Tier struct {
	XP    int    `json:"xp"`
	Title string `json:"title"`
}

// Tiers lists the level thresholds in ascending order. Level n is Tiers[n-1].
var Tiers = []Tier{
	{0, "Beginner"},
	{100, "Learner"},
	{300, "Student"},
	{600, "Intermediate"},
	{1000, "Advanced"},
	{1500, "Expert"},
	{2500, "Master"},
	{4000, "Grandmaster"},
	{6000, "Legend"},
	{10000, "Vocabulary God"},
}

// Base XP per rating and the bonus caps applied on top of it.
const (
	XPAgain           = 5
	XPGood            = 10
	XPEasy            = 15
	StreakBonusPerDay = 0.05
	MaxStreakBonus    = 0.5
	QuizBonus         = 0.2
)

// LevelInfo describes where a total XP amount sits on the ladder.
type LevelInfo struct {
	Level           int     `json:"level"`
	Title           string  `json:"title"`
	ProgressPercent float64 `json:"progress_percent"`
	NextLevelXP     int     `json:"next_level_xp"`
}

// LevelOf returns the level for totalXP. Negative totals count as zero.
// On the final tier the progress is 100% and NextLevelXP is the tier's own
// threshold.
func LevelOf(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	idx := 0
	for i := len(Tiers) - 1; i >= 0; i-- {
		if totalXP >= Tiers[i].XP {
			idx = i
			break
		}
	}

	current := Tiers[idx]
	info := LevelInfo{
		Level:           idx + 1,
		Title:           current.Title,
		ProgressPercent: 100,
		NextLevelXP:     current.XP,
	}
	if idx+1 < len(Tiers) {
		next := Tiers[idx+1]
		info.NextLevelXP = next.XP
		pct := float64(totalXP-current.XP) / float64(next.XP-current.XP) * 100
		info.ProgressPercent = math.Min(pct, 100)
	}
	return info
}

// XPForAnswer returns the XP earned for one answer given the learner's
// current day streak and whether the answer came from a quiz.
func XPForAnswer(q srs.Quality, streakDays int, isQuiz bool) int {
	var base float64
	switch q {
	case srs.Again:
		base = XPAgain
	case srs.Good:
		base = XPGood
	default:
		base = XPEasy
	}

	bonus := math.Min(float64(max(streakDays, 0))*StreakBonusPerDay, MaxStreakBonus)
	if isQuiz {
		bonus += QuizBonus
	}
	return int(math.Round(base * (1 + bonus)))
}
