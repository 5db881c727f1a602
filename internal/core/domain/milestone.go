package domain

import (
	"math"
	"time"
)

// FinalGoalDays is the length of the full journey.
const FinalGoalDays = 365

// MilestoneTier is one rung of a gender-specific progression ladder, keyed by
// elapsed enrollment days.
type MilestoneTier struct {
	Gene           string `json:"gene" bson:"gene"` // gender tag
	Level          int    `json:"level" bson:"level"`
	Title          string `json:"title" bson:"title"`
	Emoji          string `json:"emoji" bson:"emoji"`
	MediaURL       string `json:"media_url,omitempty" bson:"media_url,omitempty"`
	MilestoneDay   int    `json:"milestone_day" bson:"milestone_day"`
	DaysToNext     int    `json:"days_to_next" bson:"days_to_next"`
	NextLevelTitle string `json:"next_level_title,omitempty" bson:"next_level_title,omitempty"`
}

// Progress is the computed dashboard progress view.
type Progress struct {
	DaysInFocus     int           `json:"days_in_focus"`
	ProgressPercent int           `json:"progress_percent"`
	CurrentTier     MilestoneTier `json:"current_tier"`
	DaysToNextTier  int           `json:"days_to_next_tier"`
	DaysToFinalGoal int           `json:"days_to_final_goal"`
}

// ComputeProgress maps a device's enrollment time to a milestone tier, the
// percent toward the next tier, and days to the final goal. Pure; now is
// passed explicitly so tests can pin it.
//
// The ladder is filtered by gender. A gender with no entries degrades to the
// first available tier of any gender rather than failing the dashboard.
func ComputeProgress(deviceAddedAt *time.Time, gender string, ladder []MilestoneTier, now time.Time) Progress {
	days := 0
	if deviceAddedAt != nil {
		elapsed := now.Sub(*deviceAddedAt)
		if elapsed > 0 {
			days = int(math.Floor(elapsed.Hours() / 24))
		}
	}

	filtered := filterByGene(ladder, gender)
	if len(filtered) == 0 {
		if len(ladder) == 0 {
			return Progress{DaysToFinalGoal: maxInt(0, FinalGoalDays-days), DaysInFocus: days}
		}
		filtered = []MilestoneTier{ladder[0]}
	}

	// Descending scan: the tier with the largest milestone day not beyond the
	// elapsed days wins. Hitting a boundary exactly counts as reaching it.
	tier := filtered[0]
	for i := len(filtered) - 1; i >= 0; i-- {
		if filtered[i].MilestoneDay <= days {
			tier = filtered[i]
			break
		}
	}

	p := Progress{
		DaysInFocus:     days,
		CurrentTier:     tier,
		DaysToFinalGoal: maxInt(0, FinalGoalDays-days),
	}

	if tier.NextLevelTitle != "" && tier.DaysToNext > 0 {
		into := days - tier.MilestoneDay
		p.DaysToNextTier = maxInt(0, tier.DaysToNext-into)
		p.ProgressPercent = minInt(100, int(math.Round(100*float64(into)/float64(tier.DaysToNext))))
	} else {
		p.ProgressPercent = 100
	}

	return p
}

func filterByGene(ladder []MilestoneTier, gene string) []MilestoneTier {
	var out []MilestoneTier
	for _, t := range ladder {
		if t.Gene == gene {
			out = append(out, t)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// DefaultLadder is the built-in milestone ladder used when the backend fetch
// fails or has not completed yet. Ordered by milestone day within each gender.
var DefaultLadder = []MilestoneTier{
	{Gene: "male", Level: 0, Title: "Rookie", Emoji: "🌱", MilestoneDay: 0, DaysToNext: 7, NextLevelTitle: "Challenger"},
	{Gene: "male", Level: 1, Title: "Challenger", Emoji: "⚡", MilestoneDay: 7, DaysToNext: 7, NextLevelTitle: "Fighter"},
	{Gene: "male", Level: 2, Title: "Fighter", Emoji: "🥊", MilestoneDay: 14, DaysToNext: 16, NextLevelTitle: "Warrior"},
	{Gene: "male", Level: 3, Title: "Warrior", Emoji: "⚔️", MilestoneDay: 30, DaysToNext: 30, NextLevelTitle: "Guardian"},
	{Gene: "male", Level: 4, Title: "Guardian", Emoji: "🛡️", MilestoneDay: 60, DaysToNext: 30, NextLevelTitle: "Veteran"},
	{Gene: "male", Level: 5, Title: "Veteran", Emoji: "🎖️", MilestoneDay: 90, DaysToNext: 90, NextLevelTitle: "Master"},
	{Gene: "male", Level: 6, Title: "Master", Emoji: "🏔️", MilestoneDay: 180, DaysToNext: 185, NextLevelTitle: "Legend"},
	{Gene: "male", Level: 7, Title: "Legend", Emoji: "👑", MilestoneDay: 365},

	{Gene: "female", Level: 0, Title: "Seedling", Emoji: "🌱", MilestoneDay: 0, DaysToNext: 7, NextLevelTitle: "Bloom"},
	{Gene: "female", Level: 1, Title: "Bloom", Emoji: "🌸", MilestoneDay: 7, DaysToNext: 7, NextLevelTitle: "Phoenix"},
	{Gene: "female", Level: 2, Title: "Phoenix", Emoji: "🔥", MilestoneDay: 14, DaysToNext: 16, NextLevelTitle: "Huntress"},
	{Gene: "female", Level: 3, Title: "Huntress", Emoji: "🏹", MilestoneDay: 30, DaysToNext: 30, NextLevelTitle: "Sentinel"},
	{Gene: "female", Level: 4, Title: "Sentinel", Emoji: "🛡️", MilestoneDay: 60, DaysToNext: 30, NextLevelTitle: "Valkyrie"},
	{Gene: "female", Level: 5, Title: "Valkyrie", Emoji: "🎖️", MilestoneDay: 90, DaysToNext: 90, NextLevelTitle: "Empress"},
	{Gene: "female", Level: 6, Title: "Empress", Emoji: "💎", MilestoneDay: 180, DaysToNext: 185, NextLevelTitle: "Icon"},
	{Gene: "female", Level: 7, Title: "Icon", Emoji: "👑", MilestoneDay: 365},
}
