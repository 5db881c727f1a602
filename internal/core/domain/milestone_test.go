package domain

import (
	"testing"
	"time"
)

var progressNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := progressNow.AddDate(0, 0, -n)
	return &t
}

func TestComputeProgress_NoDevice(t *testing.T) {
	p := ComputeProgress(nil, "male", DefaultLadder, progressNow)

	if p.DaysInFocus != 0 {
		t.Errorf("DaysInFocus = %d, want 0", p.DaysInFocus)
	}
	if p.ProgressPercent != 0 {
		t.Errorf("ProgressPercent = %d, want 0", p.ProgressPercent)
	}
	if p.CurrentTier.Level != 0 {
		t.Errorf("CurrentTier.Level = %d, want 0", p.CurrentTier.Level)
	}
	if p.DaysToFinalGoal != 365 {
		t.Errorf("DaysToFinalGoal = %d, want 365", p.DaysToFinalGoal)
	}
}

func TestComputeProgress_FighterAt14Days(t *testing.T) {
	p := ComputeProgress(daysAgo(14), "male", DefaultLadder, progressNow)

	if p.CurrentTier.Title != "Fighter" {
		t.Fatalf("CurrentTier = %q, want Fighter", p.CurrentTier.Title)
	}
	if p.DaysInFocus != 14 {
		t.Errorf("DaysInFocus = %d, want 14", p.DaysInFocus)
	}
	// Day 14 exactly: 0 days into the tier, full DaysToNext remaining.
	if p.DaysToNextTier != p.CurrentTier.DaysToNext {
		t.Errorf("DaysToNextTier = %d, want %d", p.DaysToNextTier, p.CurrentTier.DaysToNext)
	}
	if p.ProgressPercent != 0 {
		t.Errorf("ProgressPercent = %d, want 0", p.ProgressPercent)
	}
}

func TestComputeProgress_BoundaryIsInclusive(t *testing.T) {
	// Exactly on a milestone day lands on that milestone, not the previous.
	p := ComputeProgress(daysAgo(30), "male", DefaultLadder, progressNow)
	if p.CurrentTier.Title != "Warrior" {
		t.Errorf("CurrentTier = %q, want Warrior", p.CurrentTier.Title)
	}
}

func TestComputeProgress_TopTier(t *testing.T) {
	p := ComputeProgress(daysAgo(365), "male", DefaultLadder, progressNow)

	if p.CurrentTier.Title != "Legend" {
		t.Errorf("CurrentTier = %q, want Legend", p.CurrentTier.Title)
	}
	if p.ProgressPercent != 100 {
		t.Errorf("ProgressPercent = %d, want 100", p.ProgressPercent)
	}
	if p.DaysToFinalGoal != 0 {
		t.Errorf("DaysToFinalGoal = %d, want 0", p.DaysToFinalGoal)
	}
}

func TestComputeProgress_MidTierPercent(t *testing.T) {
	// 22 days: Fighter (day 14, 16 to next) — 8 days in, round(100*8/16) = 50.
	p := ComputeProgress(daysAgo(22), "male", DefaultLadder, progressNow)

	if p.CurrentTier.Title != "Fighter" {
		t.Fatalf("CurrentTier = %q, want Fighter", p.CurrentTier.Title)
	}
	if p.ProgressPercent != 50 {
		t.Errorf("ProgressPercent = %d, want 50", p.ProgressPercent)
	}
	if p.DaysToNextTier != 8 {
		t.Errorf("DaysToNextTier = %d, want 8", p.DaysToNextTier)
	}
}

func TestComputeProgress_UnknownGenderDegrades(t *testing.T) {
	p := ComputeProgress(daysAgo(10), "other", DefaultLadder, progressNow)

	// Degrades to the first available tier of any gender instead of failing.
	if p.CurrentTier.Title != DefaultLadder[0].Title {
		t.Errorf("CurrentTier = %q, want %q", p.CurrentTier.Title, DefaultLadder[0].Title)
	}
	if p.DaysInFocus != 10 {
		t.Errorf("DaysInFocus = %d, want 10", p.DaysInFocus)
	}
}

func TestComputeProgress_FutureAddedDateClampsToZero(t *testing.T) {
	future := progressNow.Add(48 * time.Hour)
	p := ComputeProgress(&future, "male", DefaultLadder, progressNow)
	if p.DaysInFocus != 0 {
		t.Errorf("DaysInFocus = %d, want 0", p.DaysInFocus)
	}
}

// DefaultLadder internal consistency: DaysToNext always reaches the next
// milestone day within a gender.
func TestDefaultLadder_Consistent(t *testing.T) {
	for _, gene := range []string{"male", "female"} {
		tiers := filterByGene(DefaultLadder, gene)
		for i, tier := range tiers {
			if i == len(tiers)-1 {
				if tier.NextLevelTitle != "" {
					t.Errorf("%s top tier %q must have no next title", gene, tier.Title)
				}
				continue
			}
			next := tiers[i+1]
			if tier.MilestoneDay+tier.DaysToNext != next.MilestoneDay {
				t.Errorf("%s tier %q: %d+%d != next milestone %d",
					gene, tier.Title, tier.MilestoneDay, tier.DaysToNext, next.MilestoneDay)
			}
			if tier.NextLevelTitle != next.Title {
				t.Errorf("%s tier %q: next title %q, want %q", gene, tier.Title, tier.NextLevelTitle, next.Title)
			}
		}
	}
}
