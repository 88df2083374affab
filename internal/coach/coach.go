// Package coach derives read-only motivational summaries from a user's habits.
// Everything here is a pure function over already-loaded data; calling it
// repeatedly is safe.
package coach

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/progress"
)

// HabitStats summarizes one habit's tracked progress.
type HabitStats struct {
	HabitID        string  `json:"habitId"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	CurrentStreak  int     `json:"currentStreak"`
	LongestStreak  int     `json:"longestStreak"`
	CompletionRate float64 `json:"completionRate"`
	TotalDays      int     `json:"totalDays"`
}

// Stats computes per-habit streaks and completion rates.
func Stats(userHabits []habits.Habit) []HabitStats {
	stats := make([]HabitStats, 0, len(userHabits))
	for _, habit := range userHabits {
		stats = append(stats, HabitStats{
			HabitID:        habit.ID,
			Name:           habit.Name,
			Type:           string(habit.Type),
			CurrentStreak:  progress.CurrentStreak(habit.Progress),
			LongestStreak:  progress.LongestStreak(habit.Progress),
			CompletionRate: progress.CompletionRate(habit.Progress),
			TotalDays:      habit.TotalDays,
		})
	}
	return stats
}

// TopStreaks ranks habits by current streak and returns up to three with a
// non-zero streak.
func TopStreaks(userHabits []habits.Habit) []HabitStats {
	stats := Stats(userHabits)
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].CurrentStreak > stats[j].CurrentStreak
	})
	top := make([]HabitStats, 0, 3)
	for _, entry := range stats {
		if entry.CurrentStreak == 0 {
			continue
		}
		top = append(top, entry)
		if len(top) == 3 {
			break
		}
	}
	return top
}

// TodayRate computes the completed fraction of habits active today.
func TodayRate(status habits.DayStatus) float64 {
	total := len(status.Done) + len(status.Remaining)
	if total == 0 {
		return 0
	}
	return float64(len(status.Done)) / float64(total)
}

var quotes = []string{
	"Every action you take is a vote for the type of person you wish to become.",
	"You do not rise to the level of your goals. You fall to the level of your systems.",
	"Small habits don't add up. They compound.",
	"Success is the product of daily habits, not once-in-a-lifetime transformations.",
	"The most effective form of motivation is progress.",
	"Habits are the compound interest of self-improvement.",
}

// Greeting returns a time-of-day salutation for the user's local clock.
func Greeting(localTime time.Time) string {
	switch hour := localTime.Hour(); {
	case hour < 5:
		return "Burning the midnight oil"
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// PickQuote selects one static quote. Pass a nil picker for a random choice.
func PickQuote(pick func(n int) int) string {
	if pick == nil {
		pick = rand.Intn
	}
	return quotes[pick(len(quotes))%len(quotes)]
}

// Motivation templates the coaching message: greeting, streak callout or
// nudge, today's completion and a quote.
func Motivation(displayName string, userHabits []habits.Habit, status habits.DayStatus, localTime time.Time, pick func(n int) int) string {
	greeting := Greeting(localTime)
	if displayName != "" {
		greeting = fmt.Sprintf("%s, %s!", greeting, displayName)
	} else {
		greeting += "!"
	}

	var callout string
	if top := TopStreaks(userHabits); len(top) > 0 {
		callout = fmt.Sprintf("Your longest run right now is %q at %d days straight.",
			top[0].Name, top[0].CurrentStreak)
	} else {
		callout = "No active streaks yet. Today is a good day to start one."
	}

	rate := TodayRate(status)
	todayLine := fmt.Sprintf("Today you're at %d%% (%d of %d habits done).",
		int(rate*100), len(status.Done), len(status.Done)+len(status.Remaining))
	if len(status.Done)+len(status.Remaining) == 0 {
		todayLine = "Nothing is scheduled for today."
	}

	return fmt.Sprintf("%s %s %s\n\n%q", greeting, callout, todayLine, PickQuote(pick))
}
