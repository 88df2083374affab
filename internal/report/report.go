// Package report builds the weekly habit summary and dispatches it through a
// transactional email API.
package report

import (
	"time"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/progress"
)

// HabitWeek summarizes one habit's last seven tracked days.
type HabitWeek struct {
	Name          string
	Type          habits.HabitType
	CompletedDays int
	TrackedDays   int
	CurrentStreak int
	RatePercent   int
}

// WeeklyReport is the precomputed object the email templates render.
type WeeklyReport struct {
	DisplayName string
	WeekStart   time.Time
	WeekEnd     time.Time
	Habits      []HabitWeek
	TotalDone   int
	TotalSlots  int
}

// BuildWeekly derives the weekly report for the seven local calendar days
// ending at now. Habits whose window does not overlap the week contribute no
// tracked days.
func BuildWeekly(displayName string, userHabits []habits.Habit, now time.Time, loc *time.Location) WeeklyReport {
	if loc == nil {
		loc = time.UTC
	}
	endIndex := progress.DayIndex(now, loc)
	startIndex := endIndex - 6
	if startIndex < 0 {
		startIndex = 0
	}

	summary := WeeklyReport{
		DisplayName: displayName,
		WeekStart:   progress.Epoch.AddDate(0, 0, startIndex),
		WeekEnd:     progress.Epoch.AddDate(0, 0, endIndex),
	}

	for _, habit := range userHabits {
		offset := progress.CreationOffset(habit.CreatedAt, loc)
		week := HabitWeek{
			Name:          habit.Name,
			Type:          habit.Type,
			CurrentStreak: progress.CurrentStreak(habit.Progress),
		}
		for day := startIndex; day <= endIndex; day++ {
			if !progress.ActiveOn(offset, habit.TotalDays, day) {
				continue
			}
			week.TrackedDays++
			slot := progress.Slot(offset, day)
			if slot >= 0 && slot < len(habit.Progress) && habit.Progress[slot] {
				week.CompletedDays++
			}
		}
		if week.TrackedDays > 0 {
			week.RatePercent = week.CompletedDays * 100 / week.TrackedDays
		}
		summary.Habits = append(summary.Habits, week)
		summary.TotalDone += week.CompletedDays
		summary.TotalSlots += week.TrackedDays
	}
	return summary
}
