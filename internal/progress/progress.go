// Package progress holds the pure day-index, streak and completion-rate
// arithmetic shared by every handler. It performs no I/O and reads no clock;
// callers supply times and locations.
package progress

import (
	"errors"
	"time"
)

// Epoch anchors day index zero for all habits: 2025-10-01, UTC midnight.
var Epoch = time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400

// ErrUnknownTimezone indicates an IANA timezone name that could not be loaded.
var ErrUnknownTimezone = errors.New("progress: unknown timezone")

// Location resolves an IANA timezone name, defaulting to UTC for the empty string.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Join(ErrUnknownTimezone, err)
	}
	return loc, nil
}

// DayIndex returns the zero-based offset of the calendar day containing t,
// resolved in loc, from the global epoch. Dates before the epoch clamp to 0.
func DayIndex(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	year, month, day := local.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	index := int(midnight.Sub(Epoch).Seconds()) / secondsPerDay
	if index < 0 {
		return 0
	}
	return index
}

// CreationOffset returns the day index a habit's tracking window starts at,
// derived from its creation time in the user's timezone.
func CreationOffset(createdAt time.Time, loc *time.Location) int {
	return DayIndex(createdAt, loc)
}

// ActiveOn reports whether a habit with the given window start and duration is
// tracked on day index k.
func ActiveOn(startOffset, totalDays, k int) bool {
	return k >= startOffset && k < startOffset+totalDays
}

// Slot maps a global day index onto a habit-local progress index. The result is
// negative when k precedes the habit's window.
func Slot(startOffset, k int) int {
	return k - startOffset
}

// CurrentStreak counts trailing completed days from the end of the sequence.
func CurrentStreak(days []bool) int {
	streak := 0
	for i := len(days) - 1; i >= 0; i-- {
		if !days[i] {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the length of the longest run of completed days.
func LongestStreak(days []bool) int {
	longest, run := 0, 0
	for _, done := range days {
		if !done {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return longest
}

// CompletedCount returns the number of completed days in the sequence.
func CompletedCount(days []bool) int {
	count := 0
	for _, done := range days {
		if done {
			count++
		}
	}
	return count
}

// CompletionRate returns the completed fraction of the sequence in [0, 1].
// An empty sequence rates 0.
func CompletionRate(days []bool) float64 {
	if len(days) == 0 {
		return 0
	}
	return float64(CompletedCount(days)) / float64(len(days))
}

// ExtendTo grows days with false entries until index slot exists, then returns
// the extended sequence. The sequence is never truncated.
func ExtendTo(days []bool, slot int) []bool {
	for len(days) <= slot {
		days = append(days, false)
	}
	return days
}

// Toggle flips the completion flag at slot, extending the sequence first when
// slot lies beyond its current end. It returns the updated sequence.
func Toggle(days []bool, slot int) []bool {
	days = ExtendTo(days, slot)
	days[slot] = !days[slot]
	return days
}
