package progress

import (
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := Location(name)
	if err != nil {
		t.Fatalf("unexpected location error: %v", err)
	}
	return loc
}

func TestDayIndexAtEpochIsZero(t *testing.T) {
	index := DayIndex(time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC), time.UTC)
	if index != 0 {
		t.Fatalf("expected day index 0 at epoch date, got %d", index)
	}
}

func TestDayIndexDayAfterEpoch(t *testing.T) {
	index := DayIndex(time.Date(2025, time.October, 2, 0, 30, 0, 0, time.UTC), time.UTC)
	if index != 1 {
		t.Fatalf("expected day index 1, got %d", index)
	}
}

func TestDayIndexClampsBeforeEpoch(t *testing.T) {
	index := DayIndex(time.Date(2025, time.September, 20, 8, 0, 0, 0, time.UTC), time.UTC)
	if index != 0 {
		t.Fatalf("expected pre-epoch dates to clamp to 0, got %d", index)
	}
}

func TestDayIndexUsesLocalCalendarDate(t *testing.T) {
	paris := mustLocation(t, "Europe/Paris")
	// 23:30 UTC on Oct 1 is already Oct 2 in Paris.
	instant := time.Date(2025, time.October, 1, 23, 30, 0, 0, time.UTC)
	if got := DayIndex(instant, time.UTC); got != 0 {
		t.Fatalf("expected UTC day index 0, got %d", got)
	}
	if got := DayIndex(instant, paris); got != 1 {
		t.Fatalf("expected Paris day index 1, got %d", got)
	}
}

func TestDayIndexMonotoneAcrossTimezones(t *testing.T) {
	zones := []string{"UTC", "Europe/Paris", "America/New_York", "Asia/Tokyo", "Pacific/Auckland"}
	for _, zone := range zones {
		loc := mustLocation(t, zone)
		previous := -1
		for day := 0; day < 40; day++ {
			instant := Epoch.AddDate(0, 0, day).Add(5 * time.Hour)
			index := DayIndex(instant, loc)
			if index < 0 {
				t.Fatalf("zone %s day %d: negative index %d", zone, day, index)
			}
			if index < previous {
				t.Fatalf("zone %s day %d: index %d regressed below %d", zone, day, index, previous)
			}
			previous = index
		}
	}
}

func TestLocationRejectsUnknownName(t *testing.T) {
	if _, err := Location("Mars/Olympus_Mons"); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestLocationDefaultsToUTC(t *testing.T) {
	loc, err := Location("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("expected UTC for empty name, got %v", loc)
	}
}

func TestActiveWindow(t *testing.T) {
	const start, totalDays = 4, 3
	cases := []struct {
		day    int
		active bool
	}{
		{day: 3, active: false},
		{day: 4, active: true},
		{day: 5, active: true},
		{day: 6, active: true},
		{day: 7, active: false},
	}
	for _, tc := range cases {
		if got := ActiveOn(start, totalDays, tc.day); got != tc.active {
			t.Fatalf("day %d: expected active=%v, got %v", tc.day, tc.active, got)
		}
	}
}

func TestScenarioHabitCreatedOnEpoch(t *testing.T) {
	createdAt := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
	today := time.Date(2025, time.October, 2, 10, 0, 0, 0, time.UTC)

	offset := CreationOffset(createdAt, time.UTC)
	if offset != 0 {
		t.Fatalf("expected creation offset 0, got %d", offset)
	}
	index := DayIndex(today, time.UTC)
	if index != 1 {
		t.Fatalf("expected day index 1, got %d", index)
	}
	if !ActiveOn(offset, 3, index) {
		t.Fatalf("expected habit to be active on day %d", index)
	}
	if slot := Slot(offset, index); slot != 1 {
		t.Fatalf("expected progress slot 1, got %d", slot)
	}
}

func TestCurrentStreak(t *testing.T) {
	cases := []struct {
		days     []bool
		expected int
	}{
		{days: []bool{true, true, false, true}, expected: 1},
		{days: []bool{true, true, true}, expected: 3},
		{days: []bool{false}, expected: 0},
		{days: nil, expected: 0},
		{days: []bool{false, true, true}, expected: 2},
	}
	for _, tc := range cases {
		if got := CurrentStreak(tc.days); got != tc.expected {
			t.Fatalf("days %v: expected streak %d, got %d", tc.days, tc.expected, got)
		}
	}
}

func TestLongestStreak(t *testing.T) {
	cases := []struct {
		days     []bool
		expected int
	}{
		{days: []bool{true, true, false, true}, expected: 2},
		{days: []bool{true, false, true, true, true, false}, expected: 3},
		{days: []bool{false, false}, expected: 0},
		{days: nil, expected: 0},
	}
	for _, tc := range cases {
		if got := LongestStreak(tc.days); got != tc.expected {
			t.Fatalf("days %v: expected longest %d, got %d", tc.days, tc.expected, got)
		}
	}
}

func TestCompletionRate(t *testing.T) {
	if got := CompletionRate(nil); got != 0 {
		t.Fatalf("expected empty sequence to rate 0, got %f", got)
	}
	if got := CompletionRate([]bool{true, false, true, false}); got != 0.5 {
		t.Fatalf("expected rate 0.5, got %f", got)
	}
}

func TestToggleExtendsBeyondEnd(t *testing.T) {
	days := []bool{true}
	days = Toggle(days, 3)
	if len(days) != 4 {
		t.Fatalf("expected length 4 after extension, got %d", len(days))
	}
	expected := []bool{true, false, false, true}
	for i := range expected {
		if days[i] != expected[i] {
			t.Fatalf("slot %d: expected %v, got %v", i, expected[i], days[i])
		}
	}
}

func TestToggleFlipsExistingSlot(t *testing.T) {
	days := Toggle([]bool{true, true}, 1)
	if days[1] {
		t.Fatalf("expected slot 1 to flip to false")
	}
	if len(days) != 2 {
		t.Fatalf("toggle must not change length when slot exists, got %d", len(days))
	}
}
