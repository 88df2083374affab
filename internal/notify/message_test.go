package notify_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/notify"
)

func TestBuildReminderWithoutHabits(t *testing.T) {
	message := notify.BuildReminder("", nil)
	if !strings.Contains(message, "Set up a habit") {
		t.Fatalf("expected setup nudge, got %q", message)
	}
	if strings.Contains(message, "Hi ") {
		t.Fatalf("expected no greeting without display name, got %q", message)
	}
}

func TestBuildReminderLabelsHabitTypes(t *testing.T) {
	message := notify.BuildReminder("Sam", []habits.Habit{
		{Name: "Run", Type: habits.HabitTypeStart},
		{Name: "Late snacks", Type: habits.HabitTypeStop},
	})
	if !strings.Contains(message, "Hi Sam!") {
		t.Fatalf("expected greeting, got %q", message)
	}
	if !strings.Contains(message, "Run (to reinforce)") {
		t.Fatalf("expected reinforce label, got %q", message)
	}
	if !strings.Contains(message, "Late snacks (to reduce)") {
		t.Fatalf("expected reduce label, got %q", message)
	}
}

func TestBuildReminderCapsListedHabits(t *testing.T) {
	many := make([]habits.Habit, 8)
	for i := range many {
		many[i] = habits.Habit{Name: fmt.Sprintf("Habit %d", i), Type: habits.HabitTypeStart}
	}
	message := notify.BuildReminder("", many)
	if !strings.Contains(message, "and 3 more") {
		t.Fatalf("expected overflow note, got %q", message)
	}
	if strings.Contains(message, "Habit 5") {
		t.Fatalf("expected sixth habit omitted, got %q", message)
	}
}
