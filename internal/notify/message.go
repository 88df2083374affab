package notify

import (
	"fmt"
	"strings"

	"github.com/aspirehq/aspire/backend/internal/habits"
)

// maxReminderHabits caps how many habits a channel reminder names.
const maxReminderHabits = 5

// BuildReminder formats the generic channel reminder. It lists up to five
// habits with a per-type label and is intentionally not filtered by the day's
// completion state.
func BuildReminder(displayName string, userHabits []habits.Habit) string {
	var b strings.Builder
	name := strings.TrimSpace(displayName)
	if name != "" {
		fmt.Fprintf(&b, "Hi %s! ", name)
	}
	b.WriteString("Time for your daily habit check-in.")

	if len(userHabits) == 0 {
		b.WriteString(" Set up a habit to get started.")
		return b.String()
	}

	b.WriteString("\n")
	shown := userHabits
	if len(shown) > maxReminderHabits {
		shown = shown[:maxReminderHabits]
	}
	for _, habit := range shown {
		label := "to reinforce"
		if habit.Type == habits.HabitTypeStop {
			label = "to reduce"
		}
		fmt.Fprintf(&b, "\n- %s (%s)", habit.Name, label)
	}
	if extra := len(userHabits) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n…and %d more", extra)
	}
	return b.String()
}
