package habits

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HabitType distinguishes behaviors the user wants to build from behaviors the
// user wants to quit.
type HabitType string

const (
	// HabitTypeStart marks a behavior to reinforce daily.
	HabitTypeStart HabitType = "start"
	// HabitTypeStop marks a behavior to reduce daily.
	HabitTypeStop HabitType = "stop"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidHabitType indicates a habit type outside start/stop.
	ErrInvalidHabitType = errors.New("habits: invalid habit type")
	// ErrInvalidID indicates an empty identifier or one exceeding storage bounds.
	ErrInvalidID = errors.New("habits: invalid identifier")
	// ErrInvalidName indicates an empty entity name.
	ErrInvalidName = errors.New("habits: invalid name")
	// ErrInvalidTotalDays indicates a non-positive tracking duration.
	ErrInvalidTotalDays = errors.New("habits: total days must be positive")
	// ErrNotFound indicates the requested entity does not exist for the user.
	ErrNotFound = errors.New("habits: not found")
)

// ParseHabitType validates raw input and returns a HabitType.
func ParseHabitType(raw string) (HabitType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(HabitTypeStart):
		return HabitTypeStart, nil
	case string(HabitTypeStop):
		return HabitTypeStop, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidHabitType, raw)
	}
}

// ValidateID checks an entity or user identifier against storage bounds.
func ValidateID(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(trimmed) > maxIdentifierLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, maxIdentifierLength)
	}
	return nil
}

// Identity is a named aspirational self-concept habits are linked to.
type Identity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Habit is a tracked daily behavior with a fixed total duration and a boolean
// completion flag per tracked day. Progress index i is the habit-local slot
// i days after the habit's window start.
type Habit struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             HabitType `json:"type"`
	TotalDays        int       `json:"totalDays"`
	LinkedIdentities []string  `json:"linkedIdentities"`
	Progress         []bool    `json:"progress"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Clone returns a deep copy so stored habits never alias caller slices.
func (h Habit) Clone() Habit {
	copied := h
	copied.LinkedIdentities = append([]string(nil), h.LinkedIdentities...)
	copied.Progress = append([]bool(nil), h.Progress...)
	return copied
}

// LinksIdentity reports whether the habit is linked to the given identity.
func (h Habit) LinksIdentity(identityID string) bool {
	for _, linked := range h.LinkedIdentities {
		if linked == identityID {
			return true
		}
	}
	return false
}

// Snapshot is the portable export format for a user's data.
type Snapshot struct {
	Identities []Identity `json:"identities"`
	Habits     []Habit    `json:"habits"`
	ExportedAt time.Time  `json:"exportedAt"`
	Version    int        `json:"version"`
}

// SnapshotVersion is the current export format version.
const SnapshotVersion = 1
