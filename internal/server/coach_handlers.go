package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/aspirehq/aspire/backend/internal/coach"
	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/progress"
	"github.com/gin-gonic/gin"
)

// coachUserID resolves the target user for the read-only coach endpoints. The
// coach surface is key-authenticated, not session-authenticated, so the user
// id arrives as a query parameter.
func coachUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter required"})
		return "", false
	}
	return userID, true
}

// coachLocalTime resolves the target user's preferred timezone, falling back
// to UTC when the stored zone no longer loads.
func (h *httpHandler) coachLocalTime(c *gin.Context, userID string) (time.Time, *time.Location) {
	now := time.Now().UTC()
	loc := time.UTC
	if h.prefs != nil {
		if stored, err := h.prefs.GetOrDefault(c.Request.Context(), userID); err == nil {
			if parsed, err := progress.Location(stored.NotifTimezone); err == nil {
				loc = parsed
			}
		}
	}
	return now.In(loc), loc
}

func (h *httpHandler) handleCoachHabits(c *gin.Context) {
	userID, ok := coachUserID(c)
	if !ok {
		return
	}
	userHabits, err := h.habits.ListHabits(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habits": userHabits})
}

func (h *httpHandler) handleCoachStats(c *gin.Context) {
	userID, ok := coachUserID(c)
	if !ok {
		return
	}
	userHabits, err := h.habits.ListHabits(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":      coach.Stats(userHabits),
		"topStreaks": coach.TopStreaks(userHabits),
	})
}

func (h *httpHandler) handleCoachToday(c *gin.Context) {
	userID, ok := coachUserID(c)
	if !ok {
		return
	}
	localTime, loc := h.coachLocalTime(c, userID)
	dayIndex := progress.DayIndex(localTime, loc)
	status, err := h.habits.StatusForDay(c.Request.Context(), userID, dayIndex, loc)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dayIndex":       status.DayIndex,
		"done":           habitNames(status.Done),
		"remaining":      habitNames(status.Remaining),
		"completionRate": coach.TodayRate(status),
	})
}

func (h *httpHandler) handleCoachMotivation(c *gin.Context) {
	userID, ok := coachUserID(c)
	if !ok {
		return
	}
	userHabits, err := h.habits.ListHabits(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	localTime, loc := h.coachLocalTime(c, userID)
	dayIndex := progress.DayIndex(localTime, loc)
	status, err := h.habits.StatusForDay(c.Request.Context(), userID, dayIndex, loc)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	displayName := ""
	if account, err := h.accounts.GetAccount(userID); err == nil {
		displayName = account.DisplayName
	}
	c.JSON(http.StatusOK, gin.H{
		"message": coach.Motivation(displayName, userHabits, status, localTime, nil),
	})
}

func habitNames(list []habits.Habit) []string {
	names := make([]string, 0, len(list))
	for _, habit := range list {
		names = append(names, habit.Name)
	}
	return names
}
