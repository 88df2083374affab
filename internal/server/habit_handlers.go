package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/progress"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *httpHandler) requestUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	if errors.Is(err, habits.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	var serviceErr *habits.ServiceError
	if errors.As(err, &serviceErr) {
		switch {
		case errors.Is(err, habits.ErrInvalidName),
			errors.Is(err, habits.ErrInvalidHabitType),
			errors.Is(err, habits.ErrInvalidTotalDays),
			errors.Is(err, habits.ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"error": serviceErr.Code()})
			return
		}
		h.logger.Error("habit operation failed", zap.String("code", serviceErr.Code()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": serviceErr.Code()})
		return
	}
	h.logger.Error("habit operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *httpHandler) handleListIdentities(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	identities, err := h.habits.ListIdentities(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identities": identities})
}

type createIdentityPayload struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (h *httpHandler) handleCreateIdentity(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload createIdentityPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	identity, err := h.habits.CreateIdentity(c.Request.Context(), userID, habits.CreateIdentityInput{
		Name:        payload.Name,
		Description: payload.Description,
		Color:       payload.Color,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, identity)
}

type updateIdentityPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

func (h *httpHandler) handleUpdateIdentity(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload updateIdentityPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	identity, err := h.habits.UpdateIdentity(c.Request.Context(), userID, c.Param("id"), habits.UpdateIdentityInput{
		Name:        payload.Name,
		Description: payload.Description,
		Color:       payload.Color,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *httpHandler) handleDeleteIdentity(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	if err := h.habits.DeleteIdentity(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleListHabits(c *gin.Context) {
	userID, ok := h.requestUserID(c)
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

type createHabitPayload struct {
	Name             string   `json:"name" binding:"required"`
	Type             string   `json:"type" binding:"required"`
	TotalDays        int      `json:"totalDays" binding:"required"`
	LinkedIdentities []string `json:"linkedIdentities"`
}

func (h *httpHandler) handleCreateHabit(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload createHabitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	habitType, err := habits.ParseHabitType(payload.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_habit_type"})
		return
	}
	habit, err := h.habits.CreateHabit(c.Request.Context(), userID, habits.CreateHabitInput{
		Name:             payload.Name,
		Type:             habitType,
		TotalDays:        payload.TotalDays,
		LinkedIdentities: payload.LinkedIdentities,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, habit)
}

type updateHabitPayload struct {
	Name             *string   `json:"name"`
	LinkedIdentities *[]string `json:"linkedIdentities"`
}

func (h *httpHandler) handleUpdateHabit(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload updateHabitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	habit, err := h.habits.UpdateHabit(c.Request.Context(), userID, c.Param("id"), habits.UpdateHabitInput{
		Name:             payload.Name,
		LinkedIdentities: payload.LinkedIdentities,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (h *httpHandler) handleDeleteHabit(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	if err := h.habits.DeleteHabit(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type toggleHabitPayload struct {
	Slot     *int   `json:"slot"`
	Date     string `json:"date"`
	Timezone string `json:"timezone"`
}

// handleToggleHabit flips one day's completion. Clients either address the
// habit-local slot directly or pass a calendar date plus timezone and let the
// server derive the slot from the habit's window.
func (h *httpHandler) handleToggleHabit(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload toggleHabitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	slot := -1
	switch {
	case payload.Slot != nil:
		slot = *payload.Slot
	case payload.Date != "":
		loc, err := progress.Location(payload.Timezone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_timezone"})
			return
		}
		day, err := time.ParseInLocation("2006-01-02", payload.Date, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
			return
		}
		habit, err := h.habits.GetHabit(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			h.respondServiceError(c, err)
			return
		}
		offset := progress.CreationOffset(habit.CreatedAt, loc)
		slot = progress.Slot(offset, progress.DayIndex(day, loc))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if slot < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_before_habit_window"})
		return
	}

	habit, err := h.habits.ToggleDay(c.Request.Context(), userID, c.Param("id"), slot)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (h *httpHandler) handleExport(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	snapshot, err := h.habits.Export(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *httpHandler) handleImport(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var snapshot habits.Snapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.habits.Import(c.Request.Context(), userID, snapshot); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": true})
}
