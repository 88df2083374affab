package server

import (
	"errors"
	"net/http"

	"github.com/aspirehq/aspire/backend/internal/prefs"
	"github.com/aspirehq/aspire/backend/internal/progress"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleGetPrefs(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	stored, err := h.prefs.GetOrDefault(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prefsResponse(stored))
}

type prefsPayload struct {
	NotifEnabled   bool   `json:"notifEnabled"`
	NotifChannel   string `json:"notifChannel"`
	NotifHour      int    `json:"notifHour"`
	NotifTimezone  string `json:"notifTimezone"`
	TelegramChatID string `json:"telegramChatId"`
	WhatsAppNumber string `json:"whatsappNumber"`
}

func (h *httpHandler) handlePutPrefs(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload prefsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	stored, err := h.prefs.Upsert(c.Request.Context(), userID, prefs.UpsertInput{
		NotifEnabled:   payload.NotifEnabled,
		NotifChannel:   payload.NotifChannel,
		NotifHour:      payload.NotifHour,
		NotifTimezone:  payload.NotifTimezone,
		TelegramChatID: payload.TelegramChatID,
		WhatsAppNumber: payload.WhatsAppNumber,
	})
	if err != nil {
		if errors.Is(err, prefs.ErrInvalidChannel) ||
			errors.Is(err, prefs.ErrInvalidHour) ||
			errors.Is(err, progress.ErrUnknownTimezone) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prefsResponse(stored))
}

func prefsResponse(stored prefs.UserPrefs) gin.H {
	response := gin.H{
		"notifEnabled":  stored.NotifEnabled,
		"notifChannel":  stored.NotifChannel,
		"notifHour":     stored.NotifHour,
		"notifTimezone": stored.NotifTimezone,
	}
	if stored.TelegramChatID != "" {
		response["telegramChatId"] = stored.TelegramChatID
	}
	if stored.WhatsAppNumber != "" {
		response["whatsappNumber"] = stored.WhatsAppNumber
	}
	if !stored.LastNotifSent.IsZero() {
		response["lastNotifSentAt"] = stored.LastNotifSent
	}
	return response
}
