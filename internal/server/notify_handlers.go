package server

import (
	"net/http"
	"strings"

	"github.com/aspirehq/aspire/backend/internal/notify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleCronPush runs the daily push sweep. Intended for an external cron
// trigger; guarded by the optional shared secret.
func (h *httpHandler) handleCronPush(c *gin.Context) {
	if !h.authorizeCron(c) {
		return
	}
	if h.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push_dispatch_disabled"})
		return
	}
	result, err := h.dispatcher.DispatchDailyPush(c.Request.Context())
	if err != nil {
		h.logger.Error("daily push sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": result.Sent, "eligible": result.Eligible, "users": result.Users})
}

// handleCronEmail runs the weekly email sweep.
func (h *httpHandler) handleCronEmail(c *gin.Context) {
	if !h.authorizeCron(c) {
		return
	}
	if h.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email_dispatch_disabled"})
		return
	}
	result, err := h.dispatcher.DispatchWeeklyEmail(c.Request.Context())
	if err != nil {
		h.logger.Error("weekly email sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": result.Sent, "users": result.Users})
}

type notifyPayload struct {
	Mode           string   `json:"mode"`
	UserID         string   `json:"userId"`
	UserIDs        []string `json:"userIds"`
	PreviewMessage string   `json:"previewMessage"`
	Reason         string   `json:"reason"`
}

// handleNotify triggers the channel-based reminder. Single mode resolves the
// target from the explicit id or the bearer token; fanout mode requires the
// cron secret and an explicit id list. There is no implicit all-users sweep
// on this path.
func (h *httpHandler) handleNotify(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notify_disabled"})
		return
	}
	var payload notifyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "invalid_request"})
		return
	}

	switch strings.ToLower(strings.TrimSpace(payload.Mode)) {
	case "", "single":
		userID := strings.TrimSpace(payload.UserID)
		if userID == "" {
			token, ok := bearerToken(c)
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "reason": "unauthorized"})
				return
			}
			subject, err := h.tokens.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "reason": "unauthorized"})
				return
			}
			userID = subject
		} else if !h.authorizeCron(c) {
			return
		}
		displayName := ""
		if account, err := h.accounts.GetAccount(userID); err == nil {
			displayName = account.DisplayName
		}
		result := h.notifier.Remind(c.Request.Context(), userID, displayName, payload.PreviewMessage)
		h.logger.Info("channel reminder dispatched",
			zap.String("user_id", userID),
			zap.String("status", string(result.Status)),
			zap.String("reason", payload.Reason))
		c.JSON(http.StatusOK, result)

	case "fanout":
		if !h.authorizeCron(c) {
			return
		}
		if len(payload.UserIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "userIds required for fanout"})
			return
		}
		results := h.notifier.RemindMany(c.Request.Context(), payload.UserIDs, payload.PreviewMessage)
		sent := 0
		for _, result := range results {
			if result.Status == notify.StatusSent {
				sent++
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "sent", "sent": sent, "results": results})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "mode must be single or fanout"})
	}
}
