package server

import (
	"errors"
	"net/http"

	"github.com/aspirehq/aspire/backend/internal/push"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type subscribePayload struct {
	Subscription push.WebSubscription `json:"subscription" binding:"required"`
}

func (h *httpHandler) handlePushSubscribe(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload subscribePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.push.Subscribe(c.Request.Context(), userID, payload.Subscription); err != nil {
		if errors.Is(err, push.ErrInvalidSubscription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subscription"})
			return
		}
		h.logger.Error("push subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": true})
}

type unsubscribePayload struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

func (h *httpHandler) handlePushUnsubscribe(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	var payload unsubscribePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.push.Unsubscribe(c.Request.Context(), userID, payload.Endpoint); err != nil {
		if errors.Is(err, push.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.logger.Error("push unsubscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsubscribed": true})
}

// handlePushTest sends a fixed payload to every stored subscription of the
// calling user so they can verify browser delivery end to end.
func (h *httpHandler) handlePushTest(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}
	outcomes, err := h.push.Broadcast(c.Request.Context(), userID, push.Payload{
		Title: "Test notification",
		Body:  "Push delivery is working. See you at check-in time!",
		URL:   "/",
	})
	if err != nil {
		h.logger.Error("push test failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sent := 0
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			sent++
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": sent, "total": len(outcomes)})
}
