package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aspirehq/aspire/backend/internal/prefs"
	"github.com/go-resty/resty/v2"
)

const telegramBaseURL = "https://api.telegram.org"

var errMissingTelegramChatID = errors.New("notify: telegram chat id not configured for user")

// TelegramTransport delivers reminders through the Telegram Bot API.
type TelegramTransport struct {
	client   *resty.Client
	botToken string
}

// NewTelegramTransport constructs the transport for the given bot token. An
// optional base URL overrides the Bot API host in tests.
func NewTelegramTransport(botToken, baseURL string) *TelegramTransport {
	if baseURL == "" {
		baseURL = telegramBaseURL
	}
	return &TelegramTransport{
		client:   resty.New().SetBaseURL(baseURL),
		botToken: botToken,
	}
}

// Channel reports which preference channel this transport serves.
func (t *TelegramTransport) Channel() prefs.Channel {
	return prefs.ChannelTelegram
}

type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts a sendMessage call for the user's configured chat.
func (t *TelegramTransport) Send(ctx context.Context, target prefs.UserPrefs, message string) error {
	if target.TelegramChatID == "" {
		return errMissingTelegramChatID
	}
	var result telegramSendResponse
	response, err := t.client.R().
		SetContext(ctx).
		SetBody(telegramSendRequest{ChatID: target.TelegramChatID, Text: message}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.botToken))
	if err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	if response.IsError() || !result.OK {
		return fmt.Errorf("notify: telegram send failed with status %d: %s",
			response.StatusCode(), result.Description)
	}
	return nil
}
