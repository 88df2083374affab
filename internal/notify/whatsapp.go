package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aspirehq/aspire/backend/internal/prefs"
	"github.com/go-resty/resty/v2"
)

const whatsAppBaseURL = "https://graph.facebook.com/v19.0"

var errMissingWhatsAppNumber = errors.New("notify: whatsapp number not configured for user")

// WhatsAppTransport delivers reminders through the WhatsApp Cloud API.
type WhatsAppTransport struct {
	client        *resty.Client
	accessToken   string
	phoneNumberID string
}

// NewWhatsAppTransport constructs the transport for the given business phone
// number. An optional base URL overrides the Graph API host in tests.
func NewWhatsAppTransport(accessToken, phoneNumberID, baseURL string) *WhatsAppTransport {
	if baseURL == "" {
		baseURL = whatsAppBaseURL
	}
	return &WhatsAppTransport{
		client:        resty.New().SetBaseURL(baseURL),
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
	}
}

// Channel reports which preference channel this transport serves.
func (t *WhatsAppTransport) Channel() prefs.Channel {
	return prefs.ChannelWhatsApp
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppSendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// Send posts a text message to the user's configured number.
func (t *WhatsAppTransport) Send(ctx context.Context, target prefs.UserPrefs, message string) error {
	if target.WhatsAppNumber == "" {
		return errMissingWhatsAppNumber
	}
	response, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(t.accessToken).
		SetBody(whatsAppSendRequest{
			MessagingProduct: "whatsapp",
			To:               target.WhatsAppNumber,
			Type:             "text",
			Text:             whatsAppText{Body: message},
		}).
		Post(fmt.Sprintf("/%s/messages", t.phoneNumberID))
	if err != nil {
		return fmt.Errorf("notify: whatsapp send: %w", err)
	}
	if response.IsError() {
		return fmt.Errorf("notify: whatsapp send failed with status %d: %s",
			response.StatusCode(), response.String())
	}
	return nil
}
