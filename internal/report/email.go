package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const defaultEmailBaseURL = "https://api.resend.com"

var (
	errMissingEmailAPIKey = errors.New("report: email api key is required")
	errMissingEmailFrom   = errors.New("report: email from address is required")
)

// EmailClient sends rendered summaries through a transactional email API.
type EmailClient struct {
	client *resty.Client
	from   string
}

// EmailClientConfig configures the transactional email client.
type EmailClientConfig struct {
	APIKey  string
	From    string
	BaseURL string
}

// NewEmailClient constructs the email client.
func NewEmailClient(cfg EmailClientConfig) (*EmailClient, error) {
	if cfg.APIKey == "" {
		return nil, errMissingEmailAPIKey
	}
	if cfg.From == "" {
		return nil, errMissingEmailFrom
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultEmailBaseURL
	}
	return &EmailClient{
		client: resty.New().SetBaseURL(baseURL).SetAuthToken(cfg.APIKey),
		from:   cfg.From,
	}, nil
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// SendWeekly renders and dispatches the summary to one recipient.
func (c *EmailClient) SendWeekly(ctx context.Context, recipient string, summary WeeklyReport) error {
	html, text, err := Render(summary)
	if err != nil {
		return err
	}
	response, err := c.client.R().
		SetContext(ctx).
		SetBody(sendEmailRequest{
			From:    c.from,
			To:      []string{recipient},
			Subject: Subject(summary),
			HTML:    html,
			Text:    text,
		}).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("report: send email: %w", err)
	}
	if response.IsError() {
		return fmt.Errorf("report: email api returned status %d: %s",
			response.StatusCode(), response.String())
	}
	return nil
}
