// Package notify dispatches on-demand channel reminders over Telegram,
// WhatsApp or Web Push, one user at a time or across an explicit user list.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/prefs"
	"github.com/aspirehq/aspire/backend/internal/push"
	"go.uber.org/zap"
)

// Status summarizes the outcome of one reminder attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Result is the per-user outcome of a reminder dispatch.
type Result struct {
	UserID  string `json:"userId"`
	Status  Status `json:"status"`
	Channel string `json:"channel,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Transport delivers a reminder message over one notification channel.
type Transport interface {
	Channel() prefs.Channel
	Send(ctx context.Context, target prefs.UserPrefs, message string) error
}

var (
	errMissingPrefs       = errors.New("notify: preference service is required")
	errMissingHabits      = errors.New("notify: habit service is required")
	errNoTransportMatched = errors.New("notify: no transport for channel")
)

// NotifierConfig describes the dependencies for the channel notifier.
type NotifierConfig struct {
	Prefs      *prefs.Service
	Habits     *habits.Service
	Transports []Transport
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Notifier resolves a user's preferred channel and dispatches one reminder.
type Notifier struct {
	prefs      *prefs.Service
	habits     *habits.Service
	transports map[prefs.Channel]Transport
	clock      func() time.Time
	logger     *zap.Logger
}

// NewNotifier constructs the notifier from the configured transports.
func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	if cfg.Prefs == nil {
		return nil, errMissingPrefs
	}
	if cfg.Habits == nil {
		return nil, errMissingHabits
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	transports := make(map[prefs.Channel]Transport, len(cfg.Transports))
	for _, transport := range cfg.Transports {
		transports[transport.Channel()] = transport
	}
	return &Notifier{
		prefs:      cfg.Prefs,
		habits:     cfg.Habits,
		transports: transports,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Remind loads the user's channel preference, builds the generic reminder and
// dispatches it. Users with notifications disabled or no channel are skipped,
// never errored.
func (n *Notifier) Remind(ctx context.Context, userID, displayName, previewMessage string) Result {
	result := Result{UserID: userID}

	userPrefs, err := n.prefs.GetOrDefault(ctx, userID)
	if err != nil {
		result.Status = StatusError
		result.Reason = fmt.Sprintf("load prefs: %v", err)
		return result
	}
	if !userPrefs.NotifEnabled {
		result.Status = StatusSkipped
		result.Reason = "notifications disabled"
		return result
	}
	channel := userPrefs.Channel()
	if channel == prefs.ChannelNone {
		result.Status = StatusSkipped
		result.Reason = "no channel configured"
		return result
	}
	result.Channel = string(channel)

	transport, ok := n.transports[channel]
	if !ok {
		result.Status = StatusError
		result.Reason = errNoTransportMatched.Error()
		return result
	}

	message := previewMessage
	if message == "" {
		userHabits, err := n.habits.ListHabits(ctx, userID)
		if err != nil {
			result.Status = StatusError
			result.Reason = fmt.Sprintf("load habits: %v", err)
			return result
		}
		message = BuildReminder(displayName, userHabits)
	}

	if err := transport.Send(ctx, userPrefs, message); err != nil {
		n.logger.Warn("channel reminder delivery failed",
			zap.String("user_id", userID),
			zap.String("channel", string(channel)),
			zap.Error(err))
		result.Status = StatusError
		result.Reason = err.Error()
		return result
	}

	if err := n.prefs.MarkNotified(ctx, userID, n.clock()); err != nil {
		n.logger.Warn("failed to record reminder timestamp",
			zap.String("user_id", userID), zap.Error(err))
	}
	result.Status = StatusSent
	return result
}

// RemindMany dispatches a reminder to every listed user. Each target is
// attempted independently; one failure never aborts the batch.
func (n *Notifier) RemindMany(ctx context.Context, userIDs []string, previewMessage string) []Result {
	results := make([]Result, 0, len(userIDs))
	for _, userID := range userIDs {
		results = append(results, n.Remind(ctx, userID, "", previewMessage))
	}
	return results
}

// WebPushTransport adapts the push service to the channel transport interface
// for users whose preferred channel is webpush.
type WebPushTransport struct {
	service *push.Service
}

// NewWebPushTransport wraps the push service as a channel transport.
func NewWebPushTransport(service *push.Service) *WebPushTransport {
	return &WebPushTransport{service: service}
}

// Channel reports which preference channel this transport serves.
func (t *WebPushTransport) Channel() prefs.Channel {
	return prefs.ChannelWebPush
}

// Send broadcasts the reminder to all of the user's push subscriptions. The
// send counts as delivered when at least one subscription accepted it.
func (t *WebPushTransport) Send(ctx context.Context, target prefs.UserPrefs, message string) error {
	outcomes, err := t.service.Broadcast(ctx, target.UserID, push.Payload{
		Title: "Habit reminder",
		Body:  message,
	})
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return errors.New("notify: no push subscriptions stored")
	}
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			return nil
		}
	}
	return fmt.Errorf("notify: all %d push deliveries failed", len(outcomes))
}
