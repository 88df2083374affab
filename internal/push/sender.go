package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// DeliveryOutcome records the result of one push attempt. Gone marks endpoints
// the push service reports as permanently unreachable.
type DeliveryOutcome struct {
	Endpoint   string
	StatusCode int
	Gone       bool
	Err        error
}

// Sender delivers an encoded payload to a single subscription endpoint.
type Sender interface {
	Send(ctx context.Context, subscription Subscription, payload Payload) DeliveryOutcome
}

// VAPIDConfig holds the keys and contact address required by Web Push.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
}

type webpushSender struct {
	vapid VAPIDConfig
	ttl   int
}

// NewWebPushSender constructs a Sender backed by the Web Push protocol.
func NewWebPushSender(vapid VAPIDConfig) Sender {
	return &webpushSender{vapid: vapid, ttl: 3600}
}

func (s *webpushSender) Send(ctx context.Context, subscription Subscription, payload Payload) DeliveryOutcome {
	outcome := DeliveryOutcome{Endpoint: subscription.Endpoint}

	body, err := json.Marshal(payload)
	if err != nil {
		outcome.Err = fmt.Errorf("push: encode payload: %w", err)
		return outcome
	}

	target := &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256dhKey,
			Auth:   subscription.AuthKey,
		},
	}
	response, err := webpush.SendNotificationWithContext(ctx, body, target, &webpush.Options{
		Subscriber:      s.vapid.Subscriber,
		VAPIDPublicKey:  s.vapid.PublicKey,
		VAPIDPrivateKey: s.vapid.PrivateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		outcome.Err = fmt.Errorf("push: deliver to %s: %w", subscription.Endpoint, err)
		return outcome
	}
	defer response.Body.Close()

	outcome.StatusCode = response.StatusCode
	switch response.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		outcome.Gone = true
		outcome.Err = fmt.Errorf("push: endpoint gone with status %d", response.StatusCode)
	default:
		if response.StatusCode >= 400 {
			outcome.Err = fmt.Errorf("push: delivery failed with status %d", response.StatusCode)
		}
	}
	return outcome
}
