// Package push stores Web Push subscriptions and delivers notification
// payloads to them, pruning endpoints the push service reports gone.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("push: database handle is required")
	errMissingSender   = errors.New("push: sender is required")
	// ErrInvalidSubscription indicates a subscription payload without the
	// endpoint or encryption keys Web Push requires.
	ErrInvalidSubscription = errors.New("push: invalid subscription payload")
	// ErrNotFound indicates no subscription row matched.
	ErrNotFound = errors.New("push: subscription not found")
)

// WebSubscription mirrors the JSON a browser's PushManager produces.
type WebSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Service manages subscription rows and fans payloads out to them.
type Service struct {
	db     *gorm.DB
	sender Sender
	logger *zap.Logger
}

// ServiceConfig describes the dependencies for the push service.
type ServiceConfig struct {
	Database *gorm.DB
	Sender   Sender
	Logger   *zap.Logger
}

// NewService constructs the push service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Sender == nil {
		return nil, errMissingSender
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, sender: cfg.Sender, logger: logger}, nil
}

// Subscribe upserts a subscription row keyed by (user, endpoint).
func (s *Service) Subscribe(ctx context.Context, userID string, subscription WebSubscription) error {
	endpoint := strings.TrimSpace(subscription.Endpoint)
	if endpoint == "" || subscription.Keys.P256dh == "" || subscription.Keys.Auth == "" {
		return ErrInvalidSubscription
	}
	raw, err := json.Marshal(subscription)
	if err != nil {
		return fmt.Errorf("push: encode subscription: %w", err)
	}
	row := Subscription{
		UserID:     userID,
		Endpoint:   endpoint,
		P256dhKey:  subscription.Keys.P256dh,
		AuthKey:    subscription.Keys.Auth,
		RawPayload: string(raw),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh_key", "auth_key", "raw_payload"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("push: subscribe: %w", err)
	}
	return nil
}

// Unsubscribe deletes the subscription row matching the endpoint.
func (s *Service) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, strings.TrimSpace(endpoint)).
		Delete(&Subscription{})
	if result.Error != nil {
		return fmt.Errorf("push: unsubscribe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns the user's stored subscriptions.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Subscription, error) {
	var rows []Subscription
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("push: list subscriptions: %w", err)
	}
	return rows, nil
}

// ListAll returns every stored subscription grouped by user id.
func (s *Service) ListAll(ctx context.Context) (map[string][]Subscription, error) {
	var rows []Subscription
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("push: list all subscriptions: %w", err)
	}
	grouped := make(map[string][]Subscription)
	for _, row := range rows {
		grouped[row.UserID] = append(grouped[row.UserID], row)
	}
	return grouped, nil
}

// Broadcast delivers the payload to every subscription of one user. Deliveries
// run concurrently and independently; one failure never aborts the batch. Rows
// whose endpoint reports gone are deleted before returning.
func (s *Service) Broadcast(ctx context.Context, userID string, payload Payload) ([]DeliveryOutcome, error) {
	subscriptions, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	outcomes := s.deliver(ctx, subscriptions, payload)
	s.pruneGone(ctx, userID, outcomes)
	return outcomes, nil
}

// DeliverTo sends the payload to a fixed subscription set (already loaded by a
// caller iterating all users) and prunes gone endpoints for that user.
func (s *Service) DeliverTo(ctx context.Context, userID string, subscriptions []Subscription, payload Payload) []DeliveryOutcome {
	outcomes := s.deliver(ctx, subscriptions, payload)
	s.pruneGone(ctx, userID, outcomes)
	return outcomes
}

func (s *Service) deliver(ctx context.Context, subscriptions []Subscription, payload Payload) []DeliveryOutcome {
	outcomes := make([]DeliveryOutcome, len(subscriptions))
	var wg sync.WaitGroup
	for i, subscription := range subscriptions {
		wg.Add(1)
		go func(index int, target Subscription) {
			defer wg.Done()
			outcomes[index] = s.sender.Send(ctx, target, payload)
		}(i, subscription)
	}
	wg.Wait()
	return outcomes
}

// pruneGone removes rows whose delivery reported a permanently-gone endpoint.
// Stale endpoints otherwise fail silently forever.
func (s *Service) pruneGone(ctx context.Context, userID string, outcomes []DeliveryOutcome) {
	for _, outcome := range outcomes {
		if !outcome.Gone {
			continue
		}
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND endpoint = ?", userID, outcome.Endpoint).
			Delete(&Subscription{}).Error
		if err != nil {
			s.logger.Warn("failed to prune gone subscription",
				zap.String("user_id", userID),
				zap.String("endpoint", outcome.Endpoint),
				zap.Error(err))
			continue
		}
		s.logger.Info("pruned gone push subscription",
			zap.String("user_id", userID),
			zap.String("endpoint", outcome.Endpoint),
			zap.Int("status", outcome.StatusCode))
	}
}
