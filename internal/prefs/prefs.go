// Package prefs stores per-user notification preferences.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aspirehq/aspire/backend/internal/progress"
	"gorm.io/gorm"
)

// Channel enumerates the notification channels a user can pick. At most one
// channel is active per user.
type Channel string

const (
	ChannelNone     Channel = "none"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWebPush  Channel = "webpush"
)

var (
	// ErrInvalidChannel indicates an unknown notification channel name.
	ErrInvalidChannel = errors.New("prefs: invalid channel")
	// ErrInvalidHour indicates a reminder hour outside 0-23.
	ErrInvalidHour = errors.New("prefs: reminder hour must be between 0 and 23")
	// ErrNotFound indicates the user has no stored preferences.
	ErrNotFound        = errors.New("prefs: not found")
	errMissingDatabase = errors.New("prefs: database handle is required")
)

// ParseChannel validates raw input and returns a Channel.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case ChannelNone, "":
		return ChannelNone, nil
	case ChannelTelegram:
		return ChannelTelegram, nil
	case ChannelWhatsApp:
		return ChannelWhatsApp, nil
	case ChannelWebPush:
		return ChannelWebPush, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, raw)
	}
}

// UserPrefs is the persisted notification preference row.
type UserPrefs struct {
	UserID         string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	NotifEnabled   bool      `gorm:"column:notif_enabled;not null;default:false"`
	NotifChannel   string    `gorm:"column:notif_channel;size:16;not null;default:'none'"`
	NotifHour      int       `gorm:"column:notif_hour;not null;default:8"`
	NotifTimezone  string    `gorm:"column:notif_timezone;size:64;not null;default:'UTC'"`
	TelegramChatID string    `gorm:"column:telegram_chat_id;size:64"`
	WhatsAppNumber string    `gorm:"column:whatsapp_number;size:32"`
	LastNotifSent  time.Time `gorm:"column:last_notif_sent_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (UserPrefs) TableName() string {
	return "user_prefs"
}

// Channel returns the parsed active channel, defaulting to none.
func (p UserPrefs) Channel() Channel {
	channel, err := ParseChannel(p.NotifChannel)
	if err != nil {
		return ChannelNone
	}
	return channel
}

// Service reads and writes user preferences.
type Service struct {
	db *gorm.DB
}

// NewService constructs the preference service.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Service{db: db}, nil
}

// Get returns the stored preferences for a user, or ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string) (UserPrefs, error) {
	var stored UserPrefs
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserPrefs{}, ErrNotFound
	}
	if err != nil {
		return UserPrefs{}, fmt.Errorf("prefs: get: %w", err)
	}
	return stored, nil
}

// GetOrDefault returns stored preferences or a disabled default row.
func (s *Service) GetOrDefault(ctx context.Context, userID string) (UserPrefs, error) {
	stored, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return UserPrefs{
			UserID:        userID,
			NotifChannel:  string(ChannelNone),
			NotifHour:     8,
			NotifTimezone: "UTC",
		}, nil
	}
	return stored, err
}

// UpsertInput carries a full preference update.
type UpsertInput struct {
	NotifEnabled   bool
	NotifChannel   string
	NotifHour      int
	NotifTimezone  string
	TelegramChatID string
	WhatsAppNumber string
}

// Upsert validates and stores the user's preferences. The channel name, the
// reminder hour and the IANA timezone are all checked before writing.
func (s *Service) Upsert(ctx context.Context, userID string, input UpsertInput) (UserPrefs, error) {
	channel, err := ParseChannel(input.NotifChannel)
	if err != nil {
		return UserPrefs{}, err
	}
	if input.NotifHour < 0 || input.NotifHour > 23 {
		return UserPrefs{}, fmt.Errorf("%w: %d", ErrInvalidHour, input.NotifHour)
	}
	timezone := strings.TrimSpace(input.NotifTimezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := progress.Location(timezone); err != nil {
		return UserPrefs{}, err
	}

	stored, err := s.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return UserPrefs{}, err
	}
	stored.UserID = userID
	stored.NotifEnabled = input.NotifEnabled
	stored.NotifChannel = string(channel)
	stored.NotifHour = input.NotifHour
	stored.NotifTimezone = timezone
	stored.TelegramChatID = strings.TrimSpace(input.TelegramChatID)
	stored.WhatsAppNumber = strings.TrimSpace(input.WhatsAppNumber)

	if err := s.db.WithContext(ctx).Save(&stored).Error; err != nil {
		return UserPrefs{}, fmt.Errorf("prefs: upsert: %w", err)
	}
	return stored, nil
}

// MarkNotified records the timestamp of the latest delivered reminder.
func (s *Service) MarkNotified(ctx context.Context, userID string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&UserPrefs{}).
		Where("user_id = ?", userID).
		Update("last_notif_sent_at", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("prefs: mark notified: %w", err)
	}
	return nil
}

// ListEnabled returns every preference row with notifications switched on.
func (s *Service) ListEnabled(ctx context.Context) ([]UserPrefs, error) {
	var rows []UserPrefs
	if err := s.db.WithContext(ctx).
		Where("notif_enabled = ?", true).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("prefs: list enabled: %w", err)
	}
	return rows, nil
}
