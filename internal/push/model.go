package push

import "time"

// Subscription is a stored Web Push subscription. A user may hold several,
// one per browser; the endpoint is unique within a user.
type Subscription struct {
	UserID      string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Endpoint    string    `gorm:"column:endpoint;primaryKey;size:512;not null"`
	P256dhKey   string    `gorm:"column:p256dh_key;size:256;not null"`
	AuthKey     string    `gorm:"column:auth_key;size:256;not null"`
	RawPayload  string    `gorm:"column:raw_payload;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Subscription) TableName() string {
	return "push_subscriptions"
}

// Payload is the JSON body a service worker renders as a notification.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	URL   string `json:"url,omitempty"`
}
