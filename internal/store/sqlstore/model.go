package sqlstore

import "time"

// IdentityRecord is the persisted identity row.
type IdentityRecord struct {
	UserID      string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	IdentityID  string    `gorm:"column:identity_id;primaryKey;size:190;not null"`
	Name        string    `gorm:"column:name;size:320;not null"`
	Description string    `gorm:"column:description;type:text"`
	Color       string    `gorm:"column:color;size:32"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (IdentityRecord) TableName() string {
	return "identities"
}

// HabitRecord is the persisted habit row. Progress lives in habit_progress.
type HabitRecord struct {
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	HabitID   string    `gorm:"column:habit_id;primaryKey;size:190;not null"`
	Name      string    `gorm:"column:name;size:320;not null"`
	HabitType string    `gorm:"column:habit_type;size:16;not null"`
	TotalDays int       `gorm:"column:total_days;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (HabitRecord) TableName() string {
	return "habits"
}

// HabitIdentityRecord links a habit to an identity.
type HabitIdentityRecord struct {
	UserID     string `gorm:"column:user_id;primaryKey;size:190;not null"`
	HabitID    string `gorm:"column:habit_id;primaryKey;size:190;not null"`
	IdentityID string `gorm:"column:identity_id;primaryKey;size:190;not null;index:idx_habit_identities_identity"`
}

// TableName provides the explicit table binding for GORM.
func (HabitIdentityRecord) TableName() string {
	return "habit_identities"
}

// HabitProgressRecord stores one completion flag per habit-local day slot.
// Uniqueness per (habit_id, day_index) is enforced by the composite key.
type HabitProgressRecord struct {
	HabitID   string `gorm:"column:habit_id;primaryKey;size:190;not null"`
	DayIndex  int    `gorm:"column:day_index;primaryKey;not null"`
	UserID    string `gorm:"column:user_id;size:190;not null;index:idx_habit_progress_user"`
	Completed bool   `gorm:"column:completed;not null;default:false"`
}

// TableName provides the explicit table binding for GORM.
func (HabitProgressRecord) TableName() string {
	return "habit_progress"
}
