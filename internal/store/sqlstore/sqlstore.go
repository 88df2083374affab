// Package sqlstore implements the habit data-access boundary on the hosted
// relational backend through GORM.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("sqlstore: database handle is required")

// Store implements habits.Store against a gorm database.
type Store struct {
	db *gorm.DB
}

// New constructs a Store over the provided database handle.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Store{db: db}, nil
}

// ListIdentities returns the user's identities ordered by creation time.
func (s *Store) ListIdentities(ctx context.Context, userID string) ([]habits.Identity, error) {
	var records []IdentityRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list identities: %w", err)
	}
	identities := make([]habits.Identity, 0, len(records))
	for _, record := range records {
		identities = append(identities, identityFromRecord(record))
	}
	return identities, nil
}

// GetIdentity returns one identity or habits.ErrNotFound.
func (s *Store) GetIdentity(ctx context.Context, userID, identityID string) (habits.Identity, error) {
	var record IdentityRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND identity_id = ?", userID, identityID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return habits.Identity{}, habits.ErrNotFound
	}
	if err != nil {
		return habits.Identity{}, fmt.Errorf("sqlstore: get identity: %w", err)
	}
	return identityFromRecord(record), nil
}

// SaveIdentity inserts or replaces the identity row.
func (s *Store) SaveIdentity(ctx context.Context, userID string, identity habits.Identity) error {
	record := IdentityRecord{
		UserID:      userID,
		IdentityID:  identity.ID,
		Name:        identity.Name,
		Description: identity.Description,
		Color:       identity.Color,
		CreatedAt:   identity.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("sqlstore: save identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes the identity row and unlinks it from every habit in
// one transaction. Habit progress rows are not touched.
func (s *Store) DeleteIdentity(ctx context.Context, userID, identityID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND identity_id = ?", userID, identityID).
			Delete(&IdentityRecord{})
		if result.Error != nil {
			return fmt.Errorf("sqlstore: delete identity: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return habits.ErrNotFound
		}
		if err := tx.Where("user_id = ? AND identity_id = ?", userID, identityID).
			Delete(&HabitIdentityRecord{}).Error; err != nil {
			return fmt.Errorf("sqlstore: unlink identity: %w", err)
		}
		return nil
	})
}

// ListHabits returns the user's habits with links and progress attached,
// ordered by creation time.
func (s *Store) ListHabits(ctx context.Context, userID string) ([]habits.Habit, error) {
	var records []HabitRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list habits: %w", err)
	}

	var links []HabitIdentityRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list habit links: %w", err)
	}
	linkedByHabit := make(map[string][]string, len(records))
	for _, link := range links {
		linkedByHabit[link.HabitID] = append(linkedByHabit[link.HabitID], link.IdentityID)
	}

	var progressRows []HabitProgressRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day_index ASC").
		Find(&progressRows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list habit progress: %w", err)
	}
	progressByHabit := make(map[string][]HabitProgressRecord, len(records))
	for _, row := range progressRows {
		progressByHabit[row.HabitID] = append(progressByHabit[row.HabitID], row)
	}

	result := make([]habits.Habit, 0, len(records))
	for _, record := range records {
		linked := linkedByHabit[record.HabitID]
		sort.Strings(linked)
		result = append(result, habitFromRecord(record, linked, progressByHabit[record.HabitID]))
	}
	return result, nil
}

// GetHabit returns one habit with links and progress, or habits.ErrNotFound.
func (s *Store) GetHabit(ctx context.Context, userID, habitID string) (habits.Habit, error) {
	var record HabitRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND habit_id = ?", userID, habitID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return habits.Habit{}, habits.ErrNotFound
	}
	if err != nil {
		return habits.Habit{}, fmt.Errorf("sqlstore: get habit: %w", err)
	}

	var links []HabitIdentityRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND habit_id = ?", userID, habitID).
		Find(&links).Error; err != nil {
		return habits.Habit{}, fmt.Errorf("sqlstore: get habit links: %w", err)
	}
	linked := make([]string, 0, len(links))
	for _, link := range links {
		linked = append(linked, link.IdentityID)
	}
	sort.Strings(linked)

	var progressRows []HabitProgressRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND habit_id = ?", userID, habitID).
		Order("day_index ASC").
		Find(&progressRows).Error; err != nil {
		return habits.Habit{}, fmt.Errorf("sqlstore: get habit progress: %w", err)
	}

	return habitFromRecord(record, linked, progressRows), nil
}

// SaveHabit upserts the habit row, replaces its identity links and upserts one
// progress row per tracked slot. Progress rows are never deleted here, so a
// stored sequence can only grow.
func (s *Store) SaveHabit(ctx context.Context, userID string, habit habits.Habit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := HabitRecord{
			UserID:    userID,
			HabitID:   habit.ID,
			Name:      habit.Name,
			HabitType: string(habit.Type),
			TotalDays: habit.TotalDays,
			CreatedAt: habit.CreatedAt,
		}
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("sqlstore: save habit: %w", err)
		}

		if err := tx.Where("user_id = ? AND habit_id = ?", userID, habit.ID).
			Delete(&HabitIdentityRecord{}).Error; err != nil {
			return fmt.Errorf("sqlstore: clear habit links: %w", err)
		}
		for _, identityID := range habit.LinkedIdentities {
			link := HabitIdentityRecord{UserID: userID, HabitID: habit.ID, IdentityID: identityID}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("sqlstore: link identity: %w", err)
			}
		}

		for slot, completed := range habit.Progress {
			row := HabitProgressRecord{
				HabitID:   habit.ID,
				DayIndex:  slot,
				UserID:    userID,
				Completed: completed,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "habit_id"}, {Name: "day_index"}},
				DoUpdates: clause.AssignmentColumns([]string{"completed"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("sqlstore: save habit progress: %w", err)
			}
		}
		return nil
	})
}

// DeleteHabit removes the habit row, its links and its progress.
func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND habit_id = ?", userID, habitID).
			Delete(&HabitRecord{})
		if result.Error != nil {
			return fmt.Errorf("sqlstore: delete habit: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return habits.ErrNotFound
		}
		if err := tx.Where("user_id = ? AND habit_id = ?", userID, habitID).
			Delete(&HabitIdentityRecord{}).Error; err != nil {
			return fmt.Errorf("sqlstore: delete habit links: %w", err)
		}
		if err := tx.Where("user_id = ? AND habit_id = ?", userID, habitID).
			Delete(&HabitProgressRecord{}).Error; err != nil {
			return fmt.Errorf("sqlstore: delete habit progress: %w", err)
		}
		return nil
	})
}

func identityFromRecord(record IdentityRecord) habits.Identity {
	return habits.Identity{
		ID:          record.IdentityID,
		Name:        record.Name,
		Description: record.Description,
		Color:       record.Color,
		CreatedAt:   record.CreatedAt.UTC(),
	}
}

func habitFromRecord(record HabitRecord, linked []string, progressRows []HabitProgressRecord) habits.Habit {
	length := record.TotalDays
	for _, row := range progressRows {
		if row.DayIndex+1 > length {
			length = row.DayIndex + 1
		}
	}
	days := make([]bool, length)
	for _, row := range progressRows {
		if row.DayIndex >= 0 && row.DayIndex < length {
			days[row.DayIndex] = row.Completed
		}
	}
	return habits.Habit{
		ID:               record.HabitID,
		Name:             record.Name,
		Type:             habits.HabitType(record.HabitType),
		TotalDays:        record.TotalDays,
		LinkedIdentities: linked,
		Progress:         days,
		CreatedAt:        record.CreatedAt.UTC(),
	}
}
