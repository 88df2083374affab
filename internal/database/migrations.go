package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationNormalizeHabitDurations = "2026-08-01_normalize_habit_durations"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeHabitDurations, apply: normalizeHabitDurations},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeHabitDurations grows total_days to cover any progress row written
// past the declared duration, so len(progress) == total_days holds for rows
// created before toggle-extension updated the habit row atomically.
func normalizeHabitDurations(db *gorm.DB) error {
	return db.Exec(`
		UPDATE habits SET total_days = (
			SELECT MAX(hp.day_index) + 1
			FROM habit_progress hp
			WHERE hp.habit_id = habits.habit_id
		)
		WHERE habit_id IN (
			SELECT hp.habit_id
			FROM habit_progress hp
			GROUP BY hp.habit_id
			HAVING MAX(hp.day_index) + 1 > (
				SELECT h.total_days FROM habits h WHERE h.habit_id = hp.habit_id
			)
		);`).Error
}
