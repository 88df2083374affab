package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aspirehq/aspire/backend/internal/progress"
	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("store is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries an operation.reason code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "habits.service.new"
	opCreateIdentity = "habits.create_identity"
	opUpdateIdentity = "habits.update_identity"
	opDeleteIdentity = "habits.delete_identity"
	opCreateHabit    = "habits.create_habit"
	opUpdateHabit    = "habits.update_habit"
	opDeleteHabit    = "habits.delete_habit"
	opToggleDay      = "habits.toggle_day"
	opExport         = "habits.export"
	opImport         = "habits.import"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig describes the dependencies for the habit service.
type ServiceConfig struct {
	Store      Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service layers validation, identifier assignment and cascade rules over a
// Store implementation.
type Service struct {
	store      Store
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the habit service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		store:      cfg.Store,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// CreateIdentityInput captures the fields a client supplies for a new identity.
type CreateIdentityInput struct {
	Name        string
	Description string
	Color       string
}

// CreateIdentity validates the input, assigns an id and persists the identity.
func (s *Service) CreateIdentity(ctx context.Context, userID string, input CreateIdentityInput) (Identity, error) {
	if err := ValidateID(userID); err != nil {
		return Identity{}, newServiceError(opCreateIdentity, "invalid_user_id", err)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Identity{}, newServiceError(opCreateIdentity, "invalid_name", ErrInvalidName)
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Identity{}, newServiceError(opCreateIdentity, "id_generation_failed", err)
	}
	identity := Identity{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       strings.TrimSpace(input.Color),
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.store.SaveIdentity(ctx, userID, identity); err != nil {
		s.logError(opCreateIdentity, "save_failed", err, zap.String("user_id", userID))
		return Identity{}, newServiceError(opCreateIdentity, "save_failed", err)
	}
	return identity, nil
}

// UpdateIdentityInput carries optional field updates; nil pointers leave the
// stored value untouched.
type UpdateIdentityInput struct {
	Name        *string
	Description *string
	Color       *string
}

// UpdateIdentity applies the provided field updates to an existing identity.
func (s *Service) UpdateIdentity(ctx context.Context, userID, identityID string, input UpdateIdentityInput) (Identity, error) {
	identity, err := s.store.GetIdentity(ctx, userID, identityID)
	if err != nil {
		return Identity{}, newServiceError(opUpdateIdentity, "load_failed", err)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Identity{}, newServiceError(opUpdateIdentity, "invalid_name", ErrInvalidName)
		}
		identity.Name = name
	}
	if input.Description != nil {
		identity.Description = strings.TrimSpace(*input.Description)
	}
	if input.Color != nil {
		identity.Color = strings.TrimSpace(*input.Color)
	}
	if err := s.store.SaveIdentity(ctx, userID, identity); err != nil {
		s.logError(opUpdateIdentity, "save_failed", err, zap.String("user_id", userID))
		return Identity{}, newServiceError(opUpdateIdentity, "save_failed", err)
	}
	return identity, nil
}

// DeleteIdentity removes an identity; the store cascade unlinks it from habits.
func (s *Service) DeleteIdentity(ctx context.Context, userID, identityID string) error {
	if err := s.store.DeleteIdentity(ctx, userID, identityID); err != nil {
		s.logError(opDeleteIdentity, "delete_failed", err,
			zap.String("user_id", userID), zap.String("identity_id", identityID))
		return newServiceError(opDeleteIdentity, "delete_failed", err)
	}
	return nil
}

// ListIdentities returns all identities for the user.
func (s *Service) ListIdentities(ctx context.Context, userID string) ([]Identity, error) {
	return s.store.ListIdentities(ctx, userID)
}

// CreateHabitInput captures the fields a client supplies for a new habit.
type CreateHabitInput struct {
	Name             string
	Type             HabitType
	TotalDays        int
	LinkedIdentities []string
}

// CreateHabit validates the input, assigns an id and persists the habit with an
// all-false progress sequence of length TotalDays.
func (s *Service) CreateHabit(ctx context.Context, userID string, input CreateHabitInput) (Habit, error) {
	if err := ValidateID(userID); err != nil {
		return Habit{}, newServiceError(opCreateHabit, "invalid_user_id", err)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Habit{}, newServiceError(opCreateHabit, "invalid_name", ErrInvalidName)
	}
	if input.Type != HabitTypeStart && input.Type != HabitTypeStop {
		return Habit{}, newServiceError(opCreateHabit, "invalid_type", ErrInvalidHabitType)
	}
	if input.TotalDays <= 0 {
		return Habit{}, newServiceError(opCreateHabit, "invalid_total_days", ErrInvalidTotalDays)
	}
	for _, identityID := range input.LinkedIdentities {
		if _, err := s.store.GetIdentity(ctx, userID, identityID); err != nil {
			return Habit{}, newServiceError(opCreateHabit, "unknown_identity", err)
		}
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Habit{}, newServiceError(opCreateHabit, "id_generation_failed", err)
	}
	habit := Habit{
		ID:               id,
		Name:             name,
		Type:             input.Type,
		TotalDays:        input.TotalDays,
		LinkedIdentities: append([]string(nil), input.LinkedIdentities...),
		Progress:         make([]bool, input.TotalDays),
		CreatedAt:        s.clock().UTC(),
	}
	if err := s.store.SaveHabit(ctx, userID, habit); err != nil {
		s.logError(opCreateHabit, "save_failed", err, zap.String("user_id", userID))
		return Habit{}, newServiceError(opCreateHabit, "save_failed", err)
	}
	return habit, nil
}

// UpdateHabitInput carries optional habit field updates.
type UpdateHabitInput struct {
	Name             *string
	LinkedIdentities *[]string
}

// UpdateHabit renames a habit or replaces its linked identity set. Progress and
// duration are only ever changed through ToggleDay.
func (s *Service) UpdateHabit(ctx context.Context, userID, habitID string, input UpdateHabitInput) (Habit, error) {
	habit, err := s.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return Habit{}, newServiceError(opUpdateHabit, "load_failed", err)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Habit{}, newServiceError(opUpdateHabit, "invalid_name", ErrInvalidName)
		}
		habit.Name = name
	}
	if input.LinkedIdentities != nil {
		for _, identityID := range *input.LinkedIdentities {
			if _, err := s.store.GetIdentity(ctx, userID, identityID); err != nil {
				return Habit{}, newServiceError(opUpdateHabit, "unknown_identity", err)
			}
		}
		habit.LinkedIdentities = append([]string(nil), (*input.LinkedIdentities)...)
	}
	if err := s.store.SaveHabit(ctx, userID, habit); err != nil {
		s.logError(opUpdateHabit, "save_failed", err, zap.String("user_id", userID))
		return Habit{}, newServiceError(opUpdateHabit, "save_failed", err)
	}
	return habit, nil
}

// DeleteHabit removes a habit and its progress.
func (s *Service) DeleteHabit(ctx context.Context, userID, habitID string) error {
	if err := s.store.DeleteHabit(ctx, userID, habitID); err != nil {
		s.logError(opDeleteHabit, "delete_failed", err,
			zap.String("user_id", userID), zap.String("habit_id", habitID))
		return newServiceError(opDeleteHabit, "delete_failed", err)
	}
	return nil
}

// ListHabits returns all habits for the user.
func (s *Service) ListHabits(ctx context.Context, userID string) ([]Habit, error) {
	return s.store.ListHabits(ctx, userID)
}

// GetHabit returns one habit for the user.
func (s *Service) GetHabit(ctx context.Context, userID, habitID string) (Habit, error) {
	return s.store.GetHabit(ctx, userID, habitID)
}

// ToggleDay flips completion for the habit-local slot. A slot past the current
// end extends the progress sequence with false entries and grows TotalDays to
// the new length; the sequence is never truncated.
func (s *Service) ToggleDay(ctx context.Context, userID, habitID string, slot int) (Habit, error) {
	if slot < 0 {
		return Habit{}, newServiceError(opToggleDay, "invalid_slot", fmt.Errorf("slot %d is negative", slot))
	}
	habit, err := s.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return Habit{}, newServiceError(opToggleDay, "load_failed", err)
	}
	habit.Progress = progress.Toggle(habit.Progress, slot)
	if len(habit.Progress) > habit.TotalDays {
		habit.TotalDays = len(habit.Progress)
	}
	if err := s.store.SaveHabit(ctx, userID, habit); err != nil {
		s.logError(opToggleDay, "save_failed", err,
			zap.String("user_id", userID), zap.String("habit_id", habitID))
		return Habit{}, newServiceError(opToggleDay, "save_failed", err)
	}
	return habit, nil
}

// Export assembles a snapshot of the user's identities and habits.
func (s *Service) Export(ctx context.Context, userID string) (Snapshot, error) {
	identities, err := s.store.ListIdentities(ctx, userID)
	if err != nil {
		return Snapshot{}, newServiceError(opExport, "list_identities_failed", err)
	}
	userHabits, err := s.store.ListHabits(ctx, userID)
	if err != nil {
		return Snapshot{}, newServiceError(opExport, "list_habits_failed", err)
	}
	return Snapshot{
		Identities: identities,
		Habits:     userHabits,
		ExportedAt: s.clock().UTC(),
		Version:    SnapshotVersion,
	}, nil
}

// Import writes every identity and habit from a snapshot into the store,
// preserving ids. Existing entities with matching ids are overwritten.
func (s *Service) Import(ctx context.Context, userID string, snapshot Snapshot) error {
	if snapshot.Version != SnapshotVersion {
		return newServiceError(opImport, "unsupported_version",
			fmt.Errorf("snapshot version %d is not supported", snapshot.Version))
	}
	for _, identity := range snapshot.Identities {
		if err := ValidateID(identity.ID); err != nil {
			return newServiceError(opImport, "invalid_identity_id", err)
		}
		if err := s.store.SaveIdentity(ctx, userID, identity); err != nil {
			return newServiceError(opImport, "save_identity_failed", err)
		}
	}
	for _, habit := range snapshot.Habits {
		if err := ValidateID(habit.ID); err != nil {
			return newServiceError(opImport, "invalid_habit_id", err)
		}
		if err := s.store.SaveHabit(ctx, userID, habit); err != nil {
			return newServiceError(opImport, "save_habit_failed", err)
		}
	}
	return nil
}

// ActiveHabits filters the user's habits down to those whose tracking window
// covers the given day index, resolved in the supplied timezone.
func (s *Service) ActiveHabits(ctx context.Context, userID string, dayIndex int, loc *time.Location) ([]Habit, error) {
	all, err := s.store.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]Habit, 0, len(all))
	for _, habit := range all {
		offset := progress.CreationOffset(habit.CreatedAt, loc)
		if progress.ActiveOn(offset, habit.TotalDays, dayIndex) {
			active = append(active, habit)
		}
	}
	return active, nil
}

// DayStatus partitions a user's active habits for a day index into completed
// and remaining sets.
type DayStatus struct {
	DayIndex  int
	Done      []Habit
	Remaining []Habit
}

// StatusForDay computes the done/remaining partition for the given day index.
func (s *Service) StatusForDay(ctx context.Context, userID string, dayIndex int, loc *time.Location) (DayStatus, error) {
	active, err := s.ActiveHabits(ctx, userID, dayIndex, loc)
	if err != nil {
		return DayStatus{}, err
	}
	status := DayStatus{DayIndex: dayIndex}
	for _, habit := range active {
		slot := progress.Slot(progress.CreationOffset(habit.CreatedAt, loc), dayIndex)
		if slot >= 0 && slot < len(habit.Progress) && habit.Progress[slot] {
			status.Done = append(status.Done, habit)
		} else {
			status.Remaining = append(status.Remaining, habit)
		}
	}
	return status, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("habit service error", attrs...)
}
