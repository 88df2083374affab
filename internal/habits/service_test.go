package habits_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/store/localstore"
)

const testUserID = "user-1"

func newTestService(t *testing.T) *habits.Service {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	service, err := habits.NewService(habits.ServiceConfig{
		Store:      store,
		Clock:      func() time.Time { return time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC) },
		IDProvider: habits.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestCreateIdentityAssignsIDAndTrimsFields(t *testing.T) {
	service := newTestService(t)

	identity, err := service.CreateIdentity(context.Background(), testUserID, habits.CreateIdentityInput{
		Name:        "  Writer  ",
		Description: " writes daily ",
		Color:       " #ff8800 ",
	})
	if err != nil {
		t.Fatalf("create identity failed: %v", err)
	}
	if identity.ID == "" {
		t.Fatalf("expected generated id")
	}
	if identity.Name != "Writer" || identity.Description != "writes daily" || identity.Color != "#ff8800" {
		t.Fatalf("expected trimmed fields, got %#v", identity)
	}
}

func TestCreateIdentityRejectsEmptyName(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateIdentity(context.Background(), testUserID, habits.CreateIdentityInput{Name: "   "})
	if !errors.Is(err, habits.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	var serviceErr *habits.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "habits.create_identity.invalid_name" {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestCreateHabitValidatesInput(t *testing.T) {
	service := newTestService(t)

	if _, err := service.CreateHabit(context.Background(), testUserID, habits.CreateHabitInput{
		Name: "Run", Type: "weekly", TotalDays: 30,
	}); !errors.Is(err, habits.ErrInvalidHabitType) {
		t.Fatalf("expected ErrInvalidHabitType, got %v", err)
	}

	if _, err := service.CreateHabit(context.Background(), testUserID, habits.CreateHabitInput{
		Name: "Run", Type: habits.HabitTypeStart, TotalDays: 0,
	}); !errors.Is(err, habits.ErrInvalidTotalDays) {
		t.Fatalf("expected ErrInvalidTotalDays, got %v", err)
	}

	if _, err := service.CreateHabit(context.Background(), testUserID, habits.CreateHabitInput{
		Name: "Run", Type: habits.HabitTypeStart, TotalDays: 30,
		LinkedIdentities: []string{"missing"},
	}); !errors.Is(err, habits.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identity, got %v", err)
	}
}

func TestCreateHabitInitializesProgress(t *testing.T) {
	service := newTestService(t)

	habit, err := service.CreateHabit(context.Background(), testUserID, habits.CreateHabitInput{
		Name: "Read", Type: habits.HabitTypeStart, TotalDays: 21,
	})
	if err != nil {
		t.Fatalf("create habit failed: %v", err)
	}
	if len(habit.Progress) != 21 {
		t.Fatalf("expected 21 progress slots, got %d", len(habit.Progress))
	}
	for i, done := range habit.Progress {
		if done {
			t.Fatalf("expected slot %d to start false", i)
		}
	}
}

func TestToggleDayFlipsAndExtends(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	habit, err := service.CreateHabit(ctx, testUserID, habits.CreateHabitInput{
		Name: "Meditate", Type: habits.HabitTypeStart, TotalDays: 3,
	})
	if err != nil {
		t.Fatalf("create habit failed: %v", err)
	}

	toggled, err := service.ToggleDay(ctx, testUserID, habit.ID, 1)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !toggled.Progress[1] || toggled.TotalDays != 3 {
		t.Fatalf("expected slot 1 set within existing window, got %#v", toggled)
	}

	toggled, err = service.ToggleDay(ctx, testUserID, habit.ID, 1)
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if toggled.Progress[1] {
		t.Fatalf("expected slot 1 cleared after second toggle")
	}

	extended, err := service.ToggleDay(ctx, testUserID, habit.ID, 6)
	if err != nil {
		t.Fatalf("extending toggle failed: %v", err)
	}
	if len(extended.Progress) != 7 || extended.TotalDays != 7 {
		t.Fatalf("expected window grown to 7, got len=%d totalDays=%d",
			len(extended.Progress), extended.TotalDays)
	}
	if !extended.Progress[6] {
		t.Fatalf("expected extending slot set")
	}
	for _, slot := range []int{2, 3, 4, 5} {
		if extended.Progress[slot] {
			t.Fatalf("expected filler slot %d to be false", slot)
		}
	}
}

func TestToggleDayRejectsNegativeSlot(t *testing.T) {
	service := newTestService(t)

	_, err := service.ToggleDay(context.Background(), testUserID, "any", -1)
	var serviceErr *habits.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "habits.toggle_day.invalid_slot" {
		t.Fatalf("expected invalid_slot error, got %v", err)
	}
}

func TestDeleteIdentityUnlinksHabits(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	identity, err := service.CreateIdentity(ctx, testUserID, habits.CreateIdentityInput{Name: "Athlete"})
	if err != nil {
		t.Fatalf("create identity failed: %v", err)
	}
	habit, err := service.CreateHabit(ctx, testUserID, habits.CreateHabitInput{
		Name: "Stretch", Type: habits.HabitTypeStart, TotalDays: 14,
		LinkedIdentities: []string{identity.ID},
	})
	if err != nil {
		t.Fatalf("create habit failed: %v", err)
	}

	if err := service.DeleteIdentity(ctx, testUserID, identity.ID); err != nil {
		t.Fatalf("delete identity failed: %v", err)
	}

	reloaded, err := service.GetHabit(ctx, testUserID, habit.ID)
	if err != nil {
		t.Fatalf("reload habit failed: %v", err)
	}
	if reloaded.LinksIdentity(identity.ID) {
		t.Fatalf("expected habit unlinked from deleted identity")
	}
	if len(reloaded.Progress) != 14 {
		t.Fatalf("expected habit progress untouched by cascade")
	}
}

func TestUpdateHabitReplacesLinks(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.CreateIdentity(ctx, testUserID, habits.CreateIdentityInput{Name: "Reader"})
	if err != nil {
		t.Fatalf("create identity failed: %v", err)
	}
	second, err := service.CreateIdentity(ctx, testUserID, habits.CreateIdentityInput{Name: "Learner"})
	if err != nil {
		t.Fatalf("create identity failed: %v", err)
	}
	habit, err := service.CreateHabit(ctx, testUserID, habits.CreateHabitInput{
		Name: "Read", Type: habits.HabitTypeStart, TotalDays: 30,
		LinkedIdentities: []string{first.ID},
	})
	if err != nil {
		t.Fatalf("create habit failed: %v", err)
	}

	newName := "Read books"
	newLinks := []string{second.ID}
	updated, err := service.UpdateHabit(ctx, testUserID, habit.ID, habits.UpdateHabitInput{
		Name:             &newName,
		LinkedIdentities: &newLinks,
	})
	if err != nil {
		t.Fatalf("update habit failed: %v", err)
	}
	if updated.Name != "Read books" {
		t.Fatalf("expected renamed habit, got %q", updated.Name)
	}
	if updated.LinksIdentity(first.ID) || !updated.LinksIdentity(second.ID) {
		t.Fatalf("expected links replaced, got %v", updated.LinkedIdentities)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	source := newTestService(t)
	target := newTestService(t)
	ctx := context.Background()

	identity, err := source.CreateIdentity(ctx, testUserID, habits.CreateIdentityInput{Name: "Musician"})
	if err != nil {
		t.Fatalf("create identity failed: %v", err)
	}
	habit, err := source.CreateHabit(ctx, testUserID, habits.CreateHabitInput{
		Name: "Practice", Type: habits.HabitTypeStop, TotalDays: 10,
		LinkedIdentities: []string{identity.ID},
	})
	if err != nil {
		t.Fatalf("create habit failed: %v", err)
	}
	if _, err := source.ToggleDay(ctx, testUserID, habit.ID, 4); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	snapshot, err := source.Export(ctx, testUserID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if snapshot.Version != habits.SnapshotVersion {
		t.Fatalf("unexpected snapshot version %d", snapshot.Version)
	}

	if err := target.Import(ctx, testUserID, snapshot); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	imported, err := target.GetHabit(ctx, testUserID, habit.ID)
	if err != nil {
		t.Fatalf("imported habit missing: %v", err)
	}
	if imported.Type != habits.HabitTypeStop || !imported.Progress[4] {
		t.Fatalf("imported habit lost state: %#v", imported)
	}
	if !imported.LinksIdentity(identity.ID) {
		t.Fatalf("imported habit lost identity link")
	}
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	service := newTestService(t)

	err := service.Import(context.Background(), testUserID, habits.Snapshot{Version: 99})
	var serviceErr *habits.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "habits.import.unsupported_version" {
		t.Fatalf("expected unsupported_version error, got %v", err)
	}
}

func TestActiveHabitsRespectsWindow(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	// Habit created 3 days after the tracking epoch, so its window covers day
	// indexes 3 through 3+totalDays-1.
	created := time.Date(2025, 10, 4, 9, 30, 0, 0, time.UTC)
	service, err := habits.NewService(habits.ServiceConfig{
		Store:      store,
		Clock:      func() time.Time { return created },
		IDProvider: habits.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	ctx := context.Background()
	if _, err := service.CreateHabit(ctx, testUserID, habits.CreateHabitInput{
		Name: "Walk", Type: habits.HabitTypeStart, TotalDays: 5,
	}); err != nil {
		t.Fatalf("create habit failed: %v", err)
	}

	cases := []struct {
		dayIndex int
		active   bool
	}{
		{2, false},
		{3, true},
		{7, true},
		{8, false},
	}
	for _, tc := range cases {
		active, err := service.ActiveHabits(ctx, testUserID, tc.dayIndex, time.UTC)
		if err != nil {
			t.Fatalf("active habits failed: %v", err)
		}
		if got := len(active) == 1; got != tc.active {
			t.Fatalf("day %d: expected active=%v, got %d habits", tc.dayIndex, tc.active, len(active))
		}
	}
}

func TestStatusForDayPartitionsHabits(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	done, err := service.CreateHabit(ctx, testUserID, habits.CreateHabitInput{
		Name: "Journal", Type: habits.HabitTypeStart, TotalDays: 30,
	})
	if err != nil {
		t.Fatalf("create habit failed: %v", err)
	}
	if _, err := service.CreateHabit(ctx, testUserID, habits.CreateHabitInput{
		Name: "Swim", Type: habits.HabitTypeStart, TotalDays: 30,
	}); err != nil {
		t.Fatalf("create habit failed: %v", err)
	}

	// Both habits were created on day index 4; toggling slot 0 marks day 4 done.
	if _, err := service.ToggleDay(ctx, testUserID, done.ID, 0); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	status, err := service.StatusForDay(ctx, testUserID, 4, time.UTC)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if len(status.Done) != 1 || len(status.Remaining) != 1 {
		t.Fatalf("expected 1 done / 1 remaining, got %d/%d", len(status.Done), len(status.Remaining))
	}
	if status.Done[0].Name != "Journal" {
		t.Fatalf("expected Journal done, got %q", status.Done[0].Name)
	}
}
