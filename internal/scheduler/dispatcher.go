// Package scheduler implements the time-triggered fan-outs: the daily push
// reminder sweep over all stored subscriptions and the weekly email summary
// sweep over all enabled users.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/prefs"
	"github.com/aspirehq/aspire/backend/internal/progress"
	"github.com/aspirehq/aspire/backend/internal/push"
	"github.com/aspirehq/aspire/backend/internal/report"
	"github.com/aspirehq/aspire/backend/internal/users"
	"go.uber.org/zap"
)

// maxNamedHabits caps how many remaining habits the push body names.
const maxNamedHabits = 3

var (
	errMissingPush   = errors.New("scheduler: push service is required")
	errMissingPrefs  = errors.New("scheduler: preference service is required")
	errMissingHabits = errors.New("scheduler: habit service is required")
)

// DispatcherConfig describes the dependencies of the scheduled fan-outs.
type DispatcherConfig struct {
	Push   *push.Service
	Prefs  *prefs.Service
	Habits *habits.Service
	Users  *users.Service
	Email  *report.EmailClient
	Clock  func() time.Time
	Logger *zap.Logger
}

// Dispatcher runs the scheduled sweeps. Each invocation is independent; a
// failed run is simply retried by the next cron trigger.
type Dispatcher struct {
	push   *push.Service
	prefs  *prefs.Service
	habits *habits.Service
	users  *users.Service
	email  *report.EmailClient
	clock  func() time.Time
	logger *zap.Logger
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Push == nil {
		return nil, errMissingPush
	}
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
	return &Dispatcher{
		push:   cfg.Push,
		prefs:  cfg.Prefs,
		habits: cfg.Habits,
		users:  cfg.Users,
		email:  cfg.Email,
		clock:  clock,
		logger: logger,
	}, nil
}

// PushRunResult counts what one daily sweep did.
type PushRunResult struct {
	Users    int `json:"users"`
	Eligible int `json:"eligible"`
	Sent     int `json:"sent"`
}

// DispatchDailyPush sweeps every stored subscription grouped by user, checks
// reminder eligibility against each user's local clock and delivers one push
// per subscription. Users are processed sequentially; deliveries within a user
// run concurrently. Failures are logged per user and never abort the sweep.
func (d *Dispatcher) DispatchDailyPush(ctx context.Context) (PushRunResult, error) {
	grouped, err := d.push.ListAll(ctx)
	if err != nil {
		return PushRunResult{}, fmt.Errorf("scheduler: list subscriptions: %w", err)
	}

	userIDs := make([]string, 0, len(grouped))
	for userID := range grouped {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	result := PushRunResult{Users: len(userIDs)}
	now := d.clock()

	for _, userID := range userIDs {
		userPrefs, err := d.prefs.GetOrDefault(ctx, userID)
		if err != nil {
			d.logger.Warn("skipping user with unreadable prefs",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if !userPrefs.NotifEnabled {
			continue
		}
		loc, err := progress.Location(userPrefs.NotifTimezone)
		if err != nil {
			d.logger.Warn("skipping user with invalid timezone",
				zap.String("user_id", userID),
				zap.String("timezone", userPrefs.NotifTimezone))
			continue
		}
		if now.In(loc).Hour() != userPrefs.NotifHour {
			continue
		}
		result.Eligible++

		dayIndex := progress.DayIndex(now, loc)
		status, err := d.habits.StatusForDay(ctx, userID, dayIndex, loc)
		if err != nil {
			d.logger.Warn("failed to compute day status",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}

		payload := push.Payload{
			Title: "Habit reminder",
			Body:  buildPushBody(status),
			URL:   "/",
		}
		outcomes := d.push.DeliverTo(ctx, userID, grouped[userID], payload)

		delivered := false
		for _, outcome := range outcomes {
			if outcome.Err == nil {
				delivered = true
				result.Sent++
			}
		}
		if delivered {
			if err := d.prefs.MarkNotified(ctx, userID, now); err != nil {
				d.logger.Warn("failed to record reminder timestamp",
					zap.String("user_id", userID), zap.Error(err))
			}
		}
	}
	return result, nil
}

// buildPushBody names up to three remaining habits or celebrates completion.
func buildPushBody(status habits.DayStatus) string {
	if len(status.Remaining) == 0 {
		if len(status.Done) > 0 {
			return "All habits complete for today. Well done!"
		}
		return "Nothing scheduled for today. Enjoy the rest!"
	}

	names := make([]string, 0, maxNamedHabits)
	for _, habit := range status.Remaining {
		if len(names) == maxNamedHabits {
			break
		}
		names = append(names, habit.Name)
	}
	body := "Still open today: " + strings.Join(names, ", ")
	if extra := len(status.Remaining) - len(names); extra > 0 {
		body += fmt.Sprintf(" +%d more", extra)
	}
	return body
}

// EmailRunResult counts what one weekly email sweep did.
type EmailRunResult struct {
	Users int `json:"users"`
	Sent  int `json:"sent"`
}

// DispatchWeeklyEmail sends the weekly summary to every user with
// notifications enabled and a known email address. Per-user failures are
// logged and skipped.
func (d *Dispatcher) DispatchWeeklyEmail(ctx context.Context) (EmailRunResult, error) {
	if d.email == nil || d.users == nil {
		return EmailRunResult{}, errors.New("scheduler: email dispatch not configured")
	}
	enabled, err := d.prefs.ListEnabled(ctx)
	if err != nil {
		return EmailRunResult{}, fmt.Errorf("scheduler: list enabled users: %w", err)
	}

	result := EmailRunResult{Users: len(enabled)}
	now := d.clock()

	for _, userPrefs := range enabled {
		account, err := d.users.GetAccount(userPrefs.UserID)
		if err != nil || account.Email == "" {
			continue
		}
		loc, err := progress.Location(userPrefs.NotifTimezone)
		if err != nil {
			loc = time.UTC
		}
		userHabits, err := d.habits.ListHabits(ctx, userPrefs.UserID)
		if err != nil {
			d.logger.Warn("failed to load habits for weekly email",
				zap.String("user_id", userPrefs.UserID), zap.Error(err))
			continue
		}
		summary := report.BuildWeekly(account.DisplayName, userHabits, now, loc)
		if err := d.email.SendWeekly(ctx, account.Email, summary); err != nil {
			d.logger.Warn("weekly email delivery failed",
				zap.String("user_id", userPrefs.UserID), zap.Error(err))
			continue
		}
		result.Sent++
	}
	return result, nil
}
