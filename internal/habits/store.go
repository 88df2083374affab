package habits

import "context"

// Store is the injected data-access boundary for identities and habits. Two
// implementations exist: a gorm/SQLite-backed store for the hosted deployment
// and a JSON-file-backed store for local single-user use. Implementations scope
// every operation to the supplied user id.
type Store interface {
	ListIdentities(ctx context.Context, userID string) ([]Identity, error)
	GetIdentity(ctx context.Context, userID, identityID string) (Identity, error)
	SaveIdentity(ctx context.Context, userID string, identity Identity) error
	// DeleteIdentity removes the identity and unlinks its id from every habit.
	// Habit progress is never touched by the cascade.
	DeleteIdentity(ctx context.Context, userID, identityID string) error

	ListHabits(ctx context.Context, userID string) ([]Habit, error)
	GetHabit(ctx context.Context, userID, habitID string) (Habit, error)
	SaveHabit(ctx context.Context, userID string, habit Habit) error
	DeleteHabit(ctx context.Context, userID, habitID string) error
}
