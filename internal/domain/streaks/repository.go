package streaks

import (
	"context"

	"github.com/streakbot/streakbot/streakbot/database/models"
)

type Repository interface {
	// RunInTx runs fn in a single transaction. Rows read through Tx stay
	// locked until fn returns.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Get(ctx context.Context, key models.StreakKey) (*models.Streak, error)
	ListByWord(ctx context.Context, guildID, word string, limit int) ([]*models.Streak, error)
	ListByUser(ctx context.Context, guildID, userID string) ([]*models.Streak, error)
}

type Tx interface {
	// GetForUpdate returns ErrNotFound when the row does not exist.
	GetForUpdate(ctx context.Context, key models.StreakKey) (*models.Streak, error)
	// InsertIfAbsent reports whether the row was inserted. An existing row
	// with the same key is left untouched.
	InsertIfAbsent(ctx context.Context, streak *models.Streak) (bool, error)
	Update(ctx context.Context, streak *models.Streak) error
	// LastRaid returns the user's row in the guild with the most recent raid
	// across all words, or nil when the user has never raided.
	LastRaid(ctx context.Context, guildID, userID string) (*models.Streak, error)
}
