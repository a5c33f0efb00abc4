package guilds

import (
	"context"

	"github.com/streakbot/streakbot/streakbot/database/models"
)

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

type Repository interface {
	// Get returns ErrNotFound when the guild has no configuration yet.
	Get(ctx context.Context, guildID string) (*models.GuildConfig, error)
	// Create inserts cfg unless a row for the guild already exists.
	Create(ctx context.Context, cfg *models.GuildConfig) error
	// Modify locks the guild's row, applies fn to it and writes it back in one
	// transaction. Errors from fn are returned unchanged and nothing is
	// written. fn may run more than once when the transaction is retried.
	Modify(ctx context.Context, guildID string, fn func(cfg *models.GuildConfig) error) (*models.GuildConfig, error)
}
